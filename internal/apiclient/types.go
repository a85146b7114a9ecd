package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Credentials is the session accessor the client authenticates with.
// The session manager implements it and is injected at construction.
type Credentials interface {
	// AccessToken returns the current access token, or "" when no session exists
	AccessToken() string

	// Refresh mints a new access token. stale is the token the failed request
	// carried; if the session already moved past it, the current token is
	// returned without another refresh.
	Refresh(ctx context.Context, stale string) (string, error)

	// Expire tears the session down: clear storage, notify, navigate to login.
	// token is the access token the failed request carried ("" if none).
	Expire(ctx context.Context, message, token string)
}

// Request describes one API call relative to the client's base URL
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless it is already a []byte
	Body   any
	Header http.Header
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ContentType returns the response media type
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// encodeBody serializes the request body once so it can be replayed
func (r *Request) encodeBody() ([]byte, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return data, nil
	}
}

// resolve joins the base URL, path and query
func (r *Request) resolve(baseURL string) string {
	path := r.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := strings.TrimRight(baseURL, "/") + path
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.Query.Encode()
	}
	return u
}

// newHTTPRequest builds a fresh *http.Request for one attempt
func (r *Request) newHTTPRequest(ctx context.Context, baseURL string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.resolve(baseURL), rd)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

type silentKey struct{}

// Silent marks ctx so failures are returned without raising a notice.
// Use it when the caller renders the error itself. Session expiry is
// always announced regardless.
func Silent(ctx context.Context) context.Context {
	return context.WithValue(ctx, silentKey{}, true)
}

func isSilent(ctx context.Context) bool {
	v, _ := ctx.Value(silentKey{}).(bool)
	return v
}
