// Package daycare enumerates the backend's REST surface, grouped by the
// role that calls it. Every method maps one (resource, verb) pair onto the
// API client and returns its result unchanged; nothing here catches errors.
package daycare

import (
	"context"
	"net/http"
	"net/url"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// Requester is the slice of the API client the facades need
type Requester interface {
	Do(ctx context.Context, r *apiclient.Request) (*apiclient.Response, error)
}

// Record is an opaque business payload (child, payment, budget, ...)
type Record = map[string]any

// API bundles every facade over one requester
type API struct {
	Auth       *AuthAPI
	Admin      *AdminAPI
	Babysitter *BabysitterAPI
	Incidents  *IncidentAPI
}

// New builds all facades over rq
func New(rq Requester) *API {
	return &API{
		Auth:       &AuthAPI{rq: rq},
		Admin:      &AdminAPI{rq: rq},
		Babysitter: &BabysitterAPI{rq: rq},
		Incidents:  &IncidentAPI{rq: rq},
	}
}

func get(ctx context.Context, rq Requester, path string, query url.Values) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: path, Query: query})
}

// getBlob asks for a binary body (receipts, reports)
func getBlob(ctx context.Context, rq Requester, path string, query url.Values) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Header: http.Header{"Accept": []string{"*/*"}},
	})
}

func post(ctx context.Context, rq Requester, path string, body any) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: path, Body: body})
}

func put(ctx context.Context, rq Requester, path string, body any) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{Method: http.MethodPut, Path: path, Body: body})
}

func patch(ctx context.Context, rq Requester, path string, body any) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{Method: http.MethodPatch, Path: path, Body: body})
}

func del(ctx context.Context, rq Requester, path string) (*apiclient.Response, error) {
	return rq.Do(ctx, &apiclient.Request{Method: http.MethodDelete, Path: path})
}

// seg escapes a caller-supplied id for use as one path segment
func seg(id string) string {
	return url.PathEscape(id)
}

func dateQuery(date string) url.Values {
	if date == "" {
		return nil
	}
	return url.Values{"date": {date}}
}
