package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/erauner12/daycare-client/internal/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single attempt (request + response body)
const DefaultTimeout = 30 * time.Second

// Client is the single egress point for backend calls.
// Automatically injects:
// - Authorization: Bearer <token> (when a session exists)
// - X-Correlation-ID: <uuid>, shared by an attempt and its replay
//
// Handles:
// - 401 Unauthorized: refresh the access token once and replay
// - 401 after the replay, or a failed refresh: expire the session
// - any other failure: raise a notice and return a typed error
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	timeoutSet bool
	creds      Credentials
	notifier   notify.Notifier
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.timeoutSet = true
	}
}

// WithCredentials attaches the session accessor. Without it every request
// goes out unauthenticated and a 401 is returned as a plain StatusError.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithNotifier sets where user-facing notices go
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger sets the base logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for baseURL (for example "http://localhost:5000/api")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		notifier:   notify.Discard,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	// An injected client that carries its own timeout keeps it unless
	// WithTimeout was given explicitly
	if c.timeout > 0 && (c.timeoutSet || c.httpClient.Timeout == 0) {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.logger = c.logger.With().Str("component", "apiclient").Logger()
	return c
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes an API request with credential injection and session recovery.
// This is the main entry point for all requests.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	correlationID := uuid.New().String()

	logger := c.logger.With().
		Str("method", r.Method).
		Str("path", r.Path).
		Str("correlationId", correlationID).
		Logger()

	body, err := r.encodeBody()
	if err != nil {
		logger.Error().Err(err).Msg("failed to build request")
		return nil, c.fail(ctx, MsgUnexpected, fmt.Errorf("%w: %w", ErrRequest, err))
	}

	token := ""
	if c.creds != nil {
		token = c.creds.AccessToken()
	}

	return c.attempt(ctx, r, body, &logger, correlationID, token, false)
}

// Get issues a GET
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch issues a PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// attempt sends the request once. retried marks a replay after a refresh.
func (c *Client) attempt(ctx context.Context, r *Request, body []byte, logger *zerolog.Logger, correlationID, token string, retried bool) (*Response, error) {
	req, err := r.newHTTPRequest(ctx, c.baseURL, body)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build request")
		return nil, c.fail(ctx, MsgUnexpected, fmt.Errorf("%w: %w", ErrRequest, err))
	}

	req.Header.Set("X-Correlation-ID", correlationID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		logger.Debug().Msg("injected bearer token")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Debug().Dur("duration", duration).Msg("request canceled")
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}
		logger.Error().Err(err).Dur("duration", duration).Msg("HTTP request failed")
		return nil, c.fail(ctx, MsgNetwork, fmt.Errorf("%w: %w", ErrNetwork, err))
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("failed to read response body")
		return nil, c.fail(ctx, MsgNetwork, fmt.Errorf("%w: %w", ErrNetwork, err))
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Bool("retried", retried).
		Msg("HTTP request completed")

	response := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return response, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return c.handleUnauthorized(ctx, r, body, response, logger, correlationID, token, retried)

	default:
		se := &StatusError{
			StatusCode: resp.StatusCode,
			Message:    statusMessage(resp.StatusCode, data),
			Body:       data,
		}
		logger.Warn().Int("status", resp.StatusCode).Str("message", se.Message).Msg("request rejected")
		return nil, c.fail(ctx, se.Message, se)
	}
}

// handleUnauthorized refreshes the access token once and replays the request
func (c *Client) handleUnauthorized(ctx context.Context, r *Request, body []byte, resp *Response, logger *zerolog.Logger, correlationID, token string, retried bool) (*Response, error) {
	se := &StatusError{StatusCode: http.StatusUnauthorized, Message: MsgSessionExpired, Body: resp.Body}

	if c.creds == nil {
		// Nothing to recover: surface whatever the server said (bad login, etc.)
		if m := ServerMessage(resp.Body); m != "" {
			se.Message = m
		}
		logger.Warn().Str("message", se.Message).Msg("401 Unauthorized without credentials")
		return nil, c.fail(ctx, se.Message, se)
	}

	if retried {
		logger.Warn().Msg("401 Unauthorized after refresh - expiring session")
		return nil, c.expire(ctx, MsgSessionExpired, token, se)
	}

	logger.Warn().Msg("401 Unauthorized - refreshing token and retrying")

	newToken, err := c.creds.Refresh(ctx, token)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}
		msg := MsgRefreshFailed
		if errors.Is(err, ErrNoRefreshToken) {
			msg = MsgSessionExpired
		}
		logger.Warn().Err(err).Msg("token refresh failed - expiring session")
		return nil, c.expire(ctx, msg, token, err)
	}

	// Replay exactly once with the new token
	return c.attempt(ctx, r, body, logger, correlationID, newToken, true)
}

// expire runs fatal session loss. The credentials owner raises the notice
// and forces navigation; callers cannot silence it.
func (c *Client) expire(ctx context.Context, msg, token string, cause error) error {
	c.creds.Expire(ctx, msg, token)
	return &noticeError{msg: msg, err: fmt.Errorf("%w: %w", ErrSessionExpired, cause)}
}

// fail raises a notice (unless ctx is silent) and returns err carrying msg
func (c *Client) fail(ctx context.Context, msg string, err error) error {
	if !isSilent(ctx) {
		c.notifier.Notify(ctx, notify.Error(msg))
	}
	var se *StatusError
	if errors.As(err, &se) {
		return err
	}
	return &noticeError{msg: msg, err: err}
}
