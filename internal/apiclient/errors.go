package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// User-facing messages raised by the client
const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgRefreshFailed  = "An error occurred while refreshing your session. Please log in again."
	MsgForbidden      = "You do not have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgServerError    = "Server error. Please try again later."
	MsgNetwork        = "Network error. Please check your connection."
	MsgUnexpected     = "An unexpected error occurred."
	MsgGeneric        = "An error occurred. Please try again."
)

var (
	// ErrSessionExpired means the session could not be recovered; the
	// session has been torn down and the user sent to the login route
	ErrSessionExpired = errors.New("session expired")

	// ErrNetwork means no response was received
	ErrNetwork = errors.New("network error")

	// ErrRequest means the request could not be built or sent
	ErrRequest = errors.New("request could not be sent")

	// ErrNoRefreshToken is returned by Credentials.Refresh when nothing is stored to refresh with
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	// Message is the user-facing text: a fixed message for well-known
	// statuses, otherwise the server-supplied message
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsForbidden reports a 403
func IsForbidden(err error) bool { return IsStatus(err, http.StatusForbidden) }

// IsNotFound reports a 404
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsServerError reports a 500
func IsServerError(err error) bool { return IsStatus(err, http.StatusInternalServerError) }

// noticeError attaches the user-facing message to a non-status failure
type noticeError struct {
	msg string
	err error
}

func (e *noticeError) Error() string { return e.err.Error() }
func (e *noticeError) Unwrap() error { return e.err }

// UserMessage returns the user-facing text for an error returned by the
// client, or "" if err did not come from it
func UserMessage(err error) string {
	var ne *noticeError
	if errors.As(err, &ne) {
		return ne.msg
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// ServerMessage extracts the "message" field from a JSON error body
func ServerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	return ""
}

// statusMessage maps a status code to the user-facing message
func statusMessage(code int, body []byte) string {
	switch code {
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusNotFound:
		return MsgNotFound
	case http.StatusInternalServerError:
		return MsgServerError
	}
	if m := ServerMessage(body); m != "" {
		return m
	}
	return MsgGeneric
}
