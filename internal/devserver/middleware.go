package devserver

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CorrelationHeader carries the per-request id the client generates
const CorrelationHeader = "X-Correlation-ID"

type contextKey string

const (
	correlationIDKey contextKey = "correlationId"
	identityKey      contextKey = "identity"
)

// CorrelationMiddleware reads X-Correlation-ID (or mints one), echoes it
// back and attaches a request logger to the context.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, cid)

		logger := log.With().
			Str("correlationId", cid).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ctx := context.WithValue(r.Context(), correlationIDKey, cid)
		r = r.WithContext(logger.WithContext(ctx))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Debug().
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// CorrelationID retrieves the correlation id from context
func CorrelationID(ctx context.Context) string {
	if cid, ok := ctx.Value(correlationIDKey).(string); ok {
		return cid
	}
	return ""
}

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Role   string
}

// CallerIdentity returns the identity BearerAuth stored, if any
func CallerIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// BearerAuth validates the access token and stores the caller identity
func (s *Server) BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context())

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		id, err := s.parseAccessToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("rejected access token")
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		l := logger.With().Str("userId", id.UserID).Str("role", id.Role).Logger()
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(l.WithContext(ctx)))
	})
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CallerIdentity(r.Context())
			if !ok || !slices.Contains(roles, id.Role) {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
