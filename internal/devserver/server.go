// Package devserver is an in-memory stand-in for the daycare backend. It
// speaks the same auth protocol (short-lived HS256 access tokens plus
// refresh tokens) and serves generic JSON collections for the role
// namespaces, which is enough to drive the client end to end.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// Config controls token lifetimes and signing
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
}

// DefaultConfig mirrors the production backend's lifetimes
var DefaultConfig = Config{
	Secret:     "dev-secret-change-in-production",
	AccessTTL:  15 * time.Minute,
	RefreshTTL: 7 * 24 * time.Hour,
	BcryptCost: bcrypt.DefaultCost,
}

// Server holds all devserver state
type Server struct {
	cfg Config
	now func() time.Time

	users   *Users
	refresh *RefreshStore
	data    *Resources

	// generation invalidates every access token issued before a bump
	genMu      sync.RWMutex
	generation int
}

// New creates a server. Zero fields in cfg take DefaultConfig values.
func New(cfg Config) *Server {
	if cfg.Secret == "" {
		cfg.Secret = DefaultConfig.Secret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultConfig.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultConfig.RefreshTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig.BcryptCost
	}

	s := &Server{cfg: cfg, now: time.Now}
	s.users = NewUsers(cfg.BcryptCost)
	s.refresh = NewRefreshStore(cfg.RefreshTTL, s.clock)
	s.data = NewResources()
	return s
}

func (s *Server) clock() time.Time { return s.now() }

// Users exposes the user directory for seeding
func (s *Server) Users() *Users { return s.users }

// Resources exposes the collection store for seeding
func (s *Server) Resources() *Resources { return s.data }

// ExpireAccessTokens makes every outstanding access token fail validation.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.genMu.Lock()
	s.generation++
	s.genMu.Unlock()
}

// RevokeRefreshTokens drops every refresh session
func (s *Server) RevokeRefreshTokens() {
	s.refresh.Reset()
}

func (s *Server) currentGeneration() int {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generation
}

// Routes builds the HTTP handler. Everything lives under /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.Login)
		r.Post("/auth/register", s.Register)
		r.Post("/auth/refresh-token", s.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.BearerAuth)

			r.Post("/auth/logout", s.Logout)
			r.Get("/auth/me", s.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole("admin"))
				r.Get("/users", s.ListUsers)
				r.Put("/users/{id}/role", s.UpdateUserRole)
				r.HandleFunc("/*", s.serveNamespace("admin"))
			})
			r.With(RequireRole("babysitter", "admin")).HandleFunc("/babysitter/*", s.serveNamespace("babysitter"))
			r.With(RequireRole("parent", "admin")).HandleFunc("/parent/*", s.serveNamespace("parent"))
			r.With(RequireRole("finance", "admin")).HandleFunc("/finance/*", s.serveNamespace("finance"))
			r.HandleFunc("/incidents", s.serveNamespace("incidents"))
			r.HandleFunc("/incidents/*", s.serveNamespace("incidents"))
			r.HandleFunc("/payments/*", s.serveNamespace("payments"))
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError uses the {"message": ...} shape the client surfaces verbatim
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
