package devserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Login handles POST /api/auth/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.users.Authenticate(in.Email, in.Password)
	if err != nil {
		logger.Info().Str("email", in.Email).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.issueSession(w, r, http.StatusOK, user)
}

// Register handles POST /api/auth/register
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.users.Add(in.Name, in.Email, in.Password, in.Role)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
		return
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Ctx(r.Context()).Error().Err(err).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	log.Ctx(r.Context()).Info().Str("userId", user.ID).Str("role", user.Role).Msg("user registered")
	s.issueSession(w, r, http.StatusCreated, user)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, code int, user User) {
	access, err := s.issueAccessToken(user)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to issue access token")
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	refresh, sess := s.refresh.Create(user.ID)

	log.Ctx(r.Context()).Info().
		Str("userId", user.ID).
		Str("refreshSessionId", sess.ID).
		Time("expiresAt", sess.ExpiresAt).
		Msg("session issued")

	writeJSON(w, code, authResponse{AccessToken: access, RefreshToken: refresh, User: user})
}

// RefreshToken handles POST /api/auth/refresh-token
func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &in); err != nil || in.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	sess, ok := s.refresh.Lookup(in.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	user, err := s.users.Get(sess.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		logger.Error().Err(err).Msg("failed to issue access token")
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}

	logger.Debug().Str("userId", user.ID).Str("refreshSessionId", sess.ID).Msg("access token refreshed")
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// Logout handles POST /api/auth/logout. It ends every refresh session the
// caller holds.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := CallerIdentity(r.Context())
	n := s.refresh.DeleteUserSessions(id.UserID)

	log.Ctx(r.Context()).Info().Int("sessions", n).Msg("logged out")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := CallerIdentity(r.Context())
	user, err := s.users.Get(id.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
