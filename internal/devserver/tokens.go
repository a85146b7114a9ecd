package devserver

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var errStaleGeneration = errors.New("token predates last expiry")

// accessClaims nests id and role under "user" like the production backend,
// with top-level copies for older readers
type accessClaims struct {
	User       claimUser `json:"user"`
	Role       string    `json:"role"`
	Name       string    `json:"name,omitempty"`
	Generation int       `json:"gen"`
	jwt.RegisteredClaims
}

type claimUser struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// issueAccessToken mints an HS256 access token for u
func (s *Server) issueAccessToken(u User) (string, error) {
	now := s.now()
	claims := accessClaims{
		User:       claimUser{ID: u.ID, Role: u.Role},
		Role:       u.Role,
		Name:       u.Name,
		Generation: s.currentGeneration(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *Server) parseAccessToken(token string) (Identity, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(s.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, err
	}
	if claims.Generation != s.currentGeneration() {
		return Identity{}, errStaleGeneration
	}
	return Identity{UserID: claims.User.ID, Role: claims.User.Role}, nil
}
