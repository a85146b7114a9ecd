package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIdentity is what the access token says about its holder
type tokenIdentity struct {
	Role string
	ID   string
}

// decodeIdentity reads role and id claims WITHOUT verifying the signature.
// The backend enforces authorization on every call; these values only drive
// what the client shows. Nested user.role / user.id win over top-level ones.
func decodeIdentity(accessToken string) (tokenIdentity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return tokenIdentity{}, fmt.Errorf("parse access token: %w", err)
	}

	var id tokenIdentity
	if user, ok := claims["user"].(map[string]any); ok {
		id.Role = claimString(user["role"])
		id.ID = claimString(user["id"])
	}
	if id.Role == "" {
		id.Role = claimString(claims["role"])
	}
	if id.ID == "" {
		id.ID = claimString(claims["id"])
	}
	return id, nil
}

// claimString renders string and numeric claims; anything else is ""
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
