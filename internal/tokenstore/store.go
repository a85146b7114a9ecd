package tokenstore

import (
	"context"
	"fmt"
)

// Keys persisted for a session. Values are stored as plain strings.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserRole     = "userRole"
	KeyUserName     = "userName"
	KeyUserID       = "userId"
)

// AllKeys lists every key owned by a session, in a stable order
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserRole, KeyUserName, KeyUserID}

// Store is a persistent key-value store for session credentials.
// Implementations must be safe for concurrent use; last write wins.
type Store interface {
	// Get returns the value for key, or "" if the key is not set
	Get(ctx context.Context, key string) (string, error)

	// Set writes a single key
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Values is a snapshot of all session keys
type Values struct {
	AccessToken  string
	RefreshToken string
	UserRole     string
	UserName     string
	UserID       string
}

// HasTokens reports whether both tokens are present.
// A snapshot holding only one of them is not a usable session.
func (v Values) HasTokens() bool {
	return v.AccessToken != "" && v.RefreshToken != ""
}

// Empty reports whether no key is set
func (v Values) Empty() bool {
	return v == Values{}
}

func (v Values) pairs() [][2]string {
	return [][2]string{
		{KeyAccessToken, v.AccessToken},
		{KeyRefreshToken, v.RefreshToken},
		{KeyUserRole, v.UserRole},
		{KeyUserName, v.UserName},
		{KeyUserID, v.UserID},
	}
}

// Load reads all session keys from s
func Load(ctx context.Context, s Store) (Values, error) {
	var v Values
	dst := map[string]*string{
		KeyAccessToken:  &v.AccessToken,
		KeyRefreshToken: &v.RefreshToken,
		KeyUserRole:     &v.UserRole,
		KeyUserName:     &v.UserName,
		KeyUserID:       &v.UserID,
	}
	for _, key := range AllKeys {
		val, err := s.Get(ctx, key)
		if err != nil {
			return Values{}, fmt.Errorf("read %s: %w", key, err)
		}
		*dst[key] = val
	}
	return v, nil
}

// Save writes every non-empty field of v to s. Empty fields are deleted so a
// saved snapshot never mixes with a previous session's leftovers.
func Save(ctx context.Context, s Store, v Values) error {
	var stale []string
	for _, kv := range v.pairs() {
		if kv[1] == "" {
			stale = append(stale, kv[0])
			continue
		}
		if err := s.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("write %s: %w", kv[0], err)
		}
	}
	if len(stale) > 0 {
		if err := s.Delete(ctx, stale...); err != nil {
			return fmt.Errorf("delete stale keys: %w", err)
		}
	}
	return nil
}

// Clear removes every session key. Clearing an empty store is a no-op.
func Clear(ctx context.Context, s Store) error {
	return s.Delete(ctx, AllKeys...)
}
