package devserver

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RefreshSession is one issued refresh token. Only its hash is kept.
type RefreshSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RefreshStore tracks live refresh tokens
type RefreshStore struct {
	mu       sync.RWMutex
	sessions map[string]RefreshSession // key: token hash
	ttl      time.Duration
	now      func() time.Time
}

func NewRefreshStore(ttl time.Duration, now func() time.Time) *RefreshStore {
	if now == nil {
		now = time.Now
	}
	return &RefreshStore{
		sessions: make(map[string]RefreshSession),
		ttl:      ttl,
		now:      now,
	}
}

// Create issues a refresh token for the user
func (s *RefreshStore) Create(userID string) (string, RefreshSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	token := uuid.NewString() + "." + uuid.NewString()
	sess := RefreshSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.sessions[hashToken(token)] = sess

	// Clean up expired sessions opportunistically
	s.cleanupExpiredLocked()

	return token, sess
}

// Lookup returns the live session for a token
func (s *RefreshStore) Lookup(token string) (RefreshSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[hashToken(token)]
	if !ok || s.now().UTC().After(sess.ExpiresAt) {
		return RefreshSession{}, false
	}
	return sess, true
}

// DeleteUserSessions removes all refresh tokens for a user and returns how
// many were dropped
func (s *RefreshStore) DeleteUserSessions(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for h, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, h)
			count++
		}
	}
	return count
}

// Reset drops everything
func (s *RefreshStore) Reset() {
	s.mu.Lock()
	s.sessions = make(map[string]RefreshSession)
	s.mu.Unlock()
}

// Len counts live and not-yet-cleaned sessions
func (s *RefreshStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupExpiredLocked removes expired sessions (caller must hold write lock)
func (s *RefreshStore) cleanupExpiredLocked() {
	now := s.now().UTC()
	for h, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, h)
		}
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
