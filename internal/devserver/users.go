package devserver

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrInvalidRole    = errors.New("invalid role")
	ErrMissingFields  = errors.New("name, email and password are required")
	ErrUnknownUserID  = errors.New("user not found")
)

var validRoles = map[string]bool{"admin": true, "babysitter": true, "parent": true, "finance": true}

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

// Users is the in-memory account directory
type Users struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
	cost    int
}

func NewUsers(cost int) *Users {
	return &Users{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
		cost:    cost,
	}
}

// Add creates an account. Role defaults to parent.
func (u *Users) Add(name, email, password, role string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return User{}, ErrMissingFields
	}
	if role == "" {
		role = "parent"
	}
	if !validRoles[role] {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.byEmail[email]; exists {
		return User{}, ErrEmailTaken
	}
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: string(hash),
	}
	u.byEmail[email] = user
	u.byID[user.ID] = user
	return *user, nil
}

// Authenticate checks a password
func (u *Users) Authenticate(email, password string) (User, error) {
	u.mu.RLock()
	user, ok := u.byEmail[strings.ToLower(strings.TrimSpace(email))]
	u.mu.RUnlock()
	if !ok {
		return User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrBadCredentials
	}
	return *user, nil
}

// Get looks a user up by id
func (u *Users) Get(id string) (User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.byID[id]
	if !ok {
		return User{}, ErrUnknownUserID
	}
	return *user, nil
}

// List returns users in creation order, optionally filtered by role
func (u *Users) List(role string) []User {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := []User{}
	for _, user := range u.byID {
		if role == "" || user.Role == role {
			out = append(out, *user)
		}
	}
	slices.SortFunc(out, func(a, b User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// SetRole changes a user's role. Tokens already issued keep the old role
// until they are refreshed.
func (u *Users) SetRole(id, role string) (User, error) {
	if !validRoles[role] {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return User{}, ErrUnknownUserID
	}
	user.Role = role
	return *user, nil
}
