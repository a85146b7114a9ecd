package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/erauner12/daycare-client/internal/apiclient"
	"github.com/erauner12/daycare-client/internal/notify"
	"github.com/erauner12/daycare-client/internal/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	msgLoginFailed = "An error occurred during login"
	msgNoToken     = "No token received from server"
	defaultName    = "User"
)

var (
	// ErrNoToken means the backend answered 2xx without a token pair
	ErrNoToken = errors.New("no token received from server")

	// ErrRefreshRejected means the refresh endpoint answered without a new access token
	ErrRefreshRejected = errors.New("refresh endpoint returned no access token")

	// ErrSessionEnded means the session was cleared or replaced while a
	// refresh was in flight; the new token is dropped
	ErrSessionEnded = errors.New("session ended during refresh")
)

// Manager owns the session lifecycle and is the only component that mints
// or destroys a Session. It implements apiclient.Credentials.
type Manager struct {
	mu        sync.RWMutex
	store     tokenstore.Store
	auth      *apiclient.Client
	notifier  notify.Notifier
	navigator Navigator
	logger    zerolog.Logger

	// lifeMu serializes store writes that create, update or destroy the
	// session so a late refresh cannot resurrect a cleared one
	lifeMu sync.Mutex

	current *Session
	state   State

	refreshGroup singleflight.Group

	subMu  sync.Mutex
	subSeq int
	subs   map[int]func(State, *User)
}

var _ apiclient.Credentials = (*Manager)(nil)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	notifier   notify.Notifier
	navigator  Navigator
	logger     zerolog.Logger
}

// Option configures a Manager
type Option func(*options)

// WithHTTPClient sets the transport used for the auth endpoints
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTimeout bounds each auth call
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithNotifier sets where session notices go
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithNavigator sets how fatal session loss reaches the login route
func WithNavigator(n Navigator) Option {
	return func(o *options) { o.navigator = n }
}

// WithLogger sets the base logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewManager creates a manager talking to the auth endpoints under baseURL
// and persisting to store. Call Restore to pick up a stored session.
func NewManager(baseURL string, store tokenstore.Store, opts ...Option) *Manager {
	o := options{
		httpClient: &http.Client{},
		notifier:   notify.Discard,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With().Str("component", "session").Logger()
	if o.navigator == nil {
		o.navigator = LogNavigator{Log: logger}
	}

	// Auth endpoints go through an uncredentialed client: the refresh call
	// must never re-enter 401 interception.
	authOpts := []apiclient.Option{
		apiclient.WithHTTPClient(o.httpClient),
		apiclient.WithNotifier(o.notifier),
		apiclient.WithLogger(o.logger),
	}
	if o.timeout > 0 {
		authOpts = append(authOpts, apiclient.WithTimeout(o.timeout))
	}
	auth := apiclient.New(baseURL, authOpts...)

	return &Manager{
		store:     store,
		auth:      auth,
		notifier:  o.notifier,
		navigator: o.navigator,
		logger:    logger,
		subs:      make(map[int]func(State, *User)),
	}
}

// Restore rebuilds in-memory state from the store without any network call.
// Token validity is only discovered on the next API request.
func (m *Manager) Restore(ctx context.Context) error {
	v, err := tokenstore.Load(ctx, m.store)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	if !v.HasTokens() {
		if !v.Empty() {
			m.logger.Warn().
				Bool("hasAccessToken", v.AccessToken != "").
				Bool("hasRefreshToken", v.RefreshToken != "").
				Msg("incomplete session in store, clearing")
			if err := tokenstore.Clear(ctx, m.store); err != nil {
				return fmt.Errorf("clear incomplete session: %w", err)
			}
		}
		m.transition(StateAnonymous, nil)
		return nil
	}

	name := v.UserName
	if name == "" {
		name = defaultName
	}
	s := &Session{
		AccessToken:  v.AccessToken,
		RefreshToken: v.RefreshToken,
		User:         User{ID: v.UserID, Name: name, Role: Role(v.UserRole)},
	}

	m.logger.Debug().
		Str("userId", s.User.ID).
		Str("role", string(s.User.Role)).
		Msg("restored session from store")

	m.transition(StateAuthenticated, s)
	return nil
}

// Login authenticates with email and password. It never returns an error:
// failures are reported in the result.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	prevState, prev := m.snapshot()
	m.transition(StateAuthenticating, prev)

	fail := func(msg string) LoginResult {
		m.transition(prevState, prev)
		return LoginResult{Error: msg}
	}

	resp, err := m.auth.Post(apiclient.Silent(ctx), "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("email", email).Msg("login failed")
		msg := msgLoginFailed
		var se *apiclient.StatusError
		if errors.As(err, &se) {
			if sm := apiclient.ServerMessage(se.Body); sm != "" {
				msg = sm
			}
		}
		return fail(msg)
	}

	var body authResponse
	if err := resp.Decode(&body); err != nil {
		m.logger.Warn().Err(err).Msg("login response unreadable")
		return fail(msgLoginFailed)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		m.logger.Warn().Msg("login failed - no token received")
		return fail(msgNoToken)
	}

	user, err := identify(body)
	if err != nil {
		m.logger.Warn().Err(err).Msg("login token unreadable")
		return fail(msgLoginFailed)
	}

	s := &Session{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken, User: user}
	if err := m.install(ctx, s); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist session")
		return fail(msgLoginFailed)
	}

	m.logger.Info().
		Str("userId", user.ID).
		Str("role", string(user.Role)).
		Msg("logged in")

	u := user
	return LoginResult{Success: true, User: &u}
}

// Register creates an account and signs in as it. Unlike Login, failures
// are returned as errors.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	prevState, prev := m.snapshot()
	m.transition(StateAuthenticating, prev)

	user, err := m.register(ctx, req)
	if err != nil {
		m.transition(prevState, prev)
		return nil, err
	}
	return user, nil
}

func (m *Manager) register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := m.auth.Post(ctx, "/auth/register", req)
	if err != nil {
		m.logger.Warn().Err(err).Str("email", req.Email).Msg("registration failed")
		return nil, fmt.Errorf("register: %w", err)
	}

	var body authResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return nil, fmt.Errorf("register: %w", ErrNoToken)
	}

	user := User{Name: defaultName, Role: RoleAdmin}
	if body.User != nil {
		user.ID = body.User.ID
		user.Email = body.User.Email
		if body.User.Name != "" {
			user.Name = body.User.Name
		}
		if body.User.Role != "" {
			user.Role = Role(body.User.Role)
		}
	}
	if user.ID == "" {
		if id, err := decodeIdentity(body.AccessToken); err == nil {
			user.ID = id.ID
		}
	}

	s := &Session{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken, User: user}
	if err := m.install(ctx, s); err != nil {
		return nil, fmt.Errorf("register: persist session: %w", err)
	}

	m.logger.Info().Str("userId", user.ID).Str("role", string(user.Role)).Msg("registered")
	return &user, nil
}

// Logout tells the server (best effort) and always clears local state.
// Calling it with no session is a no-op apart from the clear.
func (m *Manager) Logout(ctx context.Context) {
	if token := m.AccessToken(); token != "" {
		req := &apiclient.Request{
			Method: http.MethodPost,
			Path:   "/auth/logout",
			Header: http.Header{"Authorization": []string{"Bearer " + token}},
		}
		if _, err := m.auth.Do(apiclient.Silent(ctx), req); err != nil {
			m.logger.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}

	m.clear(ctx)
	m.logger.Info().Msg("logged out")
}

// Expire performs fatal session loss: clear everything, tell the user, and
// force navigation to the login route. token is the access token the failed
// request carried; once the session no longer holds it the call does
// nothing, so requests failing together tear the session down once.
func (m *Manager) Expire(ctx context.Context, message, token string) {
	if message == "" {
		message = apiclient.MsgSessionExpired
	}

	m.lifeMu.Lock()
	if token != "" && m.AccessToken() != token {
		m.lifeMu.Unlock()
		m.logger.Debug().Str("reason", message).Msg("session already moved on, skipping expiry")
		return
	}
	m.logger.Warn().Str("reason", message).Msg("session expired")
	m.clearLocked(ctx)

	m.notifier.Notify(ctx, notify.Error(message))
	m.navigator.Navigate(LoginPath)
}

// AccessToken implements apiclient.Credentials
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.RefreshToken == "" {
		return ""
	}
	return m.current.AccessToken
}

// Refresh implements apiclient.Credentials. Concurrent callers share one
// in-flight refresh; a caller holding a token older than the current one
// gets the current token without another refresh.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	if cur := m.AccessToken(); cur != "" && stale != "" && cur != stale {
		m.logger.Debug().Msg("access token already refreshed, reusing")
		return cur, nil
	}

	// Detached so one caller's cancellation doesn't fail everyone sharing the flight
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			m.logger.Debug().Msg("joined in-flight token refresh")
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh posts the stored refresh token and stores the new access token,
// provided the session it was issued for is still the current one
func (m *Manager) refresh(ctx context.Context) (string, error) {
	refreshToken, err := m.store.Get(ctx, tokenstore.KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", apiclient.ErrNoRefreshToken
	}

	m.logger.Debug().Msg("refreshing access token")

	resp, err := m.auth.Post(apiclient.Silent(ctx), "/auth/refresh-token", map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	var body refreshResponse
	if err := resp.Decode(&body); err != nil || body.AccessToken == "" {
		return "", ErrRefreshRejected
	}

	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	m.mu.RLock()
	live := m.current != nil && m.current.RefreshToken == refreshToken
	m.mu.RUnlock()
	if !live {
		m.logger.Info().Msg("session ended while refreshing, dropping new token")
		return "", ErrSessionEnded
	}

	if err := m.store.Set(ctx, tokenstore.KeyAccessToken, body.AccessToken); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}

	m.mu.Lock()
	m.current.AccessToken = body.AccessToken
	m.mu.Unlock()

	m.logger.Info().Msg("access token refreshed")
	return body.AccessToken, nil
}

// State returns the current session state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns a copy of the signed-in user, or nil
func (m *Manager) Current() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	u := m.current.User
	return &u
}

// Subscribe registers fn for state changes. fn runs synchronously on the
// goroutine that caused the change. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(State, *User)) (cancel func()) {
	m.subMu.Lock()
	m.subSeq++
	id := m.subSeq
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// persist writes s to the store
func (m *Manager) persist(ctx context.Context, s *Session) error {
	return tokenstore.Save(ctx, m.store, tokenstore.Values{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		UserRole:     string(s.User.Role),
		UserName:     s.User.Name,
		UserID:       s.User.ID,
	})
}

// install persists s and makes it current
func (m *Manager) install(ctx context.Context, s *Session) error {
	m.lifeMu.Lock()
	if err := m.persist(ctx, s); err != nil {
		m.lifeMu.Unlock()
		return err
	}
	changed, user := m.swap(StateAuthenticated, s)
	m.lifeMu.Unlock()

	if changed {
		m.announce(StateAuthenticated, user)
	}
	return nil
}

// clear wipes store and memory. Storage errors are logged, never returned:
// teardown must always complete.
func (m *Manager) clear(ctx context.Context) {
	m.lifeMu.Lock()
	m.clearLocked(ctx)
}

// clearLocked is clear for callers already holding lifeMu. It releases
// lifeMu before subscribers run.
func (m *Manager) clearLocked(ctx context.Context) {
	if err := tokenstore.Clear(context.WithoutCancel(ctx), m.store); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear token store")
	}
	changed, _ := m.swap(StateAnonymous, nil)
	m.lifeMu.Unlock()

	if changed {
		m.announce(StateAnonymous, nil)
	}
}

func (m *Manager) snapshot() (State, *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return m.state, nil
	}
	s := *m.current
	return m.state, &s
}

// transition swaps state and session, then notifies subscribers
func (m *Manager) transition(state State, s *Session) {
	if changed, user := m.swap(state, s); changed {
		m.announce(state, user)
	}
}

func (m *Manager) swap(state State, s *Session) (changed bool, user *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed = m.state != state
	m.state = state
	m.current = s
	if s != nil {
		u := s.User
		user = &u
	}
	return changed, user
}

// announce runs subscribers outside every lock, so they may call back into
// the manager
func (m *Manager) announce(state State, user *User) {
	m.subMu.Lock()
	fns := make([]func(State, *User), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(state, user)
	}
}

// identify builds the user from a login response, preferring token claims
// for role and id
func identify(body authResponse) (User, error) {
	claims, err := decodeIdentity(body.AccessToken)
	if err != nil {
		return User{}, err
	}

	user := User{Name: defaultName, Role: Role(claims.Role), ID: claims.ID}
	if body.User != nil {
		if user.ID == "" {
			user.ID = body.User.ID
		}
		if user.Role == "" {
			user.Role = Role(body.User.Role)
		}
		if body.User.Name != "" {
			user.Name = body.User.Name
		}
		user.Email = body.User.Email
	}
	return user, nil
}
