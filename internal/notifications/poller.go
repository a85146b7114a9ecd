package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erauner12/daycare-client/internal/apiclient"
	"github.com/erauner12/daycare-client/internal/daycare"
	"github.com/erauner12/daycare-client/internal/session"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultSchedule polls once a minute
const DefaultSchedule = "@every 1m"

// pollTimeout bounds a single background fetch
const pollTimeout = 30 * time.Second

var (
	// ErrNotSignedIn is returned by Refresh and MarkRead while anonymous
	ErrNotSignedIn = errors.New("not signed in")

	// ErrUnknownNotification means MarkRead was given an id not in the feed
	ErrUnknownNotification = errors.New("unknown notification")
)

// SessionView is the part of the session manager the poller reads
type SessionView interface {
	State() session.State
	Current() *session.User
	Subscribe(fn func(session.State, *session.User)) (cancel func())
}

// Poller keeps the signed-in role's notification feed fresh
type Poller struct {
	api      *daycare.API
	sess     SessionView
	schedule string
	logger   zerolog.Logger
	onUpdate func(Snapshot)

	cron        *cron.Cron
	unsubscribe func()

	mu      sync.RWMutex
	items   []Notification
	lastErr error
	owner   string // user id the feed belongs to
	gen     int    // bumped on every reset; drops fetches that straddle one
}

// Option configures a Poller
type Option func(*Poller)

// WithSchedule sets the cron expression (default "@every 1m")
func WithSchedule(expr string) Option {
	return func(p *Poller) { p.schedule = expr }
}

// WithOnUpdate registers a callback run after every change to the feed
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithLogger sets the base logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a poller; call Start to begin polling
func NewPoller(api *daycare.API, sess SessionView, opts ...Option) *Poller {
	p := &Poller{
		api:      api,
		sess:     sess,
		schedule: DefaultSchedule,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "notifications").Logger()

	// Overlapping polls are skipped rather than queued
	p.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	p.unsubscribe = sess.Subscribe(p.onSession)
	return p
}

// onSession forgets the feed once it no longer belongs to the signed-in user
func (p *Poller) onSession(state session.State, user *session.User) {
	switch state {
	case session.StateAnonymous:
	case session.StateAuthenticated:
		p.mu.RLock()
		same := user != nil && user.ID == p.owner
		p.mu.RUnlock()
		if same {
			return
		}
	default:
		return
	}
	p.reset()
}

func (p *Poller) reset() {
	p.mu.Lock()
	p.items = nil
	p.lastErr = nil
	p.owner = ""
	p.gen++
	p.mu.Unlock()

	p.logger.Debug().Msg("notification feed cleared")
	p.publish()
}

// Start schedules background polling
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.tick); err != nil {
		return fmt.Errorf("schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	p.logger.Debug().Str("schedule", p.schedule).Msg("notification polling started")
	return nil
}

// Stop halts polling, waits for a running poll to finish and detaches
// from the session
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
	p.unsubscribe()
}

// tick is one scheduled poll. Failures are kept in the snapshot and never
// raised as notices; session expiry still tears the session down.
func (p *Poller) tick() {
	if p.sess.State() != session.StateAuthenticated {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	if err := p.Refresh(apiclient.Silent(ctx)); err != nil {
		p.logger.Warn().Err(err).Msg("notification poll failed")
	}
}

// Refresh fetches the feed now
func (p *Poller) Refresh(ctx context.Context) error {
	role, err := p.role()
	if err != nil {
		return err
	}
	owner := ""
	if u := p.sess.Current(); u != nil {
		owner = u.ID
	}
	p.mu.RLock()
	gen := p.gen
	p.mu.RUnlock()

	resp, err := p.api.RoleNotifications(ctx, role)
	if err != nil {
		p.setErr(gen, err)
		return fmt.Errorf("fetch notifications: %w", err)
	}

	items, err := decodeFeed(resp)
	if err != nil {
		p.setErr(gen, err)
		return err
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		p.logger.Debug().Msg("session changed during fetch, discarding feed")
		return ErrNotSignedIn
	}
	p.items = items
	p.lastErr = nil
	p.owner = owner
	p.mu.Unlock()

	p.logger.Debug().Str("role", role).Int("count", len(items)).Msg("notifications refreshed")
	p.publish()
	return nil
}

// Snapshot returns a copy of the current feed
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	items := make([]Notification, len(p.items))
	copy(items, p.items)
	return Snapshot{Items: items, Unread: unreadCount(items), Err: p.lastErr}
}

// MarkRead flips the notification to read locally, then tells the server.
// If the server call fails the local change is reverted and the error returned.
func (p *Poller) MarkRead(ctx context.Context, id string) error {
	role, err := p.role()
	if err != nil {
		return err
	}

	revert, ok := p.setRead(id, true)
	if !ok {
		return fmt.Errorf("notification %s: %w", id, ErrUnknownNotification)
	}
	p.publish()

	if _, err := p.api.MarkRoleNotificationRead(ctx, role, id); err != nil {
		revert()
		p.publish()
		p.logger.Warn().Err(err).Str("id", id).Msg("mark read failed, reverted")
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

// setRead updates one item and returns a func restoring its previous value
func (p *Poller) setRead(id string, read bool) (revert func(), ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.items {
		if p.items[i].ID != id {
			continue
		}
		prev := p.items[i].Read
		p.items[i].Read = read
		return func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for j := range p.items {
				if p.items[j].ID == id {
					p.items[j].Read = prev
				}
			}
		}, true
	}
	return nil, false
}

func (p *Poller) role() (string, error) {
	if p.sess.State() != session.StateAuthenticated {
		return "", ErrNotSignedIn
	}
	u := p.sess.Current()
	if u == nil || u.Role == "" {
		return "", ErrNotSignedIn
	}
	return string(u.Role), nil
}

func (p *Poller) setErr(gen int, err error) {
	p.mu.Lock()
	if p.gen == gen {
		p.lastErr = err
	}
	p.mu.Unlock()
}

func (p *Poller) publish() {
	if p.onUpdate != nil {
		p.onUpdate(p.Snapshot())
	}
}

// decodeFeed accepts either a bare array or {"notifications": [...]}
func decodeFeed(resp *apiclient.Response) ([]Notification, error) {
	var items []Notification
	if err := json.Unmarshal(resp.Body, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return wrapped.Notifications, nil
}
