package notify

import (
	"context"
	"sync"
	"time"
)

// Deduper drops a notice when an identical one (same level and message) was
// forwarded less than window ago. A dashboard firing several requests that
// all fail the same way produces a single notice.
type Deduper struct {
	next   Notifier
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[Notice]time.Time
}

// Dedupe wraps next
func Dedupe(next Notifier, window time.Duration) *Deduper {
	return &Deduper{
		next:   next,
		window: window,
		now:    time.Now,
		seen:   make(map[Notice]time.Time),
	}
}

func (d *Deduper) Notify(ctx context.Context, n Notice) {
	key := Notice{Level: n.Level, Message: n.Message}
	now := d.now()

	d.mu.Lock()
	last, ok := d.seen[key]
	if ok && now.Sub(last) < d.window {
		d.mu.Unlock()
		return
	}
	d.seen[key] = now
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}
	d.mu.Unlock()

	d.next.Notify(ctx, n)
}
