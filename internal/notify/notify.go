package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of a notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier surfaces notices to the user
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a plain function to Notifier
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Discard drops every notice
var Discard Notifier = Func(func(context.Context, Notice) {})

// Error is shorthand for an error-level notice stamped now
func Error(message string) Notice {
	return Notice{Level: LevelError, Message: message, At: time.Now()}
}

// Info is shorthand for an info-level notice stamped now
func Info(message string) Notice {
	return Notice{Level: LevelInfo, Message: message, At: time.Now()}
}

// Logger writes notices through zerolog
type Logger struct {
	Log zerolog.Logger
}

// NewLogger returns a Notifier logging with l
func NewLogger(l zerolog.Logger) *Logger {
	return &Logger{Log: l.With().Str("component", "notice").Logger()}
}

func (l *Logger) Notify(_ context.Context, n Notice) {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.Log.Error()
	case LevelWarning:
		ev = l.Log.Warn()
	default:
		ev = l.Log.Info()
	}
	ev.Str("level_hint", string(n.Level)).Msg(n.Message)
}

// Recorder keeps every notice in memory
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Messages returns the recorded messages in order
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}
	return out
}

// Reset forgets all recorded notices
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}
