package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	r.Notify(ctx, Error("one"))
	r.Notify(ctx, Info("two"))

	assert.Equal(t, []string{"one", "two"}, r.Messages())
	assert.Equal(t, LevelError, r.Notices()[0].Level)

	r.Reset()
	assert.Empty(t, r.Notices())
}

func TestDedupe_CollapsesWithinWindow(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	d := Dedupe(&r, 2*time.Second)
	d.now = func() time.Time { return clock }

	d.Notify(ctx, Error("Network error. Please check your connection."))
	d.Notify(ctx, Error("Network error. Please check your connection."))
	d.Notify(ctx, Error("Server error. Please try again later."))
	assert.Len(t, r.Notices(), 2)

	clock = clock.Add(3 * time.Second)
	d.Notify(ctx, Error("Network error. Please check your connection."))
	assert.Len(t, r.Notices(), 3)
}

func TestDedupe_LevelIsPartOfIdentity(t *testing.T) {
	var r Recorder
	d := Dedupe(&r, time.Minute)

	d.Notify(context.Background(), Error("saved"))
	d.Notify(context.Background(), Info("saved"))
	assert.Len(t, r.Notices(), 2)
}

func TestLoggerNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogger(zerolog.New(&buf))

	n.Notify(context.Background(), Error("boom"))

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"message":"boom"`)
	assert.Contains(t, buf.String(), `"component":"notice"`)
}
