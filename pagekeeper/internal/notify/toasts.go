package notify

import (
	"context"
	"sync"
	"time"
)

// Toasts holds recent notices until they auto-dismiss. It is the sink the
// HTTP surface reads from.
type Toasts struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	items []Notice
	now   func() time.Time
}

// NewToasts creates a board whose notices expire after ttl (default 3s).
// At most 50 notices are kept.
func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &Toasts{ttl: ttl, max: 50, now: time.Now}
}

func (t *Toasts) Notify(_ context.Context, n Notice) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.At.IsZero() {
		n.At = t.now().UTC()
	}
	t.items = append(t.items, n)
	if len(t.items) > t.max {
		t.items = append(t.items[:0], t.items[len(t.items)-t.max:]...)
	}
	return nil
}

// Active returns the notices that have not yet expired, oldest first.
func (t *Toasts) Active() []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	live := t.items[:0]
	for _, n := range t.items {
		if n.At.After(cutoff) {
			live = append(live, n)
		}
	}
	t.items = live
	return append([]Notice(nil), live...)
}

func (t *Toasts) Close() error { return nil }
