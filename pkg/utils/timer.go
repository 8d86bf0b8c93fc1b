package utils

import (
	"sync"
	"time"
)

// Timer is a cancellable, re-armable one-shot timer. Re-arming supersedes
// the pending fire instead of stacking a second timer, and a fire that was
// cancelled after scheduling never invokes the callback. Used for the
// reconnect delay, resize-settle detection and wheel debounce, where a new
// triggering event must replace the pending one.
type Timer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewTimer creates an unarmed timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Arm schedules fn to run after d, replacing any pending fire.
func (t *Timer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		live := t.gen == gen
		if live {
			t.timer = nil
		}
		t.mu.Unlock()
		if live {
			fn()
		}
	})
}

// Cancel stops any pending fire. Safe to call on an unarmed timer.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Pending reports whether a fire is scheduled and not yet delivered.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
