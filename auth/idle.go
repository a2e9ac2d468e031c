package auth

import (
	"sync"
	"time"
)

// IdleTimer fires a callback after a period of inactivity. It backs the
// auto-lock behavior: the callback is expected to run the same full
// session-clear path as an explicit logout.
type IdleTimer struct {
	mu      sync.Mutex
	d       time.Duration
	timer   *time.Timer
	onIdle  func()
	stopped bool
}

// NewIdleTimer creates a stopped timer; call Reset to arm it.
func NewIdleTimer(d time.Duration, onIdle func()) *IdleTimer {
	return &IdleTimer{d: d, onIdle: onIdle}
}

// Reset re-arms the timer for a full idle period. Call on every user
// interaction.
func (t *IdleTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.d, t.fire)
}

// Stop disarms the timer permanently.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *IdleTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.timer = nil
	t.mu.Unlock()
	t.onIdle()
}
