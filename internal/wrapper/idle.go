package wrapper

import (
	"context"
	"sync"
	"time"
)

// IdleMonitor tracks time since the last observed activity. Activity is any
// decoded output chunk or any byte injected into the child's stdin.
type IdleMonitor struct {
	timeout time.Duration
	tick    time.Duration

	mu           sync.Mutex
	lastActivity time.Time
}

// NewIdleMonitor creates a monitor with the given timeout. The caller is
// expected to skip creating one entirely when no timeout is configured.
func NewIdleMonitor(timeout time.Duration) *IdleMonitor {
	return &IdleMonitor{
		timeout:      timeout,
		tick:         time.Second,
		lastActivity: time.Now(),
	}
}

// Ping resets the idle clock to now.
func (m *IdleMonitor) Ping() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// IsIdle reports whether the timeout has elapsed since the last activity.
func (m *IdleMonitor) IsIdle() bool {
	m.mu.Lock()
	last := m.lastActivity
	m.mu.Unlock()
	return time.Since(last) >= m.timeout
}

// Watch ticks until the idle timeout elapses and onIdle confirms the session
// is really idle. onIdle may veto (return false) when the transcript shows
// the child is still working; monitoring then continues. Watch returns true
// when idle was confirmed, false when the context ended first.
func (m *IdleMonitor) Watch(ctx context.Context, onIdle func() bool) bool {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if m.IsIdle() && onIdle() {
				return true
			}
		}
	}
}
