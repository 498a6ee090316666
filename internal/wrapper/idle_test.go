package wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleMonitorPingResetsClock(t *testing.T) {
	m := NewIdleMonitor(50 * time.Millisecond)
	assert.False(t, m.IsIdle())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, m.IsIdle())

	m.Ping()
	assert.False(t, m.IsIdle())
}

func TestIdleMonitorWatchConfirms(t *testing.T) {
	m := NewIdleMonitor(10 * time.Millisecond)
	m.tick = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	calls := 0
	idle := m.Watch(ctx, func() bool {
		calls++
		return true
	})
	assert.True(t, idle)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestIdleMonitorWatchVetoKeepsWatching(t *testing.T) {
	m := NewIdleMonitor(10 * time.Millisecond)
	m.tick = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The first two verdicts veto the idle exit; the third confirms.
	calls := 0
	idle := m.Watch(ctx, func() bool {
		calls++
		return calls >= 3
	})
	assert.True(t, idle)
	assert.Equal(t, 3, calls)
}

func TestIdleMonitorWatchStopsOnContext(t *testing.T) {
	m := NewIdleMonitor(time.Hour)
	m.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	idle := m.Watch(ctx, func() bool {
		t.Fatal("verdict should not be consulted before the timeout")
		return true
	})
	assert.False(t, idle)
}
