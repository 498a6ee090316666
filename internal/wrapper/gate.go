package wrapper

import (
	"context"
	"sync"
)

// Gate is a sticky readiness signal: it flips to ready the first time the
// child produces output and stays ready for the rest of the wrapper run.
// Input delivery waits on it so keystrokes are not written into a PTY whose
// child has not started drawing yet.
type Gate struct {
	mu    sync.Mutex
	ready bool
	ch    chan struct{}
}

// NewGate returns a gate in the not-ready state.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Signal transitions the gate to ready and releases all waiters. It is
// called from the PTY read path, so it must never block: when the lock is
// contended the call is skipped and a later chunk signals instead.
func (g *Gate) Signal() {
	if !g.mu.TryLock() {
		return
	}
	defer g.mu.Unlock()

	if !g.ready {
		g.ready = true
		close(g.ch)
	}
}

// AwaitReady blocks until the gate is ready or the context is done.
func (g *Gate) AwaitReady(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports the current state without blocking.
func (g *Gate) Ready() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}
