package engine

import "sync"

// Gate is the cooperative pause/cancel token. Workers call Wait at
// file-boundary checkpoints; Wait blocks while paused and returns
// ErrRunCancelled once Cancel has been requested. Pause and cancel are
// therefore never observed mid-copy of a single file.
type Gate struct {
	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool
}

// NewGate creates an open gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Wait blocks while the gate is paused. Returns ErrRunCancelled if the
// run has been cancelled, nil otherwise.
func (g *Gate) Wait() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.cancelled {
		g.cond.Wait()
	}
	if g.cancelled {
		return ErrRunCancelled
	}
	return nil
}

// Pause closes the gate. Returns true if the gate transitioned from
// running to paused.
func (g *Gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused || g.cancelled {
		return false
	}
	g.paused = true
	return true
}

// Resume reopens the gate. Returns true if the gate transitioned from
// paused to running.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused || g.cancelled {
		return false
	}
	g.paused = false
	g.cond.Broadcast()
	return true
}

// Cancel marks the run cancelled and wakes every waiter. Idempotent.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelled {
		return
	}
	g.cancelled = true
	g.cond.Broadcast()
}

// Paused reports whether the gate is currently paused.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused && !g.cancelled
}

// Cancelled reports whether Cancel has been requested.
func (g *Gate) Cancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}
