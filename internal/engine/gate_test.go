package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatePauseResume(t *testing.T) {
	t.Parallel()

	g := NewGate()
	require.NoError(t, g.Wait())

	assert.True(t, g.Pause())
	assert.False(t, g.Pause()) // already paused, no transition
	assert.True(t, g.Paused())

	released := make(chan error, 1)
	go func() { released <- g.Wait() }()

	select {
	case <-released:
		t.Fatal("Wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	assert.True(t, g.Resume())
	assert.False(t, g.Resume())

	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after resume")
	}
}

func TestGateCancelReleasesPausedWaiters(t *testing.T) {
	t.Parallel()

	g := NewGate()
	g.Pause()

	released := make(chan error, 1)
	go func() { released <- g.Wait() }()

	g.Cancel()
	g.Cancel() // idempotent

	select {
	case err := <-released:
		assert.ErrorIs(t, err, ErrRunCancelled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after cancel")
	}

	assert.True(t, g.Cancelled())
	assert.ErrorIs(t, g.Wait(), ErrRunCancelled)
}

func TestGatePauseAfterCancelIsNoop(t *testing.T) {
	t.Parallel()

	g := NewGate()
	g.Cancel()
	assert.False(t, g.Pause())
	assert.False(t, g.Resume())
}
