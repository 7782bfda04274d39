package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage/internal/event"
	"salvage/internal/stats"
)

func TestSweeperRemovesEmptyDirsBottomUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// a/b/c is an empty chain; d holds a file and must survive.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "keep.txt"), []byte("x"), 0644))

	sink := &recorder{}
	collector := stats.NewCollector()
	s := &Sweeper{Root: root, Gate: NewGate(), Stats: collector, Sink: sink}
	require.NoError(t, s.Sweep())

	// The whole empty chain went, child first, parent after.
	_, err := os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(root, "d", "keep.txt"))
	assert.NoError(t, err)

	assert.EqualValues(t, 3, collector.Snapshot().DirsRemoved)
	assert.Len(t, sink.ofType(event.DirectoryRemoved), 3)
}

func TestSweeperNeverRemovesRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Root is entirely empty and still must survive the sweep.
	s := &Sweeper{Root: root, Gate: NewGate(), Stats: stats.NewCollector(), Sink: &recorder{}}
	require.NoError(t, s.Sweep())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSweeperStopsOnCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "x"), 0755))

	gate := NewGate()
	gate.Cancel()
	s := &Sweeper{Root: root, Gate: gate, Stats: stats.NewCollector(), Sink: &recorder{}}
	assert.ErrorIs(t, s.Sweep(), ErrRunCancelled)

	_, err := os.Stat(filepath.Join(root, "x"))
	assert.NoError(t, err, "nothing removed after cancel")
}

func TestSweeperReportsFailuresAndContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission test needs a non-root user")
	}
	t.Parallel()

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(filepath.Join(locked, "inner"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	sink := &recorder{}
	collector := stats.NewCollector()
	s := &Sweeper{Root: root, Gate: NewGate(), Stats: collector, Sink: sink}
	require.NoError(t, s.Sweep())

	// The unrelated empty dir still went away.
	_, err := os.Stat(filepath.Join(root, "empty"))
	assert.True(t, os.IsNotExist(err))

	assert.NotEmpty(t, sink.ofType(event.CleanupFailed))
	// Cleanup failures never count against the file totals.
	assert.EqualValues(t, 0, collector.Snapshot().Failed)
}
