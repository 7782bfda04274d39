package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage/internal/classify"
	"salvage/internal/filter"
)

func collectScan(t *testing.T, root string, rules *filter.Rules) ([]FileRecord, []FailureRecord) {
	t.Helper()

	recCh, failCh := NewScanner(root, rules).Scan(context.Background())
	var records []FileRecord
	var fails []FailureRecord
	for recCh != nil || failCh != nil {
		select {
		case rec, ok := <-recCh:
			if !ok {
				recCh = nil
				continue
			}
			records = append(records, rec)
		case f, ok := <-failCh:
			if !ok {
				failCh = nil
				continue
			}
			fails = append(fails, f)
		}
	}
	return records, fails
}

func TestScannerWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos", "2019"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "music"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "2019", "a.jpg"), []byte("img"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "music", "b.mp3"), []byte("snd"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("doc"), 0644))

	records, fails := collectScan(t, root, nil)
	require.Empty(t, fails)
	require.Len(t, records, 3)

	byName := map[string]FileRecord{}
	for _, rec := range records {
		byName[filepath.Base(rec.Path)] = rec
	}

	assert.Equal(t, "photos", byName["a.jpg"].TopFolder)
	assert.Equal(t, classify.Images, byName["a.jpg"].Category)
	assert.Equal(t, filepath.Join("photos", "2019", "a.jpg"), byName["a.jpg"].RelPath)

	assert.Equal(t, "music", byName["b.mp3"].TopFolder)
	assert.Equal(t, classify.Audio, byName["b.mp3"].Category)

	// Files directly under the root get the sentinel top folder.
	assert.Equal(t, TopFolderRoot, byName["readme.txt"].TopFolder)
	assert.Equal(t, classify.Documents, byName["readme.txt"].Category)
}

func TestScannerHiddenPropagation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "sub", "plain.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".dotfile"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.txt"), []byte("x"), 0644))

	records, fails := collectScan(t, root, nil)
	require.Empty(t, fails)
	require.Len(t, records, 3)

	hidden := map[string]bool{}
	for _, rec := range records {
		hidden[filepath.Base(rec.Path)] = rec.Hidden
	}
	// A visibly named file deep inside a dot directory is still hidden.
	assert.True(t, hidden["plain.txt"])
	assert.True(t, hidden[".dotfile"])
	assert.False(t, hidden["visible.txt"])
}

func TestScannerSkipsSymlinksAndFilteredDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "keep.txt"), filepath.Join(root, "link.txt")))

	rules := filter.New()
	rules.AddSkipDir("node_modules")

	records, fails := collectScan(t, root, rules)
	require.Empty(t, fails)
	require.Len(t, records, 1)
	assert.Equal(t, "keep.txt", filepath.Base(records[0].Path))
}

func TestScannerUnreadableDirReportedNotFatal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission test needs a non-root unix user")
	}
	t.Parallel()

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(locked, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "inside.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "outside.txt"), []byte("x"), 0644))
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	records, fails := collectScan(t, root, nil)

	require.Len(t, fails, 1)
	assert.Equal(t, KindScan, fails[0].Kind)
	assert.Equal(t, locked, fails[0].Path)

	// The sibling file still made it through.
	require.Len(t, records, 1)
	assert.Equal(t, "outside.txt", filepath.Base(records[0].Path))
}

func TestScannerDeterministicOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	first, _ := collectScan(t, root, nil)
	second, _ := collectScan(t, root, nil)
	require.Equal(t, first, second)

	var names []string
	for _, rec := range first {
		names = append(names, filepath.Base(rec.Path))
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, names)
}
