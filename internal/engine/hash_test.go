package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := []byte("the quick brown fox")
	require.NoError(t, os.WriteFile(path, content, 0644))

	got, err := DigestFile(context.Background(), path)
	require.NoError(t, err)

	want := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestDigestFileEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := DigestFile(context.Background(), path)
	require.NoError(t, err)

	want := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestDigestFileMissing(t *testing.T) {
	t.Parallel()

	_, err := DigestFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestDigestFileCancelled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4<<20), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DigestFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashPoolDigestsAllSubmitted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := map[string]string{}
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		path := filepath.Join(dir, name)
		content := []byte(name + " content")
		require.NoError(t, os.WriteFile(path, content, 0644))
		sum := sha256.Sum256(content)
		want[path] = hex.EncodeToString(sum[:])
	}

	pool, err := NewHashPool(2, time.Minute)
	require.NoError(t, err)
	pool.Start(context.Background())

	go func() {
		for path := range want {
			pool.Submit(HashTask{Path: path})
		}
		pool.Close()
	}()

	got := map[string]string{}
	for res := range pool.Results() {
		require.NoError(t, res.Err)
		got[res.Path] = res.Digest
	}
	assert.Equal(t, want, got)
}

func TestHashPoolReportsPerFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.bin")
	require.NoError(t, os.WriteFile(good, []byte("ok"), 0644))
	missing := filepath.Join(dir, "missing.bin")

	pool, err := NewHashPool(1, time.Minute)
	require.NoError(t, err)
	pool.Start(context.Background())

	go func() {
		pool.Submit(HashTask{Path: good})
		pool.Submit(HashTask{Path: missing})
		pool.Close()
	}()

	var okCount, errCount int
	for res := range pool.Results() {
		if res.Err != nil {
			errCount++
			assert.Equal(t, missing, res.Path)
		} else {
			okCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, errCount)
}
