package platform

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFixture(t *testing.T, size int64) (src, dst *os.File, data []byte) {
	t.Helper()
	dir := t.TempDir()

	data = make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(srcPath, data, 0644))

	src, err = os.Open(srcPath)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	dst, err = os.Create(filepath.Join(dir, "dst.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })

	return src, dst, data
}

func TestCopyWholeFile(t *testing.T) {
	src, dst, data := copyFixture(t, 256*1024)

	written, _, err := Copy(Request{Src: src, Dst: dst, Size: int64(len(data))})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), written)

	got, err := os.ReadFile(dst.Name())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestCopyEmptyFile(t *testing.T) {
	src, dst, _ := copyFixture(t, 0)

	written, _, err := Copy(Request{Src: src, Dst: dst, Size: 0})
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestCopyProgressCallback(t *testing.T) {
	src, dst, data := copyFixture(t, 300*1024)

	var total int64
	calls := 0
	_, _, err := Copy(Request{
		Src:       src,
		Dst:       dst,
		Size:      int64(len(data)),
		ChunkSize: 64 * 1024,
		Progress: func(n int64) error {
			calls++
			total += n
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), total)
	assert.GreaterOrEqual(t, calls, 5)
}

func TestCopyProgressAbort(t *testing.T) {
	src, dst, data := copyFixture(t, 300*1024)

	abort := errors.New("stop here")
	written, _, err := Copy(Request{
		Src:       src,
		Dst:       dst,
		Size:      int64(len(data)),
		ChunkSize: 64 * 1024,
		Progress:  func(int64) error { return abort },
	})
	require.ErrorIs(t, err, abort)
	assert.Less(t, written, int64(len(data)))
}

func TestCopyReadWritePath(t *testing.T) {
	src, dst, data := copyFixture(t, 128*1024)

	written, err := copyReadWrite(Request{Src: src, Dst: dst, Size: int64(len(data))})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), written)

	got, err := os.ReadFile(dst.Name())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}
