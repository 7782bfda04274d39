package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorConcurrentAdds(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				c.AddScanned(1)
				c.AddCopied(1)
				c.AddBytesCopied(10)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(800), s.Scanned)
	assert.Equal(t, int64(800), s.Copied)
	assert.Equal(t, int64(8000), s.BytesCopied)
}

func TestSnapshotBalanced(t *testing.T) {
	c := NewCollector()
	c.AddScanned(5)
	c.AddCopied(2)
	c.AddSkipped(2)
	c.AddFailed(1)
	assert.True(t, c.Snapshot().Balanced())

	c.AddScanned(1)
	assert.False(t, c.Snapshot().Balanced())
}

func TestSnapshotString(t *testing.T) {
	c := NewCollector()
	c.AddScanned(3)
	c.AddCopied(2)
	c.AddSkipped(1)
	c.AddDuplicates(1)

	assert.Contains(t, c.Snapshot().String(), "scanned=3 copied=2 skipped=1")
}
