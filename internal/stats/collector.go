package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks run counters using lock-free atomics. Workers update
// it concurrently; readers take a Snapshot.
type Collector struct {
	scanned     atomic.Int64
	copied      atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	duplicates  atomic.Int64
	hidden      atomic.Int64
	dirsRemoved atomic.Int64
	bytesCopied atomic.Int64
	bytesTotal  atomic.Int64
	startTime   time.Time
}

// NewCollector creates a Collector with the run clock started.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	Scanned     int64
	Copied      int64
	Skipped     int64
	Failed      int64
	Duplicates  int64
	Hidden      int64
	DirsRemoved int64
	BytesCopied int64
	BytesTotal  int64
	Elapsed     time.Duration
}

func (c *Collector) AddScanned(n int64)     { c.scanned.Add(n) }
func (c *Collector) AddCopied(n int64)      { c.copied.Add(n) }
func (c *Collector) AddSkipped(n int64)     { c.skipped.Add(n) }
func (c *Collector) AddFailed(n int64)      { c.failed.Add(n) }
func (c *Collector) AddDuplicates(n int64)  { c.duplicates.Add(n) }
func (c *Collector) AddHidden(n int64)      { c.hidden.Add(n) }
func (c *Collector) AddDirsRemoved(n int64) { c.dirsRemoved.Add(n) }
func (c *Collector) AddBytesCopied(n int64) { c.bytesCopied.Add(n) }
func (c *Collector) AddBytesTotal(n int64)  { c.bytesTotal.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Scanned:     c.scanned.Load(),
		Copied:      c.copied.Load(),
		Skipped:     c.skipped.Load(),
		Failed:      c.failed.Load(),
		Duplicates:  c.duplicates.Load(),
		Hidden:      c.hidden.Load(),
		DirsRemoved: c.dirsRemoved.Load(),
		BytesCopied: c.bytesCopied.Load(),
		BytesTotal:  c.bytesTotal.Load(),
		Elapsed:     c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Speed returns the average copy throughput in bytes/sec over the run.
func (c *Collector) Speed() float64 {
	el := c.Elapsed().Seconds()
	if el <= 0 {
		return 0
	}
	return float64(c.bytesCopied.Load()) / el
}

// ETA estimates remaining time from average speed and remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.Speed()
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Balanced reports whether the completion invariant
// scanned == copied + skipped + failed holds for this snapshot.
func (s Snapshot) Balanced() bool {
	return s.Scanned == s.Copied+s.Skipped+s.Failed
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d copied=%d skipped=%d failed=%d duplicates=%d hidden=%d removed_dirs=%d bytes=%d",
		s.Scanned, s.Copied, s.Skipped, s.Failed,
		s.Duplicates, s.Hidden, s.DirsRemoved, s.BytesCopied,
	)
}
