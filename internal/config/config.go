// Package config defines the immutable per-run configuration and its
// validation. A Config is supplied once at run start; the engine never
// mutates it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"salvage/internal/filter"
)

// Mode selects what a run does.
type Mode int

const (
	// Saver organizes rescued files by date/category/source folder.
	Saver Mode = iota
	// Cleanup declutters noisy source locations and removes emptied
	// directories afterwards.
	Cleanup
	// AnalyzeOnly computes and reports duplicates without copying.
	AnalyzeOnly
)

func (m Mode) String() string {
	switch m {
	case Saver:
		return "saver"
	case Cleanup:
		return "cleanup"
	case AnalyzeOnly:
		return "dedup"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name as given on the command line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saver", "save":
		return Saver, nil
	case "cleanup", "clean":
		return Cleanup, nil
	case "dedup", "analyze", "duplicates":
		return AnalyzeOnly, nil
	default:
		return Saver, fmt.Errorf("unknown mode %q (saver, cleanup, dedup)", s)
	}
}

// Granularity controls the date-folder layout.
type Granularity int

const (
	// Year nests copies under "2023/".
	Year Granularity = iota
	// Month nests copies under "2023/2023-04/".
	Month
)

// ParseGranularity parses "year" or "month".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "year":
		return Year, nil
	case "month", "year-month":
		return Month, nil
	default:
		return Month, fmt.Errorf("unknown date granularity %q (year, month)", s)
	}
}

// Config describes one run. Immutable for the run's duration.
type Config struct {
	Mode   Mode
	Source string
	Dest   string

	DateFolders       bool
	DateGranularity   Granularity
	CategoryFolders   bool
	SourcePrefix      bool // add a from_<topfolder> segment
	TopBeforeCategory bool // from_<top> before the category segment
	HashDedup         bool
	RemoveEmptyDirs   bool
	IncludeHidden     bool
	SmartFilter       bool // skip OS-internal directories entirely
	Resume            bool // reuse the checkpoint journal of a prior run
	PreserveTimes     bool

	Workers     int
	MaxRetries  int
	FileTimeout time.Duration
	BWLimit     int64 // bytes/sec, 0 = unlimited

	Rules *filter.Rules
}

// ValidationError reports an invalid Config. It aborts the run before
// any copying starts.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

// Normalize fills defaults for zero-valued tuning knobs and resolves
// paths to absolute form.
func (c *Config) Normalize() error {
	src, err := filepath.Abs(c.Source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	c.Source = src

	if c.Dest != "" {
		dst, err := filepath.Abs(c.Dest)
		if err != nil {
			return fmt.Errorf("resolve destination: %w", err)
		}
		c.Dest = dst
	}

	if c.Workers <= 0 {
		c.Workers = min(runtime.NumCPU(), 8)
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.FileTimeout <= 0 {
		c.FileTimeout = 5 * time.Minute
	}
	if c.Rules == nil {
		c.Rules = filter.New()
	}
	if c.SmartFilter {
		for _, d := range filter.SystemDirs {
			c.Rules.AddSkipDir(d)
		}
	}
	// AnalyzeOnly implies hashing: duplicates are its whole output.
	if c.Mode == AnalyzeOnly {
		c.HashDedup = true
	}
	return nil
}

// Validate checks the configuration. Any error returned here is fatal
// to the run before it transitions to Running.
func (c *Config) Validate() error {
	info, err := os.Stat(c.Source)
	if err != nil {
		return &ValidationError{Field: "source", Msg: err.Error()}
	}
	if !info.IsDir() {
		return &ValidationError{Field: "source", Msg: "not a directory"}
	}

	if c.Mode == AnalyzeOnly {
		return nil // no destination needed
	}

	if c.Dest == "" {
		return &ValidationError{Field: "destination", Msg: "required unless mode is dedup"}
	}
	if c.Dest == c.Source {
		return &ValidationError{Field: "destination", Msg: "same as source"}
	}
	if within(c.Dest, c.Source) {
		return &ValidationError{Field: "destination", Msg: "inside the source tree"}
	}
	if within(c.Source, c.Dest) {
		return &ValidationError{Field: "source", Msg: "inside the destination tree"}
	}
	return nil
}

// DestFreeSpace returns the free bytes on the destination volume, or 0
// if it cannot be determined. Used for the preflight summary; running
// out of space mid-copy is still handled per file as a WriteError.
func (c *Config) DestFreeSpace() uint64 {
	probe := c.Dest
	for probe != "" {
		if usage, err := disk.Usage(probe); err == nil {
			return usage.Free
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}
	return 0
}

// within reports whether path sits at or below root.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
