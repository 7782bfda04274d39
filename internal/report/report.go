// Package report persists the per-run logs: one file per record class,
// written as the event stream arrives so an interrupted run still
// leaves a usable paper trail.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"salvage/internal/event"
)

// File names inside the report directory.
const (
	ActionsLog    = "actions.log"
	DuplicatesLog = "duplicates.log"
	HiddenLog     = "hidden.log"
	FailuresLog   = "failures.log"
	CleanupLog    = "cleanup.log"
)

// Writer tees engine events into the report logs. It implements
// event.Sink; Handle is safe for concurrent use.
type Writer struct {
	dir string

	mu    sync.Mutex
	files map[string]*logFile
}

type logFile struct {
	f *os.File
	w *bufio.Writer
}

// New creates a report writer rooted at dir. Log files are created
// lazily, so a clean run without hidden files or failures produces no
// empty logs.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Writer{dir: dir, files: make(map[string]*logFile)}, nil
}

// Dir returns the report directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Handle routes one event to its log file. Lifecycle events land in the
// actions log alongside copies and skips.
func (w *Writer) Handle(e event.Event) {
	switch e.Type {
	case event.RunStarted:
		w.line(ActionsLog, e, "run started: %s -> %s", e.Path, e.Dest)
	case event.FileCopied:
		w.line(ActionsLog, e, "copied: %s -> %s (%d bytes)", e.Path, e.Dest, e.Size)
	case event.FileSkipped:
		w.line(ActionsLog, e, "skipped (%s): %s", e.Reason, e.Path)
	case event.DuplicateFound:
		w.line(DuplicatesLog, e, "%s == %s", e.Path, e.Original)
	case event.HiddenFound:
		w.line(HiddenLog, e, "%s (%d bytes)", e.Path, e.Size)
	case event.CopyFailed:
		w.line(FailuresLog, e, "%s: %v", e.Path, e.Error)
	case event.DirectoryRemoved:
		w.line(CleanupLog, e, "removed: %s", e.Path)
	case event.CleanupFailed:
		w.line(CleanupLog, e, "failed: %s: %v", e.Path, e.Error)
	case event.RunCompleted:
		w.line(ActionsLog, e, "run completed: %d files", e.Total)
	case event.RunCancelled:
		w.line(ActionsLog, e, "run cancelled")
	}
}

func (w *Writer) line(name string, e event.Event, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lf, err := w.open(name)
	if err != nil {
		return // reporting must never take the run down
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(lf.w, "%s  %s\n", ts.Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
}

func (w *Writer) open(name string) (*logFile, error) {
	if lf, ok := w.files[name]; ok {
		return lf, nil
	}
	f, err := os.OpenFile(
		filepath.Join(w.dir, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644,
	)
	if err != nil {
		return nil, err
	}
	lf := &logFile{f: f, w: bufio.NewWriter(f)}
	w.files[name] = lf
	return lf, nil
}

// Flush writes buffered lines to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var first error
	for _, lf := range w.files {
		if err := lf.w.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close flushes and closes every open log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var first error
	for name, lf := range w.files {
		if err := lf.w.Flush(); err != nil && first == nil {
			first = err
		}
		if err := lf.f.Close(); err != nil && first == nil {
			first = err
		}
		delete(w.files, name)
	}
	return first
}
