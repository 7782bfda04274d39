package engine

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"salvage/internal/event"
	"salvage/internal/stats"
)

// Sweeper removes directories of the source tree that are empty once
// the copy phase has drained them. The source root itself is never
// removed, even when it ends up empty.
type Sweeper struct {
	Root  string
	Gate  *Gate
	Stats *stats.Collector
	Sink  event.Sink
}

// Sweep walks the tree below Root and removes empty directories,
// deepest first, so a directory whose only contents were empty
// subdirectories is itself removed in the same pass.
func (s *Sweeper) Sweep() error {
	var dirs []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.fail(path, err)
			return fs.SkipDir
		}
		if d.IsDir() && path != s.Root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Longest path first puts children ahead of their parents.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		if err := s.Gate.Wait(); err != nil {
			return err
		}
		s.remove(dir)
	}
	return nil
}

func (s *Sweeper) remove(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return // a deeper pass already took it, or it never settled
		}
		s.fail(dir, err)
		return
	}
	if len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		s.fail(dir, err)
		return
	}
	s.Stats.AddDirsRemoved(1)
	s.Sink.Handle(event.Stamp(event.Event{
		Type: event.DirectoryRemoved,
		Path: dir,
	}))
}

// fail records a cleanup problem without aborting the sweep. Cleanup
// failures are reported but never counted against the file totals.
func (s *Sweeper) fail(path string, err error) {
	s.Sink.Handle(event.Stamp(event.Event{
		Type:  event.CleanupFailed,
		Path:  path,
		Error: err,
	}))
}
