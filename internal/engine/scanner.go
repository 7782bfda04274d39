package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"salvage/internal/classify"
	"salvage/internal/filter"
)

// TopFolderRoot is the top-folder name assigned to files that sit
// directly under the scan root.
const TopFolderRoot = "root"

// Scanner walks a source root in a single depth-first pass, emitting a
// lazy sequence of FileRecords. Symlinks are never followed; unreadable
// directories are reported as failures and skipped without aborting the
// traversal.
type Scanner struct {
	root    string
	rules   *filter.Rules
	records chan FileRecord
	fails   chan FailureRecord
}

// NewScanner creates a scanner for root. rules supplies directory
// exclusions (the smart filter); it may be nil.
func NewScanner(root string, rules *filter.Rules) *Scanner {
	if rules == nil {
		rules = filter.New()
	}
	return &Scanner{
		root:    root,
		rules:   rules,
		records: make(chan FileRecord, 64),
		fails:   make(chan FailureRecord, 16),
	}
}

// Scan starts the traversal and returns the record and failure channels.
// The caller must consume both until they close. Each run gets a fresh
// Scanner; a scan is restartable per run, not resumable mid-pass.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileRecord, <-chan FailureRecord) {
	go func() {
		defer close(s.records)
		defer close(s.fails)
		s.walk(ctx, s.root, TopFolderRoot, false)
	}()
	return s.records, s.fails
}

func (s *Scanner) walk(ctx context.Context, dir, top string, hidden bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directory: record and continue with siblings.
		select {
		case s.fails <- scanFailure(dir, err):
		case <-ctx.Done():
		}
		return
	}

	// os.ReadDir sorts by name, so scan order is deterministic.
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		name := entry.Name()
		path := filepath.Join(dir, name)
		entryHidden := hidden || strings.HasPrefix(name, ".")

		switch {
		case entry.IsDir():
			if s.rules.SkipDir(name) {
				continue
			}
			childTop := top
			if dir == s.root {
				childTop = name
			}
			s.walk(ctx, path, childTop, entryHidden)

		case entry.Type()&os.ModeSymlink != 0:
			// Never followed: avoids cycles and double visits.
			continue

		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				select {
				case s.fails <- scanFailure(path, err):
				case <-ctx.Done():
					return
				}
				continue
			}
			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				select {
				case s.fails <- scanFailure(path, err):
				case <-ctx.Done():
					return
				}
				continue
			}
			fileTop := top
			if dir == s.root {
				fileTop = TopFolderRoot
			}
			rec := FileRecord{
				Path:      path,
				RelPath:   rel,
				Size:      info.Size(),
				ModTime:   info.ModTime(),
				Category:  classify.Classify(name),
				Hidden:    entryHidden,
				TopFolder: fileTop,
			}
			select {
			case s.records <- rec:
			case <-ctx.Done():
				return
			}

		default:
			// Sockets, devices, FIFOs: not rescue material.
		}
	}
}
