// Package filter holds the per-run exclusion rules applied while
// planning copies: excluded extensions, an optional size ceiling, and
// directory names the scanner should not descend into.
package filter

import (
	"strings"

	"salvage/internal/classify"
)

// Rules is an immutable set of exclusions for one run.
type Rules struct {
	exts     map[string]struct{}
	skipDirs map[string]struct{}
	maxSize  int64
}

// New creates an empty rule set.
func New() *Rules {
	return &Rules{
		exts:     make(map[string]struct{}),
		skipDirs: make(map[string]struct{}),
	}
}

// AddExt excludes an extension ("tmp", ".TMP" and ".tmp" are equivalent).
func (r *Rules) AddExt(ext string) {
	if n := classify.NormalizeExt(ext); n != "" {
		r.exts[n] = struct{}{}
	}
}

// AddExts excludes every extension in a comma-separated list like
// ".exe,.zip".
func (r *Rules) AddExts(list string) {
	for _, e := range strings.Split(list, ",") {
		r.AddExt(e)
	}
}

// AddSkipDir excludes a directory by base name (e.g. "$RECYCLE.BIN").
// Matching is case-insensitive to cope with Windows-origin trees.
func (r *Rules) AddSkipDir(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		r.skipDirs[name] = struct{}{}
	}
}

// SetMaxSize sets the size ceiling in bytes; 0 means unlimited.
func (r *Rules) SetMaxSize(n int64) {
	r.maxSize = n
}

// MaxSize returns the configured ceiling (0 = unlimited).
func (r *Rules) MaxSize() int64 {
	return r.maxSize
}

// ExcludedExt reports whether the extension of name is excluded.
func (r *Rules) ExcludedExt(ext string) bool {
	_, ok := r.exts[classify.NormalizeExt(ext)]
	return ok
}

// TooLarge reports whether size exceeds the configured ceiling.
func (r *Rules) TooLarge(size int64) bool {
	return r.maxSize > 0 && size > r.maxSize
}

// SkipDir reports whether the scanner should skip a directory entirely.
func (r *Rules) SkipDir(name string) bool {
	_, ok := r.skipDirs[strings.ToLower(name)]
	return ok
}

// Empty reports whether no rules are set.
func (r *Rules) Empty() bool {
	return len(r.exts) == 0 && len(r.skipDirs) == 0 && r.maxSize == 0
}

// SystemDirs are directory names that hold OS internals rather than
// user data. Runs with the smart filter enabled never descend into them.
var SystemDirs = []string{
	"$RECYCLE.BIN",
	"System Volume Information",
	"node_modules",
	".Trash",
	".git",
}
