package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"salvage/internal/config"
)

// Planner turns FileRecords into CopyPlans: it applies the skip policy
// and computes a collision-free destination path for each copy. Not safe
// for concurrent use; the runner plans sequentially in scan order.
type Planner struct {
	cfg     *config.Config
	dups    *DuplicateIndex
	claimed map[string]struct{}
	exists  func(string) bool
}

// NewPlanner creates a planner for one run. dups may be nil when hashing
// is disabled.
func NewPlanner(cfg *config.Config, dups *DuplicateIndex) *Planner {
	return &Planner{
		cfg:     cfg,
		dups:    dups,
		claimed: make(map[string]struct{}),
		exists: func(path string) bool {
			_, err := os.Lstat(path)
			return err == nil
		},
	}
}

// Plan decides what to do with one file. Policy, first match wins:
// excluded extension, over size limit, hidden (when hidden files are
// excluded), analysis-only mode, flagged duplicate, then copy.
func (p *Planner) Plan(rec FileRecord) CopyPlan {
	ext := filepath.Ext(rec.Path)

	switch {
	case p.cfg.Rules.ExcludedExt(ext):
		return CopyPlan{Record: rec, Skip: SkipExcludedType}
	case p.cfg.Rules.TooLarge(rec.Size):
		return CopyPlan{Record: rec, Skip: SkipTooLarge}
	case rec.Hidden && !p.cfg.IncludeHidden:
		return CopyPlan{Record: rec, Skip: SkipHidden}
	case p.cfg.Mode == config.AnalyzeOnly:
		return CopyPlan{Record: rec, Skip: SkipAnalysisOnly}
	case p.cfg.HashDedup && p.isDuplicate(rec.Path):
		return CopyPlan{Record: rec, Skip: SkipDuplicate}
	}

	return CopyPlan{Record: rec, Dest: p.destPath(rec)}
}

func (p *Planner) isDuplicate(path string) bool {
	if p.dups == nil {
		return false
	}
	_, ok := p.dups.DuplicateOf(path)
	return ok
}

// destPath builds root / [date] / [category] / [from_<top>] / name,
// with the from_<top> segment moved before the category when configured,
// then disambiguates collisions.
func (p *Planner) destPath(rec FileRecord) string {
	dir := p.cfg.Dest

	if p.cfg.DateFolders {
		year := rec.ModTime.Format("2006")
		dir = filepath.Join(dir, year)
		if p.cfg.DateGranularity == config.Month {
			dir = filepath.Join(dir, rec.ModTime.Format("2006-01"))
		}
	}

	prefix := "from_" + rec.TopFolder
	if p.cfg.SourcePrefix && p.cfg.TopBeforeCategory {
		dir = filepath.Join(dir, prefix)
	}
	if p.cfg.CategoryFolders {
		dir = filepath.Join(dir, rec.Category.String())
	}
	if p.cfg.SourcePrefix && !p.cfg.TopBeforeCategory {
		dir = filepath.Join(dir, prefix)
	}

	return p.claim(dir, filepath.Base(rec.Path))
}

// claim returns a destination path under dir that is unique both against
// paths planned earlier in this run and against files already on disk,
// appending " (N)" before the extension when needed.
func (p *Planner) claim(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if p.free(candidate) {
		p.claimed[candidate] = struct{}{}
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if p.free(candidate) {
			p.claimed[candidate] = struct{}{}
			return candidate
		}
	}
}

func (p *Planner) free(path string) bool {
	if _, taken := p.claimed[path]; taken {
		return false
	}
	return !p.exists(path)
}
