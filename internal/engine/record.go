package engine

import (
	"time"

	"salvage/internal/classify"
	"salvage/internal/stats"
)

// FileRecord describes one regular file found by the scanner. Immutable
// once emitted; read by every downstream stage without synchronization.
type FileRecord struct {
	Path      string // absolute source path
	RelPath   string // path relative to the scan root
	Size      int64
	ModTime   time.Time
	Category  classify.Category
	Hidden    bool
	TopFolder string // first segment under the scan root, "root" for top-level files
}

// SkipReason explains why a planned file is not copied.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipExcludedType
	SkipTooLarge
	SkipHidden
	SkipAnalysisOnly
	SkipDuplicate
)

var skipNames = [...]string{
	SkipNone:         "",
	SkipExcludedType: "excluded-type",
	SkipTooLarge:     "too-large",
	SkipHidden:       "hidden",
	SkipAnalysisOnly: "analysis-only",
	SkipDuplicate:    "duplicate",
}

func (s SkipReason) String() string {
	if int(s) < len(skipNames) {
		return skipNames[s]
	}
	return ""
}

// CopyPlan is the planner's decision for one FileRecord. Skip == SkipNone
// means copy to Dest; otherwise Dest is empty and Skip carries the reason.
// Consumed exactly once by the executor.
type CopyPlan struct {
	Record FileRecord
	Dest   string
	Skip   SkipReason
}

// Copy reports whether the plan is an actual copy.
func (p CopyPlan) Copy() bool { return p.Skip == SkipNone }

// Phase is the run's lifecycle position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseHashing
	PhaseCopying
	PhaseCleaning
	PhaseDone
	PhaseCancelled
)

var phaseNames = [...]string{
	PhaseIdle:      "Idle",
	PhaseScanning:  "Scanning",
	PhaseHashing:   "Hashing",
	PhaseCopying:   "Copying",
	PhaseCleaning:  "Cleaning",
	PhaseDone:      "Done",
	PhaseCancelled: "Cancelled",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// Terminal reports whether the phase is an end state.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseCancelled
}

// RunState is a point-in-time snapshot of a run, safe to read while the
// engine is working.
type RunState struct {
	Phase       Phase
	Paused      bool
	CurrentPath string
	Counts      stats.Snapshot
}
