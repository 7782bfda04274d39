package ui

import (
	"fmt"

	"salvage/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  copied 48,917  size 2.1 GiB  skipped 312  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.Failed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  copied %s  size %s  skipped %s  time %s",
		icon,
		FormatCount(snap.Copied),
		FormatBytes(snap.BytesCopied),
		FormatCount(snap.Skipped),
		FormatDuration(snap.Elapsed),
	)

	if snap.Duplicates > 0 {
		base += fmt.Sprintf("  duplicates %s", FormatCount(snap.Duplicates))
	}
	if snap.DirsRemoved > 0 {
		base += fmt.Sprintf("  dirs removed %s", FormatCount(snap.DirsRemoved))
	}

	base += fmt.Sprintf("  errors %d", snap.Failed)
	return base
}
