package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// FailureKind classifies a per-file failure. All kinds except KindConfig
// are local: the file is recorded and the run continues.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindScan                // directory unreadable, subtree skipped
	KindRead                // source unreadable during hash or copy
	KindWrite               // destination unwritable
	KindPathTooLong         // destination path exceeds the platform limit
	KindConfig              // invalid run configuration, aborts before Running
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindScan:        "scan",
	KindRead:        "read",
	KindWrite:       "write",
	KindPathTooLong: "path-too-long",
	KindConfig:      "config",
}

func (k FailureKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// FailureRecord captures one per-file failure. Appended during a run,
// never removed; each record maps 1:1 to a CopyFailed event.
type FailureRecord struct {
	Path  string
	Kind  FailureKind
	Cause string
}

func (f FailureRecord) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Path, f.Cause)
}

// ErrRunCancelled is returned from checkpoints once Cancel has been
// requested.
var ErrRunCancelled = errors.New("run cancelled")

// maxDestPath is the longest destination path the executor will attempt.
// Exceeding it is surfaced as KindPathTooLong before any I/O happens.
const maxDestPath = 4096

// scanFailure records an unreadable directory.
func scanFailure(path string, err error) FailureRecord {
	return FailureRecord{Path: path, Kind: KindScan, Cause: err.Error()}
}

// readFailure records a source-side error, refining the kind from errno
// where possible.
func readFailure(path string, err error) FailureRecord {
	return FailureRecord{Path: path, Kind: refineKind(KindRead, err), Cause: err.Error()}
}

// writeFailure records a destination-side error.
func writeFailure(path string, err error) FailureRecord {
	return FailureRecord{Path: path, Kind: refineKind(KindWrite, err), Cause: err.Error()}
}

// refineKind upgrades a default kind based on the underlying error.
func refineKind(dflt FailureKind, err error) FailureKind {
	switch {
	case errors.Is(err, unix.ENAMETOOLONG):
		return KindPathTooLong
	case errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT) || errors.Is(err, unix.EROFS):
		return KindWrite
	case errors.Is(err, context.DeadlineExceeded):
		// Unresponsive source hit the per-file timeout.
		return KindRead
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist):
		return dflt
	default:
		return dflt
	}
}
