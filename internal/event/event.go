package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	RunStarted Type = iota + 1
	ScanStarted
	HiddenFound
	ScanComplete
	HashProgress
	DuplicateFound
	FileCopied
	FileSkipped
	CopyFailed
	Paused
	Resumed
	DirectoryRemoved
	CleanupFailed
	RunCompleted
	RunCancelled
)

var typeNames = [...]string{
	RunStarted:       "RunStarted",
	ScanStarted:      "ScanStarted",
	HiddenFound:      "HiddenFound",
	ScanComplete:     "ScanComplete",
	HashProgress:     "HashProgress",
	DuplicateFound:   "DuplicateFound",
	FileCopied:       "FileCopied",
	FileSkipped:      "FileSkipped",
	CopyFailed:       "CopyFailed",
	Paused:           "Paused",
	Resumed:          "Resumed",
	DirectoryRemoved: "DirectoryRemoved",
	CleanupFailed:    "CleanupFailed",
	RunCompleted:     "RunCompleted",
	RunCancelled:     "RunCancelled",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single occurrence reported by the engine. Record-class
// events (HiddenFound, DuplicateFound, FileCopied, FileSkipped,
// CopyFailed, DirectoryRemoved, CleanupFailed) are emitted exactly once
// per occurrence so a sink can reconstruct its logs from the stream.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // absolute source path (or directory for cleanup events)
	Dest      string // destination path (FileCopied)
	Original  string // first-seen owner path (DuplicateFound)
	Reason    string // skip reason (FileSkipped)
	Size      int64
	Done      int64 // files processed so far (HashProgress)
	Total     int64 // total files (ScanComplete, HashProgress)
	Error     error // failure cause (CopyFailed, CleanupFailed)
}

// Sink consumes engine events. Handle must not block: the engine calls
// it from the control loop between file operations.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Handle calls f(e).
func (f SinkFunc) Handle(e Event) { f(e) }

// Multi fans an event out to several sinks in order.
type Multi []Sink

// Handle delivers e to every sink in the slice.
func (m Multi) Handle(e Event) {
	for _, s := range m {
		s.Handle(e)
	}
}

// Stamp returns e with Timestamp set to now if unset.
func Stamp(e Event) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e
}
