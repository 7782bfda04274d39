// Package platform provides the raw data-copy primitives, picking the
// fastest syscall available and falling back transparently.
package platform

import "os"

// Method identifies which strategy performed a copy.
type Method int

const (
	ReadWrite     Method = iota
	CopyFileRange        // Linux copy_file_range(2)
	Sendfile             // Linux sendfile(2)
)

func (m Method) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	default:
		return "unknown"
	}
}

// defaultChunk caps the bytes moved per syscall so the Progress callback
// runs at a useful frequency.
const defaultChunk = 32 << 20

// Request describes one whole-file copy.
type Request struct {
	Src  *os.File
	Dst  *os.File
	Size int64
	// ChunkSize caps bytes per syscall between Progress calls.
	// Zero selects a sensible default.
	ChunkSize int64
	// Progress, if set, runs after every chunk with the bytes just
	// written. Returning an error aborts the copy; the error is
	// propagated unchanged.
	Progress func(n int64) error
}

func (r Request) chunk() int64 {
	if r.ChunkSize > 0 {
		return r.ChunkSize
	}
	return defaultChunk
}

func (r Request) step(n int64) error {
	if r.Progress == nil {
		return nil
	}
	return r.Progress(n)
}
