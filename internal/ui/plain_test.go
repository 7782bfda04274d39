package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage/internal/event"
	"salvage/internal/stats"
)

func newPlain(verbose bool) (*plainPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{
		Writer:    &out,
		ErrWriter: &errOut,
		Stats:     stats.NewCollector(),
		SrcRoot:   "/mnt/usb",
		Verbose:   verbose,
	})
	return p.(*plainPresenter), &out, &errOut
}

func TestPlainPresenterFileLines(t *testing.T) {
	p, out, _ := newPlain(false)

	p.Handle(event.Event{Type: event.FileCopied, Path: "/mnt/usb/photos/a.jpg", Size: 2048})
	p.Handle(event.Event{Type: event.CopyFailed, Path: "/mnt/usb/bad.bin", Error: errors.New("read: io error")})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "photos/a.jpg")
	assert.Contains(t, lines[0], "2.0 KiB")
	assert.Contains(t, lines[1], "bad.bin")
	assert.Contains(t, lines[1], "io error")
}

func TestPlainPresenterSkipsQuietByDefault(t *testing.T) {
	p, out, _ := newPlain(false)
	p.Handle(event.Event{Type: event.FileSkipped, Path: "/mnt/usb/x.tmp", Reason: "excluded-type"})
	assert.Empty(t, out.String())

	verbose, vout, _ := newPlain(true)
	verbose.Handle(event.Event{Type: event.FileSkipped, Path: "/mnt/usb/x.tmp", Reason: "excluded-type"})
	assert.Contains(t, vout.String(), "skipped (excluded-type)")
}

func TestPlainPresenterScanAndPauseToStderr(t *testing.T) {
	p, out, errOut := newPlain(false)

	p.Handle(event.Event{Type: event.ScanComplete, Total: 1500, Size: 1 << 30})
	p.Handle(event.Event{Type: event.Paused})
	p.Handle(event.Event{Type: event.Resumed})

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "scanned 1,500 files")
	assert.Contains(t, errOut.String(), "paused")
	assert.Contains(t, errOut.String(), "resumed")
}

func TestQuietPresenterProducesNothing(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})
	p.Start()
	p.Handle(event.Event{Type: event.FileCopied, Path: "/a"})
	p.Stop()
	assert.Empty(t, p.Summary())
}

func TestCompletionSummary(t *testing.T) {
	snap := stats.Snapshot{
		Copied:      1200,
		Skipped:     34,
		Failed:      0,
		Duplicates:  12,
		BytesCopied: 2 << 30,
	}
	line := CompletionSummary(snap)
	assert.Contains(t, line, "done ✓")
	assert.Contains(t, line, "copied 1,200")
	assert.Contains(t, line, "duplicates 12")
	assert.Contains(t, line, "errors 0")

	snap.Failed = 3
	assert.Contains(t, CompletionSummary(snap), "done ✗")
}
