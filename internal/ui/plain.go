package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"salvage/internal/event"
	"salvage/internal/stats"
)

// plainPresenter outputs one line per noteworthy file to stdout and
// periodic progress to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	srcRoot string
	verbose bool

	mu       sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

func (p *plainPresenter) Start() {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.printProgress()
			}
		}
	}()
}

func (p *plainPresenter) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *plainPresenter) Handle(ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := StripRoot(p.srcRoot, ev.Path)
	switch ev.Type {
	case event.ScanComplete:
		fmt.Fprintf(p.errW, "scanned %s files, %s\n",
			FormatCount(ev.Total), FormatBytes(ev.Size))
	case event.FileCopied:
		fmt.Fprintf(p.w, "%s  %s  %s\n", path, FormatBytes(ev.Size), FormatRate(p.stats.Speed()))
	case event.FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  skipped (%s)\n", path, ev.Reason)
		}
	case event.DuplicateFound:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  duplicate of %s\n", path, StripRoot(p.srcRoot, ev.Original))
		}
	case event.CopyFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", path, errMsg)
	case event.DirectoryRemoved:
		if p.verbose {
			fmt.Fprintf(p.w, "removed: %s\n", path)
		}
	case event.Paused:
		fmt.Fprintln(p.errW, "paused")
	case event.Resumed:
		fmt.Fprintln(p.errW, "resumed")
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
		fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s files %s/%s %s eta %s\n",
			pct,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			FormatCount(snap.Copied), FormatCount(snap.Scanned),
			FormatRate(p.stats.Speed()),
			FormatETA(p.stats.ETA()),
		)
	} else {
		fmt.Fprintf(p.errW, "progress: %s copied, %s files\n",
			FormatBytes(snap.BytesCopied),
			FormatCount(snap.Copied),
		)
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
