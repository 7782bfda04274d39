// Package ui renders run progress for the terminal. Presenters are
// event sinks: the engine pushes events through Handle while a
// background ticker reads the collector for periodic progress lines.
package ui

import (
	"io"

	"salvage/internal/event"
	"salvage/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	event.Sink
	// Start begins periodic progress output, if the presenter has any.
	Start()
	// Stop halts periodic output. Safe to call more than once.
	Stop()
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	SrcRoot   string
	Quiet     bool
	Verbose   bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // the caller selects behavior, not a concrete type
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	return &plainPresenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		stats:   cfg.Stats,
		srcRoot: cfg.SrcRoot,
		verbose: cfg.Verbose,
		stop:    make(chan struct{}),
	}
}
