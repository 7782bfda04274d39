// Package engine implements the rescue pipeline: scan, hash, plan,
// copy, clean. A Runner owns one run end to end and exposes the async
// control surface (pause, resume, cancel) over it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"salvage/internal/config"
	"salvage/internal/event"
	"salvage/internal/stats"
)

// Result is the final accounting of a finished run.
type Result struct {
	Counts     stats.Snapshot
	Failures   []FailureRecord
	Duplicates int
	Cancelled  bool
}

// Runner drives one run through its lifecycle. Commands return
// immediately; progress is observed through the event sink and State.
// A Runner is single-use: one Start per instance.
type Runner struct {
	cfg  *config.Config
	sink event.Sink
	log  *slog.Logger

	gate  *Gate
	stats *stats.Collector

	mu      sync.Mutex
	phase   Phase
	current string
	started bool
	cancel  context.CancelFunc

	done   chan struct{}
	result Result
}

// NewRunner creates a runner for cfg. sink receives the event stream;
// it may be nil. log may be nil for slog's default.
func NewRunner(cfg *config.Config, sink event.Sink, log *slog.Logger) *Runner {
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:   cfg,
		sink:  sink,
		log:   log,
		gate:  NewGate(),
		stats: stats.NewCollector(),
		done:  make(chan struct{}),
	}
}

// Start validates the configuration and launches the run. Validation
// failures are returned synchronously and the runner stays Idle;
// anything after that is reported through events and the Result.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("run already started")
	}
	if err := r.cfg.Normalize(); err != nil {
		return &config.ValidationError{Field: "paths", Msg: err.Error()}
	}
	if err := r.cfg.Validate(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true
	r.phase = PhaseScanning

	go r.run(runCtx)
	return nil
}

// Pause requests a pause. The engine stops at the next file boundary;
// a file already in flight always completes first.
func (r *Runner) Pause() {
	if r.gate.Pause() {
		r.sink.Handle(event.Stamp(event.Event{Type: event.Paused}))
		r.log.Info("run paused")
	}
}

// Resume lifts a pause.
func (r *Runner) Resume() {
	if r.gate.Resume() {
		r.sink.Handle(event.Stamp(event.Event{Type: event.Resumed}))
		r.log.Info("run resumed")
	}
}

// Cancel stops the run. In-flight copies are aborted and their partial
// destinations removed; cancelling also releases a paused run.
func (r *Runner) Cancel() {
	r.gate.Cancel()
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// State snapshots the run.
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunState{
		Phase:       r.phase,
		Paused:      r.gate.Paused() && !r.phase.Terminal(),
		CurrentPath: r.current,
		Counts:      r.stats.Snapshot(),
	}
}

// Wait blocks until the run reaches a terminal phase.
func (r *Runner) Wait() Result {
	<-r.done
	return r.result
}

// Stats exposes the live counters for progress display.
func (r *Runner) Stats() *stats.Collector {
	return r.stats
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

func (r *Runner) setCurrent(path string) {
	r.mu.Lock()
	r.current = path
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	r.sink.Handle(event.Stamp(event.Event{Type: event.RunStarted, Path: r.cfg.Source, Dest: r.cfg.Dest}))
	r.log.Info("run started",
		"mode", r.cfg.Mode.String(),
		"source", r.cfg.Source,
		"dest", r.cfg.Dest,
		"workers", r.cfg.Workers)

	var failures []FailureRecord

	records, scanFails := r.scanPhase(ctx)
	failures = append(failures, scanFails...)

	if r.stopped(ctx) {
		r.finish(ctx, failures, 0)
		return
	}

	var (
		index   *DuplicateIndex
		digests map[string]string
	)
	if r.cfg.HashDedup {
		var hashFails []FailureRecord
		index, digests, hashFails = r.hashPhase(ctx, records)
		failures = append(failures, hashFails...)
		records = dropFailed(records, hashFails)
	}
	if r.stopped(ctx) {
		r.finish(ctx, failures, dupCount(index))
		return
	}

	failures = append(failures, r.copyPhase(ctx, records, index, digests)...)

	if r.cfg.RemoveEmptyDirs && r.cfg.Mode != config.AnalyzeOnly && !r.stopped(ctx) {
		r.cleanPhase(ctx)
	}

	r.finish(ctx, failures, dupCount(index))
}

// scanPhase walks the source tree, counting and collecting every
// regular file. Directory read failures are reported but the walk goes
// on; they never count against the scanned-file totals.
func (r *Runner) scanPhase(ctx context.Context) ([]FileRecord, []FailureRecord) {
	r.setPhase(PhaseScanning)
	r.sink.Handle(event.Stamp(event.Event{Type: event.ScanStarted, Path: r.cfg.Source}))

	scanner := NewScanner(r.cfg.Source, r.cfg.Rules)
	recCh, failCh := scanner.Scan(ctx)

	var (
		records  []FileRecord
		failures []FailureRecord
	)
	for recCh != nil || failCh != nil {
		if err := r.gate.Wait(); err != nil {
			break
		}
		select {
		case rec, ok := <-recCh:
			if !ok {
				recCh = nil
				continue
			}
			r.stats.AddScanned(1)
			r.stats.AddBytesTotal(rec.Size)
			if rec.Hidden {
				r.stats.AddHidden(1)
				r.sink.Handle(event.Stamp(event.Event{
					Type: event.HiddenFound,
					Path: rec.Path,
					Size: rec.Size,
				}))
			}
			records = append(records, rec)

		case fail, ok := <-failCh:
			if !ok {
				failCh = nil
				continue
			}
			failures = append(failures, fail)
			r.sink.Handle(event.Stamp(event.Event{
				Type:  event.CopyFailed,
				Path:  fail.Path,
				Error: fail,
			}))
			r.log.Warn("scan failure", "path", fail.Path, "err", fail.Cause)
		}
	}

	snap := r.stats.Snapshot()
	r.sink.Handle(event.Stamp(event.Event{
		Type:  event.ScanComplete,
		Total: snap.Scanned,
		Size:  snap.BytesTotal,
	}))
	r.log.Info("scan complete", "files", snap.Scanned, "bytes", snap.BytesTotal)
	return records, failures
}

// hashPhase digests every file that could end up copied and builds the
// duplicate index. Completion batches are registered in path order, so
// ties between simultaneous completions resolve deterministically.
func (r *Runner) hashPhase(ctx context.Context, records []FileRecord) (*DuplicateIndex, map[string]string, []FailureRecord) {
	r.setPhase(PhaseHashing)

	eligible := make([]FileRecord, 0, len(records))
	for _, rec := range records {
		if !r.hashEligible(rec) {
			continue
		}
		eligible = append(eligible, rec)
	}

	index := NewDuplicateIndex()
	digests := make(map[string]string, len(eligible))
	var failures []FailureRecord

	pool, err := NewHashPool(r.cfg.Workers, r.cfg.FileTimeout)
	if err != nil {
		// Pool construction only fails on a non-positive size; fall
		// back to treating every file as unique rather than aborting.
		r.log.Error("hash pool unavailable", "err", err)
		return index, digests, failures
	}
	pool.Start(ctx)

	go func() {
		defer pool.Close()
		for _, rec := range eligible {
			if ctx.Err() != nil {
				return
			}
			pool.Submit(HashTask{Path: rec.Path, Size: rec.Size})
		}
	}()

	total := int64(len(eligible))
	var done int64
	results := pool.Results()
	batch := make([]HashResult, 0, r.cfg.Workers*2)

	for {
		res, ok := <-results
		if !ok {
			break
		}
		batch = append(batch, res)

		// Drain whatever else already completed so ties land in one
		// batch and get ordered by path.
	drain:
		for {
			select {
			case more, ok := <-results:
				if !ok {
					break drain
				}
				batch = append(batch, more)
			default:
				break drain
			}
		}

		done += int64(len(batch))
		failures = append(failures, r.registerBatch(index, digests, batch)...)
		batch = batch[:0]

		r.sink.Handle(event.Stamp(event.Event{
			Type:  event.HashProgress,
			Done:  done,
			Total: total,
		}))
		if err := r.gate.Wait(); err != nil {
			r.cancel()
			// Keep draining so the pool can wind down.
		}
	}

	r.log.Info("hashing complete",
		"hashed", done,
		"duplicates", index.Duplicates(),
		"failed", len(failures))
	return index, digests, failures
}

// hashEligible mirrors the skip policy stages that outrank duplicate
// detection: files those stages will skip are never read for hashing.
func (r *Runner) hashEligible(rec FileRecord) bool {
	if r.cfg.Rules.ExcludedExt(filepath.Ext(rec.Path)) {
		return false
	}
	if r.cfg.Rules.TooLarge(rec.Size) {
		return false
	}
	if rec.Hidden && !r.cfg.IncludeHidden {
		return false
	}
	return true
}

func (r *Runner) registerBatch(index *DuplicateIndex, digests map[string]string, batch []HashResult) []FailureRecord {
	clean := batch[:0:len(batch)]
	var failures []FailureRecord
	for _, res := range batch {
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) {
				continue // cancellation, not a file problem
			}
			fail := readFailure(res.Path, fmt.Errorf("hash: %w", res.Err))
			failures = append(failures, fail)
			r.stats.AddFailed(1)
			r.sink.Handle(event.Stamp(event.Event{
				Type:  event.CopyFailed,
				Path:  res.Path,
				Error: fail,
			}))
			continue
		}
		digests[res.Path] = res.Digest
		clean = append(clean, res)
	}

	for _, path := range index.RegisterBatch(clean) {
		owner, _ := index.DuplicateOf(path)
		r.stats.AddDuplicates(1)
		r.sink.Handle(event.Stamp(event.Event{
			Type:     event.DuplicateFound,
			Path:     path,
			Original: owner,
		}))
	}
	return failures
}

// copyPhase plans every record in scan order, then hands the plans to
// the worker pool.
func (r *Runner) copyPhase(ctx context.Context, records []FileRecord, index *DuplicateIndex, digests map[string]string) []FailureRecord {
	r.setPhase(PhaseCopying)

	planner := NewPlanner(r.cfg, index)
	plans := make([]CopyPlan, 0, len(records))
	for _, rec := range records {
		plans = append(plans, planner.Plan(rec))
	}

	var ckpt *Checkpoint
	if r.cfg.Resume && r.cfg.Mode != config.AnalyzeOnly {
		var err error
		ckpt, err = OpenCheckpoint(r.cfg.Source, r.cfg.Dest)
		if err != nil {
			r.log.Warn("checkpoint unavailable, running without resume", "err", err)
			ckpt = nil
		}
	}

	exec := NewExecutor(ExecutorConfig{
		Cfg:        r.cfg,
		Gate:       r.gate,
		Stats:      r.stats,
		Sink:       r.sink,
		Checkpoint: ckpt,
		Limiter:    NewBWLimiter(r.cfg.BWLimit),
		Digests:    digests,
		OnFile:     r.setCurrent,
	})
	failures := exec.Run(ctx, plans)

	if ckpt != nil {
		if err := ckpt.Close(); err != nil {
			r.log.Warn("close checkpoint", "err", err)
		}
		if len(failures) == 0 && !r.stopped(ctx) {
			// Clean finish: the journal has served its purpose.
			if err := ckpt.Remove(); err != nil {
				r.log.Warn("remove checkpoint", "err", err)
			}
		}
	}
	return failures
}

func (r *Runner) cleanPhase(ctx context.Context) {
	r.setPhase(PhaseCleaning)
	sweeper := &Sweeper{
		Root:  r.cfg.Source,
		Gate:  r.gate,
		Stats: r.stats,
		Sink:  r.sink,
	}
	if err := sweeper.Sweep(); err != nil && !errors.Is(err, ErrRunCancelled) {
		r.log.Warn("cleanup sweep aborted", "err", err)
	}
}

func (r *Runner) stopped(ctx context.Context) bool {
	return r.gate.Cancelled() || ctx.Err() != nil
}

func (r *Runner) finish(ctx context.Context, failures []FailureRecord, duplicates int) {
	cancelled := r.stopped(ctx)
	snap := r.stats.Snapshot()

	r.mu.Lock()
	if cancelled {
		r.phase = PhaseCancelled
	} else {
		r.phase = PhaseDone
	}
	r.current = ""
	r.result = Result{
		Counts:     snap,
		Failures:   failures,
		Duplicates: duplicates,
		Cancelled:  cancelled,
	}
	r.mu.Unlock()

	typ := event.RunCompleted
	if cancelled {
		typ = event.RunCancelled
	}
	r.sink.Handle(event.Stamp(event.Event{Type: typ, Total: snap.Scanned}))
	r.log.Info("run finished",
		"cancelled", cancelled,
		"scanned", snap.Scanned,
		"copied", snap.Copied,
		"skipped", snap.Skipped,
		"failed", snap.Failed,
		"duplicates", snap.Duplicates,
		"dirs_removed", snap.DirsRemoved)
}

// dropFailed removes records whose hashing failed; they are already
// counted failed and must not be planned or copied.
func dropFailed(records []FileRecord, fails []FailureRecord) []FileRecord {
	if len(fails) == 0 {
		return records
	}
	failed := make(map[string]struct{}, len(fails))
	for _, f := range fails {
		failed[f.Path] = struct{}{}
	}
	kept := records[:0]
	for _, rec := range records {
		if _, ok := failed[rec.Path]; ok {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func dupCount(index *DuplicateIndex) int {
	if index == nil {
		return 0
	}
	return index.Duplicates()
}
