package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"salvage/internal/config"
	"salvage/internal/event"
	"salvage/internal/platform"
	"salvage/internal/stats"
)

// ExecutorConfig wires an Executor into a run.
type ExecutorConfig struct {
	Cfg        *config.Config
	Gate       *Gate
	Stats      *stats.Collector
	Sink       event.Sink
	Checkpoint *Checkpoint       // optional resume journal
	Limiter    *rate.Limiter     // optional bandwidth cap
	Digests    map[string]string // source path -> digest, when hashing ran
	OnFile     func(path string) // current-file reporting, may be nil
}

// Executor carries out CopyPlans with bounded parallelism. Pause and
// cancel are observed only at file boundaries via the gate; a single
// file failure is never fatal to the run.
type Executor struct {
	ExecutorConfig

	tmps *tmpRegistry

	mu       sync.Mutex
	failures []FailureRecord
}

// NewExecutor creates an executor for one run.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.OnFile == nil {
		cfg.OnFile = func(string) {}
	}
	return &Executor{ExecutorConfig: cfg, tmps: newTmpRegistry()}
}

// Run processes every plan, blocking until all workers drain or the run
// is cancelled. Returns the failures recorded, in no particular order.
func (e *Executor) Run(ctx context.Context, plans []CopyPlan) []FailureRecord {
	tasks := make(chan CopyPlan)

	var wg sync.WaitGroup
	for i := 0; i < e.Cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range tasks {
				// File-boundary checkpoint: blocks while paused,
				// bails out once cancelled.
				if err := e.Gate.Wait(); err != nil {
					return
				}
				e.process(ctx, plan)
			}
		}()
	}

	for _, plan := range plans {
		if e.Gate.Cancelled() {
			break
		}
		select {
		case tasks <- plan:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(tasks)
	wg.Wait()

	// Leftover tmp files belong to copies aborted mid-flight.
	e.tmps.sweep()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures
}

func (e *Executor) process(ctx context.Context, plan CopyPlan) {
	rec := plan.Record
	e.OnFile(rec.Path)

	if !plan.Copy() {
		e.Stats.AddSkipped(1)
		e.Sink.Handle(event.Stamp(event.Event{
			Type:   event.FileSkipped,
			Path:   rec.Path,
			Reason: plan.Skip.String(),
			Size:   rec.Size,
		}))
		return
	}

	if fail := e.copyOne(ctx, plan); fail != nil {
		e.record(*fail)
	}
}

func (e *Executor) record(fail FailureRecord) {
	e.mu.Lock()
	e.failures = append(e.failures, fail)
	e.mu.Unlock()

	e.Stats.AddFailed(1)
	e.Sink.Handle(event.Stamp(event.Event{
		Type:  event.CopyFailed,
		Path:  fail.Path,
		Error: fail,
	}))
}

func (e *Executor) copyOne(ctx context.Context, plan CopyPlan) *FailureRecord {
	rec := plan.Record

	if len(plan.Dest) > maxDestPath {
		return &FailureRecord{
			Path: rec.Path,
			Kind: KindPathTooLong,
			Cause: fmt.Sprintf("destination path is %d bytes, limit %d",
				len(plan.Dest), maxDestPath),
		}
	}

	// Satisfied by a previous interrupted run of the same job.
	if e.Checkpoint != nil && e.Checkpoint.IsCompleted(rec.RelPath, rec.Size, rec.ModTime.UnixNano()) {
		e.finish(plan, rec.Size)
		return nil
	}

	var fail *FailureRecord
	for attempt := 0; attempt <= e.Cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		fail = e.attempt(ctx, plan)
		if fail == nil {
			return nil
		}
		if fail.Kind == KindPathTooLong || ctx.Err() != nil {
			break // retrying cannot help
		}
	}
	return fail
}

func (e *Executor) attempt(ctx context.Context, plan CopyPlan) *FailureRecord {
	rec := plan.Record

	fileCtx, cancel := context.WithTimeout(ctx, e.Cfg.FileTimeout)
	defer cancel()

	src, err := os.Open(rec.Path)
	if err != nil {
		f := readFailure(rec.Path, err)
		return &f
	}
	defer src.Close()

	dir := filepath.Dir(plan.Dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		f := writeFailure(rec.Path, err)
		return &f
	}

	base := filepath.Base(plan.Dest)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.salvage-tmp", base, uuid.New().String()[:8]))

	e.tmps.add(tmpPath)
	defer func() {
		e.tmps.remove(tmpPath)
		_ = os.Remove(tmpPath) // no-op once the rename has happened
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		f := writeFailure(rec.Path, err)
		return &f
	}

	written, _, err := platform.Copy(platform.Request{
		Src:       src,
		Dst:       tmpFd,
		Size:      rec.Size,
		ChunkSize: e.chunkSize(),
		Progress:  e.progressFunc(ctx, fileCtx),
	})
	if err != nil {
		tmpFd.Close()
		return e.classifyCopyErr(ctx, rec, err)
	}

	if err := tmpFd.Close(); err != nil {
		f := writeFailure(rec.Path, err)
		return &f
	}

	// Verification: size always, digest when hashing ran for this file.
	if written != rec.Size {
		return &FailureRecord{
			Path:  rec.Path,
			Kind:  KindWrite,
			Cause: fmt.Sprintf("short copy: wrote %d of %d bytes", written, rec.Size),
		}
	}
	if srcDigest, ok := e.Digests[rec.Path]; ok {
		dstDigest, err := DigestFile(fileCtx, tmpPath)
		if err != nil {
			f := readFailure(rec.Path, fmt.Errorf("verify %s: %w", tmpPath, err))
			return &f
		}
		if dstDigest != srcDigest {
			return &FailureRecord{
				Path:  rec.Path,
				Kind:  KindWrite,
				Cause: "digest mismatch after copy",
			}
		}
	}

	if e.Cfg.PreserveTimes {
		_ = os.Chtimes(tmpPath, rec.ModTime, rec.ModTime)
	}

	if err := os.Rename(tmpPath, plan.Dest); err != nil {
		f := writeFailure(rec.Path, err)
		return &f
	}

	if e.Checkpoint != nil {
		_ = e.Checkpoint.MarkCompleted(
			rec.RelPath, rec.Size, e.Digests[rec.Path], rec.ModTime.UnixNano())
	}

	e.finish(plan, written)
	return nil
}

// chunkSize caps copy chunks to the limiter burst so WaitN never asks
// for more tokens than the bucket holds.
func (e *Executor) chunkSize() int64 {
	if e.Limiter == nil {
		return 0
	}
	return int64(e.Limiter.Burst())
}

// progressFunc builds the per-chunk callback: throttle first, then
// honor cancellation and the per-file deadline.
func (e *Executor) progressFunc(runCtx, fileCtx context.Context) func(int64) error {
	return func(n int64) error {
		if e.Limiter != nil {
			if err := e.Limiter.WaitN(fileCtx, int(n)); err != nil {
				return err
			}
		}
		if err := runCtx.Err(); err != nil {
			return err
		}
		return fileCtx.Err()
	}
}

func (e *Executor) classifyCopyErr(runCtx context.Context, rec FileRecord, err error) *FailureRecord {
	if runCtx.Err() != nil || errors.Is(err, context.Canceled) {
		// The run was cancelled with this file in flight. The partial
		// is removed; the file is flagged, never reported as copied.
		return &FailureRecord{
			Path:  rec.Path,
			Kind:  KindWrite,
			Cause: "aborted: run cancelled mid-copy",
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FailureRecord{
			Path:  rec.Path,
			Kind:  KindRead,
			Cause: fmt.Sprintf("timed out after %s", e.Cfg.FileTimeout),
		}
	}
	f := writeFailure(rec.Path, err)
	return &f
}

func (e *Executor) finish(plan CopyPlan, written int64) {
	e.Stats.AddCopied(1)
	e.Stats.AddBytesCopied(written)
	e.Sink.Handle(event.Stamp(event.Event{
		Type: event.FileCopied,
		Path: plan.Record.Path,
		Dest: plan.Dest,
		Size: plan.Record.Size,
	}))
}
