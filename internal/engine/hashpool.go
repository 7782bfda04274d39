package engine

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// HashTask asks the pool to digest one file.
type HashTask struct {
	Path string
	Size int64
}

// HashResult is the outcome of one digest computation.
type HashResult struct {
	Path   string
	Digest string
	Size   int64
	Err    error
}

// HashPool digests files on a bounded goroutine pool. Results arrive in
// completion order, not submission order.
type HashPool struct {
	pool    *ants.Pool
	tasks   chan HashTask
	results chan HashResult
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewHashPool creates a pool with the given number of workers. timeout
// bounds each single-file digest; zero means no bound.
func NewHashPool(workers int, timeout time.Duration) (*HashPool, error) {
	p, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &HashPool{
		pool:    p,
		tasks:   make(chan HashTask, workers*4),
		results: make(chan HashResult, workers*4),
		timeout: timeout,
	}, nil
}

// Start launches the workers. Results() closes once Close is called and
// all in-flight tasks have drained.
func (p *HashPool) Start(ctx context.Context) {
	workers := p.pool.Cap()
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		_ = p.pool.Submit(func() {
			defer p.wg.Done()
			p.worker(ctx)
		})
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *HashPool) worker(ctx context.Context) {
	for task := range p.tasks {
		if ctx.Err() != nil {
			// Drain remaining tasks so Submit never blocks forever.
			continue
		}
		hashCtx := ctx
		var cancel context.CancelFunc
		if p.timeout > 0 {
			hashCtx, cancel = context.WithTimeout(ctx, p.timeout)
		}
		digest, err := DigestFile(hashCtx, task.Path)
		if cancel != nil {
			cancel()
		}
		p.results <- HashResult{
			Path:   task.Path,
			Digest: digest,
			Size:   task.Size,
			Err:    err,
		}
	}
}

// Submit queues a task. Must not be called after Close.
func (p *HashPool) Submit(task HashTask) {
	p.tasks <- task
}

// Results returns the completion channel.
func (p *HashPool) Results() <-chan HashResult {
	return p.results
}

// Close stops accepting tasks and releases the pool once workers drain.
func (p *HashPool) Close() {
	close(p.tasks)
	go func() {
		p.wg.Wait()
		p.pool.Release()
	}()
}
