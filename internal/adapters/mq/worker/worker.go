// Package worker drains the recompute queue and rescores episodes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fantabrigade/internal/adapters/mq/queue"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/recompute"
	"github.com/okian/fantabrigade/pkg/logger"
	"github.com/okian/fantabrigade/pkg/metrics"
)

const (
	defaultJobTimeout   = 2 * time.Minute
	poolShutdownTimeout = 30 * time.Second
)

// Runner recomputes one episode.
type Runner interface {
	Recompute(ctx context.Context, key model.EpisodeKey) (recompute.Report, error)
}

// Releaser forgets a pending job key.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	size       int
	queue      Queue
	runner     Runner
	releaser   Releaser
	jobTimeout time.Duration
	logger     logger.Logger

	processed atomic.Int64
	failed    atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

// NewPool creates a pool of workerCount workers. A count below one uses
// the number of CPUs.
func NewPool(workerCount int, q Queue, runner Runner, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		size:       workerCount,
		queue:      q,
		runner:     runner,
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Start launches the workers. Calling it again is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		jobs := p.queue.Dequeue(ctx)
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.run(ctx, "worker-"+strconv.Itoa(i), jobs)
		}
		metrics.UpdateWorkerActive(p.size)
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
	})
}

func (p *Pool) run(ctx context.Context, name string, jobs <-chan queue.Job) {
	defer p.wg.Done()
	log := p.logger.Named(name)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			p.process(ctx, log, job)
		}
	}
}

// process releases the job's key before running, so an outcome update that
// lands mid-recompute schedules a follow-up job.
func (p *Pool) process(ctx context.Context, log logger.Logger, job queue.Job) {
	metrics.RecordQueueDequeue()
	if p.releaser != nil {
		p.releaser.Unrecord(ctx, job.DedupeKey())
	}

	jctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	report, err := p.runner.Recompute(jctx, job.Episode)
	if !job.RequestedAt.IsZero() {
		metrics.RecordWorkerJob(float64(time.Since(job.RequestedAt).Milliseconds()))
	}
	p.processed.Add(1)

	switch {
	case err != nil:
		p.failed.Add(1)
		metrics.RecordWorkerError()
		log.Error(ctx, "recompute failed",
			logger.String("episode", job.Episode.String()),
			logger.Error(err),
		)
	case !report.OK():
		p.failed.Add(1)
		metrics.RecordWorkerError()
		log.Warn(ctx, "recompute finished with squad failures",
			logger.String("episode", job.Episode.String()),
			logger.Int("failures", len(report.Failures)),
		)
	}
}

// Stats returns processing counters.
func (p *Pool) Stats() Stats {
	return Stats{Workers: p.size, Processed: p.processed.Load(), Failed: p.failed.Load()}
}

// Wait blocks until every started worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue when it supports it, lets workers finish their
// current job and waits for them until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
		close(p.shutdown)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
	}

	select {
	case <-done:
		metrics.UpdateWorkerActive(0)
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
