// Package worker runs queued jobs: a fixed number of lease loops, one lease
// renewer per running job and a reaper that hands expired leases back to the
// queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glauk-api/internal/domain"
	"glauk-api/internal/retry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const leaseErrorBackoff = time.Second

// Handler executes a single job and returns the value stored as its result.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job, progress domain.ProgressFunc) (interface{}, error)
}

type Options struct {
	Workers      int
	PollTimeout  time.Duration
	ReapInterval time.Duration
	LockDuration time.Duration
}

type Pool struct {
	queue   domain.JobQueue
	handler Handler
	opts    Options
	logger  *zap.Logger
	sleep   retry.Sleeper
}

func NewPool(queue domain.JobQueue, handler Handler, opts Options, logger *zap.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = 30 * time.Second
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		queue:   queue,
		handler: handler,
		opts:    opts,
		logger:  logger.With(zap.String("component", "worker_pool")),
		sleep:   retry.SleepContext,
	}
}

// Run blocks until ctx is cancelled. Jobs still running at that point keep
// their lease and are picked up again by a reaper once it expires.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("Starting worker pool",
		zap.Int("workers", p.opts.Workers),
		zap.Duration("lock_duration", p.opts.LockDuration))

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		workerID := i + 1
		eg.Go(func() error {
			p.loop(egCtx, workerID)
			return nil
		})
	}
	eg.Go(func() error {
		p.reap(egCtx)
		return nil
	})

	err := eg.Wait()
	p.logger.Info("Worker pool stopped")
	return err
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.logger.With(zap.Int("worker_id", workerID))
	for ctx.Err() == nil {
		job, err := p.queue.Lease(ctx, p.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn("Lease failed", zap.Error(err))
			if p.sleep(ctx, leaseErrorBackoff) != nil {
				break
			}
			continue
		}
		if job == nil {
			continue
		}
		p.process(ctx, log, job)
	}
	log.Debug("Worker loop stopped")
}

// process runs one job under a renewed lease and records its outcome.
func (p *Pool) process(ctx context.Context, log *zap.Logger, job *domain.Job) {
	log = log.With(zap.String("job_id", job.ID), zap.String("job_name", job.Name), zap.Int("attempt", job.Attempts))
	log.Info("Job leased")
	start := time.Now()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lost := make(chan struct{})
	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		p.renew(jobCtx, log, job.ID, lost, cancel)
	}()

	progress := func(pct int) {
		if err := p.queue.Progress(jobCtx, job.ID, pct); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Failed to record progress", zap.Int("progress", pct), zap.Error(err))
		}
	}

	result, runErr := p.invoke(jobCtx, job, progress)
	cancel()
	<-renewDone

	select {
	case <-lost:
		log.Warn("Lease lost while running; outcome discarded")
		return
	default:
	}
	if ctx.Err() != nil {
		log.Info("Shutdown while running; job left for reclaim")
		return
	}

	// The job context is gone, so the outcome is written under the pool context.
	if runErr != nil {
		if err := p.queue.Fail(ctx, job.ID, runErr); err != nil {
			log.Error("Failed to mark job failed", zap.Error(err))
		}
		log.Error("Job failed", zap.Error(runErr), zap.Duration("elapsed", time.Since(start)))
		return
	}
	if err := p.queue.Complete(ctx, job.ID, result); err != nil {
		log.Error("Failed to mark job completed", zap.Error(err))
		return
	}
	log.Info("Job completed", zap.Duration("elapsed", time.Since(start)))
}

func (p *Pool) invoke(ctx context.Context, job *domain.Job, progress domain.ProgressFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job handler panic", zap.String("job_id", job.ID), zap.Any("panic", r))
			result, err = nil, fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return p.handler.Handle(ctx, job, progress)
}

// renew extends the lease every half lock period until ctx ends. Losing the
// lease closes lost and cancels the job.
func (p *Pool) renew(ctx context.Context, log *zap.Logger, jobID string, lost chan<- struct{}, cancel context.CancelFunc) {
	ticker := time.NewTicker(p.opts.LockDuration / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.queue.Extend(ctx, jobID)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrLeaseLost):
				close(lost)
				cancel()
				return
			case ctx.Err() != nil:
				return
			default:
				log.Warn("Failed to extend lease", zap.Error(err))
			}
		}
	}
}

func (p *Pool) reap(ctx context.Context) {
	ticker := time.NewTicker(p.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.ReclaimExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Warn("Reclaim failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				p.logger.Info("Reclaimed expired jobs", zap.Int("count", n))
			}
		}
	}
}
