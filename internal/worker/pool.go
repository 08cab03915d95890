// Package worker drains the job queue and drives the generation pipeline.
// Each worker goroutine claims jobs one at a time with a blocking pop, so an
// idle pool costs nothing but parked connections.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/internal/pipeline"
)

// Runner executes one claimed job payload to termination.
type Runner interface {
	Run(ctx context.Context, p jobs.Payload) error
}

// Pool runs a fixed number of claim loops against the queue.
type Pool struct {
	queue        jobs.Queue
	runner       Runner
	workers      int
	claimTimeout time.Duration
}

func NewPool(queue jobs.Queue, runner Runner, workers int, claimTimeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:        queue,
		runner:       runner,
		workers:      workers,
		claimTimeout: claimTimeout,
	}
}

// Run blocks until ctx is canceled and every worker has finished its current
// job.
func (p *Pool) Run(ctx context.Context) {
	slog.Info("worker pool starting", "workers", p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	slog.Info("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := slog.With("worker", id)
	for {
		if ctx.Err() != nil {
			return
		}

		jobID, err := p.queue.Claim(ctx, p.claimTimeout)
		if errors.Is(err, jobs.ErrNoJob) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to claim job", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		log.Info("claimed job", "job_id", jobID)
		p.process(ctx, jobID)
	}
}

// process runs one job. Pipeline-level failures are already resolved inside
// the runner, so an error or a panic here means a defect or lost
// infrastructure. Both mark the job failed.
func (p *Pool) process(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked",
				"job_id", jobID, "panic", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))
			p.markFailure(jobID)
		}
	}()

	payload, err := p.queue.Payload(ctx, jobID)
	if err != nil {
		slog.Error("failed to load job payload", "job_id", jobID, "error", err)
		p.markFailure(jobID)
		return
	}

	if err := p.queue.MarkStarted(ctx, jobID); err != nil {
		slog.Warn("failed to mark job started", "job_id", jobID, "error", err)
	}

	if err := p.runner.Run(ctx, payload); err != nil {
		slog.Error("job failed", "job_id", jobID, "error", err)
		p.markFailure(jobID)
		return
	}

	if err := p.queue.MarkSuccess(ctx, jobID, payload.SessionID); err != nil {
		slog.Error("failed to mark job success", "job_id", jobID, "error", err)
	}
}

// markFailure records the failure with a fresh context so a canceled claim
// context cannot leave the job stuck in a non-terminal state. The stored
// message is the fixed user-facing one; the real cause stays in logs.
func (p *Pool) markFailure(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.queue.MarkFailure(ctx, jobID, pipeline.GenericErrorMessage); err != nil {
		slog.Error("failed to mark job failure", "job_id", jobID, "error", err)
	}
}
