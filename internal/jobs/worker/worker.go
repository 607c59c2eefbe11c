package worker

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	// StaleAfter is how long a running job may go without a heartbeat
	// before another worker may reclaim it.
	StaleAfter time.Duration
}

// Worker is the poll-dispatched pool. Each goroutine runs one job to
// completion before claiming the next.
type Worker struct {
	log  *logger.Logger
	repo repos.JobRunRepo
	exec *Executor
	cfg  Config
	wg   sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.JobRunRepo, exec *Executor, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	return &Worker{
		log:  baseLog.With("component", "JobWorker"),
		repo: repo,
		exec: exec,
		cfg:  cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool",
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval.String(),
		"queues", w.exec.registry.Queues(),
	)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweepLoop(ctx)
	}()
}

// Wait blocks until every loop has returned after ctx is canceled.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// drain ready jobs before waiting for the next tick
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.StaleAfter)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.exec.Execute(ctx, job)
	return true, nil
}

func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.StaleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep fails running jobs that went stale on their last allowed attempt.
func (w *Worker) Sweep(ctx context.Context) int64 {
	n, err := w.repo.FailStaleExhausted(dbctx.Context{Ctx: ctx}, w.cfg.StaleAfter)
	if err != nil {
		w.log.Warn("Stale job sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		w.log.Warn("Failed stale jobs with no attempts left", "count", n)
	}
	return n
}
