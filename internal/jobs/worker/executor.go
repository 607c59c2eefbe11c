package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/dberr"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
)

// Result is what happened to one delivery.
type Result struct {
	Outcome   Outcome
	Err       error
	NextRunAt time.Time
}

// Executor runs a claimed job through its handler and applies the queue's
// attempt accounting. The poll worker and the Temporal activity share it.
type Executor struct {
	db                *gorm.DB
	log               *logger.Logger
	repo              repos.JobRunRepo
	registry          *runtime.Registry
	notify            services.JobNotifier
	heartbeatInterval time.Duration
	now               func() time.Time
}

func NewExecutor(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, heartbeatInterval time.Duration) *Executor {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &Executor{
		db:                db,
		log:               baseLog.With("component", "JobExecutor"),
		repo:              repo,
		registry:          registry,
		notify:            notify,
		heartbeatInterval: heartbeatInterval,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs job, which must already be claimed (status running, attempts
// incremented for this delivery).
func (e *Executor) Execute(ctx context.Context, job *types.JobRun) Result {
	ctx, span := otel.Tracer("coursegen/jobs").Start(ctx, "job."+job.Queue)
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.queue", job.Queue),
		attribute.Int("job.attempt", job.Attempts),
	)

	runErr := e.run(ctx, job)
	var res Result
	if runErr == nil {
		res = e.succeed(ctx, job)
	} else {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "job failed")
		res = e.fail(ctx, job, runErr)
	}
	span.SetAttributes(attribute.String("job.outcome", string(res.Outcome)))
	return res
}

func (e *Executor) run(ctx context.Context, job *types.JobRun) (err error) {
	h, ok := e.registry.Get(job.Queue)
	if !ok {
		return runtime.Permanent(&missingHandlerError{Queue: job.Queue})
	}
	jc := runtime.NewContext(ctx, e.db, job, e.repo, e.log)

	hbCtx, stop := context.WithCancel(ctx)
	defer stop()
	go e.heartbeat(hbCtx, job)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Job handler panic",
				"job_id", job.ID,
				"queue", job.Queue,
				"panic", r,
			)
			err = &panicError{Val: r}
		}
	}()
	return h.Run(jc)
}

func (e *Executor) heartbeat(ctx context.Context, job *types.JobRun) {
	t := time.NewTicker(e.heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := e.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil && ctx.Err() == nil {
				e.log.Warn("Job heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

func (e *Executor) succeed(ctx context.Context, job *types.JobRun) Result {
	dbc := dbctx.Context{Ctx: ctx}
	var err error
	if job.RemoveOnComplete {
		err = e.repo.Delete(dbc, job.ID)
	} else {
		err = e.repo.MarkSucceeded(dbc, job.ID, nil)
	}
	if err != nil {
		e.log.Warn("Job completion bookkeeping failed", "job_id", job.ID, "error", err, "db_class", dberr.Classify(err))
	}
	job.Status = types.JobStatusSucceeded
	if e.notify != nil {
		e.notify.JobDone(job.OwnerUserID, job)
	}
	e.log.Info("Job succeeded", "job_id", job.ID, "queue", job.Queue, "attempt", job.Attempts)
	return Result{Outcome: OutcomeSucceeded}
}

func (e *Executor) fail(ctx context.Context, job *types.JobRun, runErr error) Result {
	dbc := dbctx.Context{Ctx: ctx}
	stage := job.Stage
	if stage == "" || stage == "claimed" {
		stage = "run"
	}
	msg := runErr.Error()
	e.log.Warn("Job attempt failed",
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempts,
		"stage", stage,
		"panic", IsPanic(runErr),
		"error", runErr,
	)

	if runtime.IsPermanent(runErr) || job.Exhausted() {
		if err := e.repo.MarkFailed(dbc, job.ID, stage, msg); err != nil {
			e.log.Warn("MarkFailed failed", "job_id", job.ID, "error", err, "db_class", dberr.Classify(err))
		}
		job.Status = types.JobStatusFailed
		if e.notify != nil {
			e.notify.JobFailed(job.OwnerUserID, job, stage, msg)
		}
		return Result{Outcome: OutcomeFailed, Err: runErr}
	}

	base := time.Duration(job.BackoffSeconds) * time.Second
	next := e.now().Add(types.BackoffFor(base, job.Attempts))
	if err := e.repo.MarkRetry(dbc, job.ID, stage, next, msg); err != nil {
		e.log.Warn("MarkRetry failed", "job_id", job.ID, "error", err, "db_class", dberr.Classify(err))
	}
	job.Status = types.JobStatusQueued
	job.NextRunAt = next
	if e.notify != nil {
		e.notify.JobRetrying(job.OwnerUserID, job, msg, next)
	}
	return Result{Outcome: OutcomeRetry, Err: runErr, NextRunAt: next}
}

type missingHandlerError struct{ Queue string }

func (e *missingHandlerError) Error() string { return "no handler registered for queue=" + e.Queue }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }

// IsPanic reports whether err came from a recovered handler panic.
func IsPanic(err error) bool {
	var p *panicError
	return errors.As(err, &p)
}
