// Package queue enqueues job_run rows and hands them to a dispatcher once
// the enqueuing transaction has committed.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Options struct {
	MaxAttempts int
	// Backoff is the delay before the first retry; later retries double it.
	Backoff          time.Duration
	RemoveOnComplete *bool
}

func DefaultOptions() Options {
	remove := true
	return Options{MaxAttempts: 3, Backoff: 60 * time.Second, RemoveOnComplete: &remove}
}

type Request struct {
	Queue       string
	OwnerUserID uuid.UUID
	EntityType  string
	EntityID    *uuid.UUID
	Payload     any
	Options     Options
}

// Dispatcher hands a committed job to an external runner.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *types.JobRun) error
}

type Queue struct {
	log        *logger.Logger
	repo       repos.JobRunRepo
	defaults   Options
	dispatcher Dispatcher
}

// New returns a queue. With a nil dispatcher every job is left for the poll
// worker.
func New(baseLog *logger.Logger, repo repos.JobRunRepo, defaults Options, dispatcher Dispatcher) *Queue {
	d := DefaultOptions()
	if defaults.MaxAttempts > 0 {
		d.MaxAttempts = defaults.MaxAttempts
	}
	if defaults.Backoff > 0 {
		d.Backoff = defaults.Backoff
	}
	if defaults.RemoveOnComplete != nil {
		d.RemoveOnComplete = defaults.RemoveOnComplete
	}
	return &Queue{
		log:        baseLog.With("service", "JobQueue"),
		repo:       repo,
		defaults:   d,
		dispatcher: dispatcher,
	}
}

// Enqueue validates the payload and inserts a queued job row using the
// caller's transaction when there is one.
func (q *Queue) Enqueue(dbc dbctx.Context, req Request) (*types.JobRun, error) {
	name := strings.TrimSpace(req.Queue)
	if name == "" {
		return nil, fmt.Errorf("enqueue: missing queue name")
	}
	if req.OwnerUserID == uuid.Nil {
		return nil, fmt.Errorf("enqueue %s: missing owner", name)
	}
	if req.Payload != nil {
		if err := ValidatePayload(req.Payload); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", name, err)
		}
	}
	raw, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: encode payload: %w", name, err)
	}

	opts := q.resolve(req.Options)
	dispatcher := types.JobDispatcherPoll
	if q.dispatcher != nil {
		dispatcher = types.JobDispatcherTemporal
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		OwnerUserID:      req.OwnerUserID,
		Queue:            name,
		EntityType:       req.EntityType,
		EntityID:         req.EntityID,
		Dispatcher:       dispatcher,
		Status:           types.JobStatusQueued,
		Stage:            "queued",
		MaxAttempts:      opts.MaxAttempts,
		BackoffSeconds:   int(opts.Backoff / time.Second),
		NextRunAt:        now,
		RemoveOnComplete: *opts.RemoveOnComplete,
		Payload:          datatypes.JSON(raw),
	}
	if _, err := q.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", name, err)
	}
	q.log.Debug("Job enqueued", "job_id", job.ID, "queue", name, "dispatcher", dispatcher)
	return job, nil
}

// Dispatch must run after the enqueuing transaction commits. If the
// external dispatcher rejects the job, the row falls back to the poll worker.
func (q *Queue) Dispatch(ctx context.Context, job *types.JobRun) error {
	if job == nil || q.dispatcher == nil || job.Dispatcher != types.JobDispatcherTemporal {
		return nil
	}
	if err := q.dispatcher.Dispatch(ctx, job); err != nil {
		q.log.Warn("Dispatch failed, falling back to poll worker", "job_id", job.ID, "queue", job.Queue, "error", err)
		if uerr := q.repo.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
			"dispatcher": types.JobDispatcherPoll,
		}); uerr != nil {
			return fmt.Errorf("dispatch %s: %v; poll fallback: %w", job.ID, err, uerr)
		}
		job.Dispatcher = types.JobDispatcherPoll
	}
	return nil
}

func (q *Queue) resolve(o Options) Options {
	out := q.defaults
	if o.MaxAttempts > 0 {
		out.MaxAttempts = o.MaxAttempts
	}
	if o.Backoff > 0 {
		out.Backoff = o.Backoff
	}
	if o.RemoveOnComplete != nil {
		out.RemoveOnComplete = o.RemoveOnComplete
	}
	return out
}
