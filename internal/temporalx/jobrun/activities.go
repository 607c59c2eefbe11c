package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/jobs/worker"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Activities struct {
	Log  *logger.Logger
	Jobs repos.JobRunRepo
	Exec *worker.Executor
}

// Execute claims the job row and runs it through the shared executor. A
// retry outcome is returned as a retryable error so Temporal schedules the
// next delivery.
func (a *Activities) Execute(ctx context.Context, jobID string) (ExecuteResult, error) {
	res := ExecuteResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.Jobs == nil || a.Exec == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid job_id", ErrTypeJobFailed, err)
	}

	job, err := a.Jobs.MarkRunning(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		// deleted, or already terminal
		res.Outcome = "skipped"
		return res, nil
	}

	stop := startHeartbeat(ctx)
	defer stop()

	out := a.Exec.Execute(ctx, job)
	res.Outcome = string(out.Outcome)
	switch out.Outcome {
	case worker.OutcomeSucceeded:
		return res, nil
	case worker.OutcomeRetry:
		return res, temporal.NewApplicationError(out.Err.Error(), ErrTypeJobRetry)
	default:
		msg := "job failed"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		return res, temporal.NewNonRetryableApplicationError(msg, ErrTypeJobFailed, out.Err)
	}
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
