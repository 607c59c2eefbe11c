package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// Context is the execution handle for one delivery of a job. Handlers read
// the payload and delivery metadata from it and report stages through it;
// they never write job_run directly.
type Context struct {
	Ctx  context.Context
	DB   *gorm.DB
	Job  *types.JobRun
	Repo repos.JobRunRepo
	Log  *logger.Logger
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, baseLog *logger.Logger) *Context {
	log := baseLog
	if job != nil {
		log = baseLog.With(
			"job_id", job.ID,
			"queue", job.Queue,
			"attempt", job.Attempts,
			"max_attempts", job.MaxAttempts,
		)
	}
	return &Context{Ctx: ctx, DB: db, Job: job, Repo: repo, Log: log}
}

// Decode unmarshals the payload into v and validates it. A payload that
// cannot be decoded will never succeed, so the error is Permanent.
func (c *Context) Decode(v any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return Permanent(fmt.Errorf("job has no payload"))
	}
	if err := json.Unmarshal(c.Job.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if err := queue.ValidatePayload(v); err != nil {
		return Permanent(err)
	}
	return nil
}

// Attempt is the 1-based delivery number of this run.
func (c *Context) Attempt() int {
	if c.Job == nil {
		return 0
	}
	return c.Job.Attempts
}

func (c *Context) FinalAttempt() bool {
	return c.Job != nil && c.Job.Exhausted()
}

func (c *Context) JobID() uuid.UUID {
	if c.Job == nil {
		return uuid.Nil
	}
	return c.Job.ID
}

// Progress records the current stage and refreshes the heartbeat.
func (c *Context) Progress(stage string) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		if err := c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, map[string]interface{}{
			"stage":        stage,
			"heartbeat_at": now,
		}); err != nil {
			c.Log.Warn("Progress update failed", "stage", stage, "error", err)
		}
	}
	c.Job.Stage = stage
	c.Job.HeartbeatAt = &now
	c.Log.Debug("Job stage", "stage", stage)
}
