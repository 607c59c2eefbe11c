package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/redis"
)

const (
	EventJobCreated  = "JobCreated"
	EventJobDone     = "JobDone"
	EventJobRetrying = "JobRetrying"
	EventJobFailed   = "JobFailed"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobDone(userID uuid.UUID, job *types.JobRun)
	JobRetrying(userID uuid.UUID, job *types.JobRun, errorMessage string, nextRunAt time.Time)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
}

type jobNotifier struct {
	log *logger.Logger
	bus redis.JobBus
}

// NewJobNotifier publishes job events on bus. A nil bus only logs them.
func NewJobNotifier(baseLog *logger.Logger, bus redis.JobBus) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), bus: bus}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	n.emit(EventJobCreated, userID, job, "")
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	n.emit(EventJobDone, userID, job, "")
}

func (n *jobNotifier) JobRetrying(userID uuid.UUID, job *types.JobRun, errorMessage string, nextRunAt time.Time) {
	n.log.Info("Job scheduled for retry", "job_id", job.ID, "queue", job.Queue, "attempt", job.Attempts, "next_run_at", nextRunAt)
	n.emit(EventJobRetrying, userID, job, errorMessage)
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	n.log.Warn("Job failed", "job_id", job.ID, "queue", job.Queue, "stage", stage, "attempt", job.Attempts, "error", errorMessage)
	n.emit(EventJobFailed, userID, job, errorMessage)
}

func (n *jobNotifier) emit(event string, userID uuid.UUID, job *types.JobRun, errMsg string) {
	if job == nil {
		return
	}
	if n.bus == nil {
		n.log.Debug("Job event", "event", event, "job_id", job.ID, "queue", job.Queue)
		return
	}
	ev := redis.JobEvent{
		Type:        event,
		JobID:       job.ID.String(),
		Queue:       job.Queue,
		EntityType:  job.EntityType,
		OwnerUserID: userID.String(),
		Attempt:     job.Attempts,
		Error:       errMsg,
		At:          time.Now().UTC(),
	}
	if job.EntityID != nil {
		ev.EntityID = job.EntityID.String()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("Job event publish failed", "event", event, "job_id", job.ID, "error", err)
	}
}
