package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, staleAfter time.Duration) (*types.JobRun, error)
	MarkRunning(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error
	MarkRetry(dbc dbctx.Context, id uuid.UUID, stage string, nextRunAt time.Time, errMsg string) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, stage string, errMsg string) error
	FailStaleExhausted(dbc dbctx.Context, staleAfter time.Duration) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	if len(jobs) == 0 {
		return []*types.JobRun{}, nil
	}
	if err := dbc.Conn(r.db).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

// ClaimNextRunnable locks the oldest poll-dispatched job that is either
// queued and due, or running with a heartbeat older than staleAfter and
// attempts left. The claim increments attempts.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, staleAfter time.Duration) (*types.JobRun, error) {
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleAfter)
	var claimed *types.JobRun
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("dispatcher = ?", types.JobDispatcherPoll).
			Where(`
        (
          (status = ? AND next_run_at <= ?)
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
            AND attempts < max_attempts
          )
        )
      `, types.JobStatusQueued, now, types.JobStatusRunning, staleCutoff).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		res := txx.Model(&types.JobRun{}).
			Where("id = ? AND status = ?", job.ID, job.Status).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"stage":        "claimed",
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		job.Status = types.JobStatusRunning
		job.Stage = "claimed"
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkRunning is the claim used when an external dispatcher (Temporal)
// owns delivery: it bumps attempts and returns the fresh row.
func (r *jobRunRepo) MarkRunning(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	now := time.Now().UTC()
	var out *types.JobRun
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&types.JobRun{}).
			Where("id = ? AND status IN ?", id, []string{types.JobStatusQueued, types.JobStatusRunning}).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"stage":        "claimed",
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var job types.JobRun
		if err := txx.Where("id = ?", id).First(&job).Error; err != nil {
			return err
		}
		out = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"stage":        "done",
		"error":        "",
		"result":       result,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	})
}

// MarkRetry puts the job back in the queue, runnable at nextRunAt.
func (r *jobRunRepo) MarkRetry(dbc dbctx.Context, id uuid.UUID, stage string, nextRunAt time.Time, errMsg string) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":        types.JobStatusQueued,
		"stage":         stage,
		"error":         errMsg,
		"next_run_at":   nextRunAt.UTC(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
}

func (r *jobRunRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, stage string, errMsg string) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"error":         errMsg,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
}

// FailStaleExhausted terminally fails running jobs whose worker vanished
// after their last allowed attempt.
func (r *jobRunRepo) FailStaleExhausted(dbc dbctx.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now().UTC()
	res := dbc.Conn(r.db).
		Model(&types.JobRun{}).
		Where("dispatcher = ? AND status = ? AND heartbeat_at < ? AND attempts >= max_attempts",
			types.JobDispatcherPoll, types.JobStatusRunning, now.Add(-staleAfter)).
		Updates(map[string]interface{}{
			"status":        types.JobStatusFailed,
			"stage":         "stale",
			"error":         "worker lost during final attempt",
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

func (r *jobRunRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.JobRun{}).Error
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return dbc.Conn(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
