package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	DispatcherPoll     = "poll"
	DispatcherTemporal = "temporal"
)

type JobRun struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Queue       string     `gorm:"column:queue;not null;index" json:"queue"`
	EntityType  string     `gorm:"column:entity_type;index" json:"entity_type,omitempty"`
	EntityID    *uuid.UUID `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	Dispatcher  string     `gorm:"column:dispatcher;not null;default:'poll';index" json:"dispatcher"`

	Status         string     `gorm:"column:status;not null;index" json:"status"`
	Stage          string     `gorm:"column:stage;not null" json:"stage"`
	Attempts       int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts    int        `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	BackoffSeconds int        `gorm:"column:backoff_seconds;not null;default:60" json:"backoff_seconds"`
	NextRunAt      time.Time  `gorm:"column:next_run_at;not null;index" json:"next_run_at"`
	LockedAt       *time.Time `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	Error          string     `gorm:"column:error;type:text" json:"error,omitempty"`

	RemoveOnComplete bool           `gorm:"column:remove_on_complete;not null" json:"remove_on_complete"`
	Payload          datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result           datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Exhausted reports whether no further attempts are allowed.
func (j *JobRun) Exhausted() bool {
	return j.MaxAttempts > 0 && j.Attempts >= j.MaxAttempts
}

// BackoffFor returns the delay before the retry that follows attempt n:
// base * 2^(n-1).
func BackoffFor(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	return base * time.Duration(1<<(attempt-1))
}
