package billing

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMonthlyLimit = 50000

// UserQuota is the per-user monthly token ledger. Used only ever moves
// through atomic increments in SQL, never a read-modify-write in Go.
type UserQuota struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	MonthlyLimit int       `gorm:"column:monthly_limit;not null" json:"monthly_limit"`
	Used         int       `gorm:"column:used;not null;default:0" json:"used"`
	// PeriodStart is the first instant (UTC) of the month Used is counted for.
	PeriodStart time.Time `gorm:"column:period_start;not null" json:"period_start"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (UserQuota) TableName() string { return "user_quota" }

func (q *UserQuota) Remaining() int {
	if q == nil {
		return 0
	}
	if r := q.MonthlyLimit - q.Used; r > 0 {
		return r
	}
	return 0
}

// PeriodStartFor truncates t to the start of its calendar month in UTC.
func PeriodStartFor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
