package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// UserQuotaRepo mutates the ledger row only through single SQL statements.
type UserQuotaRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserQuota, error)
	EnsureRow(dbc dbctx.Context, userID uuid.UUID, monthlyLimit int, periodStart time.Time) error
	ResetIfNewPeriod(dbc dbctx.Context, userID uuid.UUID, periodStart time.Time) error
	TryIncrement(dbc dbctx.Context, userID uuid.UUID, tokens int) (bool, error)
	Adjust(dbc dbctx.Context, userID uuid.UUID, delta int) (bool, error)
}

type userQuotaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserQuotaRepo(db *gorm.DB, baseLog *logger.Logger) UserQuotaRepo {
	return &userQuotaRepo{
		db:  db,
		log: baseLog.With("repo", "UserQuotaRepo"),
	}
}

func (r *userQuotaRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserQuota, error) {
	var q types.UserQuota
	if err := dbc.Conn(r.db).Where("user_id = ?", userID).Limit(1).Find(&q).Error; err != nil {
		return nil, err
	}
	if q.UserID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

// EnsureRow lazily creates the ledger row. Concurrent first requests race
// on the primary key and the loser is a no-op.
func (r *userQuotaRepo) EnsureRow(dbc dbctx.Context, userID uuid.UUID, monthlyLimit int, periodStart time.Time) error {
	now := time.Now().UTC()
	row := &types.UserQuota{
		UserID:       userID,
		MonthlyLimit: monthlyLimit,
		Used:         0,
		PeriodStart:  periodStart.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error
}

func (r *userQuotaRepo) ResetIfNewPeriod(dbc dbctx.Context, userID uuid.UUID, periodStart time.Time) error {
	return dbc.Conn(r.db).
		Model(&types.UserQuota{}).
		Where("user_id = ? AND period_start < ?", userID, periodStart.UTC()).
		Updates(map[string]interface{}{
			"used":         0,
			"period_start": periodStart.UTC(),
			"updated_at":   time.Now().UTC(),
		}).Error
}

// TryIncrement adds tokens only if the result stays within monthly_limit.
// The check and the write are one statement, so concurrent reservations
// cannot overshoot. Returns false when the limit would be exceeded.
func (r *userQuotaRepo) TryIncrement(dbc dbctx.Context, userID uuid.UUID, tokens int) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.UserQuota{}).
		Where("user_id = ? AND used + ? <= monthly_limit", userID, tokens).
		Updates(map[string]interface{}{
			"used":       gorm.Expr("used + ?", tokens),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Adjust applies a signed delta. A delta that would drive used below zero
// clamps at zero and logs the dropped amount. Returns false when no ledger
// row exists.
func (r *userQuotaRepo) Adjust(dbc dbctx.Context, userID uuid.UUID, delta int) (bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()
		res := dbc.Conn(r.db).
			Model(&types.UserQuota{}).
			Where("user_id = ? AND used + ? >= 0", userID, delta).
			Updates(map[string]interface{}{
				"used":       gorm.Expr("used + ?", delta),
				"updated_at": now,
			})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}

		// no row, or the delta overshoots zero
		before, err := r.Get(dbc, userID)
		if err != nil {
			return false, err
		}
		if before == nil {
			return false, nil
		}
		res = dbc.Conn(r.db).
			Model(&types.UserQuota{}).
			Where("user_id = ? AND used + ? < 0", userID, delta).
			Updates(map[string]interface{}{
				"used":       0,
				"updated_at": now,
			})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			r.log.Warn("Quota adjustment clamped at zero",
				"user_id", userID,
				"delta", delta,
				"used_before", before.Used,
				"dropped", -(before.Used + delta),
			)
			return true, nil
		}
		// used moved between the two statements; try again
	}
	return false, fmt.Errorf("adjust quota for %s: row kept changing", userID)
}
