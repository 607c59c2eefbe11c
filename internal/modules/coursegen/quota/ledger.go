package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

var ErrQuotaExceeded = errors.New("quota exceeded")

// ExceededError carries the ledger state at the time of the rejected reservation.
type ExceededError struct {
	Requested int
	Used      int
	Limit     int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: requested %d, used %d of %d", e.Requested, e.Used, e.Limit)
}

func (e *ExceededError) Unwrap() error { return ErrQuotaExceeded }

type Ledger interface {
	Reserve(dbc dbctx.Context, userID uuid.UUID, tokens int) (*types.UserQuota, error)
	Reconcile(dbc dbctx.Context, userID uuid.UUID, delta int) error
	Refund(dbc dbctx.Context, userID uuid.UUID, tokens int) error
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserQuota, error)
}

type ledger struct {
	db           *gorm.DB
	log          *logger.Logger
	repo         repos.UserQuotaRepo
	defaultLimit int
	now          func() time.Time
}

func NewLedger(db *gorm.DB, baseLog *logger.Logger, repo repos.UserQuotaRepo, defaultLimit int) Ledger {
	if defaultLimit <= 0 {
		defaultLimit = types.DefaultMonthlyLimit
	}
	return &ledger{
		db:           db,
		log:          baseLog.With("service", "QuotaLedger"),
		repo:         repo,
		defaultLimit: defaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Reserve debits tokens up front. It lazily creates the row, rolls the
// monthly window if needed, and performs a single conditional increment.
// On ErrQuotaExceeded nothing is written to used.
func (l *ledger) Reserve(dbc dbctx.Context, userID uuid.UUID, tokens int) (*types.UserQuota, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("reserve: missing user id")
	}
	if tokens < 0 {
		return nil, fmt.Errorf("reserve: negative tokens %d", tokens)
	}
	var out *types.UserQuota
	err := l.inTx(dbc, func(txc dbctx.Context) error {
		period := types.PeriodStartFor(l.now())
		if err := l.repo.EnsureRow(txc, userID, l.defaultLimit, period); err != nil {
			return fmt.Errorf("ensure quota row: %w", err)
		}
		if err := l.repo.ResetIfNewPeriod(txc, userID, period); err != nil {
			return fmt.Errorf("reset quota period: %w", err)
		}
		ok, err := l.repo.TryIncrement(txc, userID, tokens)
		if err != nil {
			return fmt.Errorf("increment quota: %w", err)
		}
		row, err := l.repo.Get(txc, userID)
		if err != nil {
			return fmt.Errorf("load quota: %w", err)
		}
		if !ok {
			ex := &ExceededError{Requested: tokens}
			if row != nil {
				ex.Used, ex.Limit = row.Used, row.MonthlyLimit
			}
			return ex
		}
		out = row
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			l.log.Info("Quota reservation rejected", "user_id", userID, "tokens", tokens)
		}
		return nil, err
	}
	l.log.Debug("Quota reserved", "user_id", userID, "tokens", tokens, "used", out.Used)
	return out, nil
}

// Reconcile applies used += delta. The caller must pass the same
// transaction that writes the generated content.
func (l *ledger) Reconcile(dbc dbctx.Context, userID uuid.UUID, delta int) error {
	if dbc.Tx == nil {
		return fmt.Errorf("reconcile: requires the content transaction")
	}
	if delta == 0 {
		return nil
	}
	ok, err := l.repo.Adjust(dbc, userID, delta)
	if err != nil {
		return fmt.Errorf("reconcile quota: %w", err)
	}
	if !ok {
		return fmt.Errorf("reconcile quota: no ledger row for user %s", userID)
	}
	return nil
}

// Refund returns a failed job's reservation. It runs outside any content
// transaction.
func (l *ledger) Refund(dbc dbctx.Context, userID uuid.UUID, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	ok, err := l.repo.Adjust(dbc, userID, -tokens)
	if err != nil {
		return fmt.Errorf("refund quota: %w", err)
	}
	if !ok {
		return fmt.Errorf("refund quota: no ledger row for user %s", userID)
	}
	return nil
}

// Get returns the caller's ledger, creating and rolling it like Reserve would.
func (l *ledger) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserQuota, error) {
	var out *types.UserQuota
	err := l.inTx(dbc, func(txc dbctx.Context) error {
		period := types.PeriodStartFor(l.now())
		if err := l.repo.EnsureRow(txc, userID, l.defaultLimit, period); err != nil {
			return err
		}
		if err := l.repo.ResetIfNewPeriod(txc, userID, period); err != nil {
			return err
		}
		row, err := l.repo.Get(txc, userID)
		out = row
		return err
	})
	return out, err
}

func (l *ledger) inTx(dbc dbctx.Context, fn func(txc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return dbc.Conn(l.db).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}
