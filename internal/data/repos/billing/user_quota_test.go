package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func newObservedRepo(t *testing.T) (UserQuotaRepo, *observer.ObservedLogs, uuid.UUID) {
	t.Helper()
	db := testutil.DB(t)
	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewUserQuotaRepo(db, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	user := uuid.New()
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := repo.EnsureRow(dbc, user, types.DefaultMonthlyLimit, types.PeriodStartFor(time.Now())); err != nil {
		t.Fatalf("EnsureRow: %v", err)
	}
	if ok, err := repo.TryIncrement(dbc, user, 500); err != nil || !ok {
		t.Fatalf("TryIncrement: ok=%v err=%v", ok, err)
	}
	return repo, logs, user
}

func TestAdjustWithinBoundsDoesNotWarn(t *testing.T) {
	repo, logs, user := newObservedRepo(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if ok, err := repo.Adjust(dbc, user, -200); err != nil || !ok {
		t.Fatalf("Adjust: ok=%v err=%v", ok, err)
	}
	q, err := repo.Get(dbc, user)
	if err != nil || q.Used != 300 {
		t.Fatalf("used=%v err=%v", q, err)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %d", logs.Len())
	}
}

func TestAdjustClampsAtZeroAndWarns(t *testing.T) {
	repo, logs, user := newObservedRepo(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if ok, err := repo.Adjust(dbc, user, -2000); err != nil || !ok {
		t.Fatalf("Adjust: ok=%v err=%v", ok, err)
	}
	q, err := repo.Get(dbc, user)
	if err != nil || q.Used != 0 {
		t.Fatalf("used=%v err=%v", q, err)
	}
	clamped := logs.FilterMessage("Quota adjustment clamped at zero").All()
	if len(clamped) != 1 {
		t.Fatalf("clamp warnings=%d", len(clamped))
	}
	fields := clamped[0].ContextMap()
	if fields["dropped"] != int64(1500) {
		t.Fatalf("dropped=%v", fields["dropped"])
	}
}

func TestAdjustMissingRow(t *testing.T) {
	repo, logs, _ := newObservedRepo(t)
	ok, err := repo.Adjust(dbctx.Context{Ctx: context.Background()}, uuid.New(), -10)
	if err != nil || ok {
		t.Fatalf("missing row: ok=%v err=%v", ok, err)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %d", logs.Len())
	}
}
