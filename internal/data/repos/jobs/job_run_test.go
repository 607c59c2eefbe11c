package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	now := time.Now().UTC()
	older := testutil.SeedJob(t, ctx, db, "course_generate", types.JobStatusQueued, now.Add(-2*time.Hour))
	newer := testutil.SeedJob(t, ctx, db, "lesson_translate", types.JobStatusQueued, now.Add(-1*time.Hour))

	// Not yet due.
	delayed := testutil.SeedJob(t, ctx, db, "course_generate", types.JobStatusQueued, now.Add(-3*time.Hour))
	if err := repo.UpdateFields(dbc, delayed.ID, map[string]interface{}{"next_run_at": now.Add(time.Hour)}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	// Owned by Temporal; the poller must never pick it up.
	temporalJob := testutil.SeedJob(t, ctx, db, "course_generate", types.JobStatusQueued, now.Add(-4*time.Hour))
	if err := repo.UpdateFields(dbc, temporalJob.ID, map[string]interface{}{"dispatcher": types.JobDispatcherTemporal}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	first, err := repo.ClaimNextRunnable(dbc, 10*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if first == nil || first.ID != older.ID {
		t.Fatalf("ClaimNextRunnable: expected %s, got %+v", older.ID, first)
	}
	if first.Attempts != 1 || first.Status != types.JobStatusRunning {
		t.Fatalf("claimed job: attempts=%d status=%s", first.Attempts, first.Status)
	}

	second, err := repo.ClaimNextRunnable(dbc, 10*time.Minute)
	if err != nil || second == nil || second.ID != newer.ID {
		t.Fatalf("second claim: err=%v job=%+v", err, second)
	}

	none, err := repo.ClaimNextRunnable(dbc, 10*time.Minute)
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if none != nil {
		t.Fatalf("third claim: expected nothing runnable, got %s", none.ID)
	}
}

func TestJobRunRepoRetryAndStale(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	now := time.Now().UTC()
	job := testutil.SeedJob(t, ctx, db, "course_generate", types.JobStatusQueued, now.Add(-time.Hour))

	claimed, err := repo.ClaimNextRunnable(dbc, time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("claim: err=%v job=%v", err, claimed)
	}
	if err := repo.MarkRetry(dbc, job.ID, "generate", now.Add(time.Minute), "backend down"); err != nil {
		t.Fatalf("MarkRetry: %v", err)
	}
	if again, _ := repo.ClaimNextRunnable(dbc, time.Minute); again != nil {
		t.Fatalf("retry should wait for next_run_at")
	}
	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{"next_run_at": now.Add(-time.Second)}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	again, err := repo.ClaimNextRunnable(dbc, time.Minute)
	if err != nil || again == nil || again.Attempts != 2 {
		t.Fatalf("reclaim: err=%v job=%+v", err, again)
	}

	// Simulate a crashed worker on the final attempt.
	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{
		"attempts":     3,
		"heartbeat_at": now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if stale, _ := repo.ClaimNextRunnable(dbc, time.Minute); stale != nil {
		t.Fatalf("exhausted stale job must not be reclaimed")
	}
	n, err := repo.FailStaleExhausted(dbc, time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("FailStaleExhausted: n=%d err=%v", n, err)
	}
	row, err := repo.GetByID(dbc, job.ID)
	if err != nil || row == nil || row.Status != types.JobStatusFailed {
		t.Fatalf("GetByID: err=%v row=%+v", err, row)
	}
}

func TestJobRunRepoMarkRunningAndDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	job := testutil.SeedJob(t, ctx, db, "lesson_translate", types.JobStatusQueued, time.Now())
	running, err := repo.MarkRunning(dbc, job.ID)
	if err != nil || running == nil || running.Attempts != 1 {
		t.Fatalf("MarkRunning: err=%v job=%+v", err, running)
	}
	if err := repo.MarkSucceeded(dbc, job.ID, nil); err != nil {
		t.Fatalf("MarkSucceeded: %v", err)
	}
	if again, err := repo.MarkRunning(dbc, job.ID); err != nil || again != nil {
		t.Fatalf("MarkRunning on finished job: err=%v job=%v", err, again)
	}
	if err := repo.Delete(dbc, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if row, _ := repo.GetByID(dbc, job.ID); row != nil {
		t.Fatalf("expected job row to be gone")
	}
}
