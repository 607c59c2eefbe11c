package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

type fakeDispatcher struct {
	err  error
	jobs []uuid.UUID
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, job *types.JobRun) error {
	f.jobs = append(f.jobs, job.ID)
	return f.err
}

func validPayload() CourseGeneratePayload {
	return CourseGeneratePayload{
		CourseID:       uuid.New(),
		UserID:         uuid.New(),
		Topic:          "Go closures",
		Difficulty:     "BEGINNER",
		Language:       "en",
		ReservedTokens: 2000,
		ProfileVersion: 1,
	}
}

func TestEnqueueAppliesDefaults(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	q := New(log, repo, Options{}, nil)
	ctx := context.Background()
	p := validPayload()

	job, err := q.Enqueue(dbctx.Context{Ctx: ctx}, Request{
		Queue:       CourseGenerate,
		OwnerUserID: p.UserID,
		EntityType:  EntityCourse,
		EntityID:    &p.CourseID,
		Payload:     p,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.JobStatusQueued || got.Dispatcher != types.JobDispatcherPoll {
		t.Fatalf("row: status=%s dispatcher=%s", got.Status, got.Dispatcher)
	}
	if got.MaxAttempts != 3 || got.BackoffSeconds != 60 || !got.RemoveOnComplete {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if !strings.Contains(string(got.Payload), `"course_id"`) {
		t.Fatalf("payload: %s", got.Payload)
	}
}

func TestEnqueueOverridesOptions(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	q := New(log, repos.NewJobRunRepo(db, log), Options{}, nil)
	keep := false
	p := LessonTranslatePayload{LessonID: uuid.New(), UserID: uuid.New(), Language: "es"}

	job, err := q.Enqueue(dbctx.Context{Ctx: context.Background()}, Request{
		Queue:       LessonTranslate,
		OwnerUserID: p.UserID,
		Payload:     p,
		Options:     Options{MaxAttempts: 5, Backoff: 10 * time.Second, RemoveOnComplete: &keep},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.MaxAttempts != 5 || job.BackoffSeconds != 10 || job.RemoveOnComplete {
		t.Fatalf("options not applied: %+v", job)
	}
}

func TestEnqueueRejectsInvalidPayload(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	q := New(log, repos.NewJobRunRepo(db, log), Options{}, nil)
	p := validPayload()
	p.Difficulty = "EXPERT"
	p.CourseID = uuid.Nil

	_, err := q.Enqueue(dbctx.Context{Ctx: context.Background()}, Request{Queue: CourseGenerate, OwnerUserID: p.UserID, Payload: p})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, field := range []string{"difficulty", "course_id"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name %s", err, field)
		}
	}
	var n int64
	db.Model(&types.JobRun{}).Count(&n)
	if n != 0 {
		t.Fatalf("invalid payload was enqueued")
	}
}

func TestDispatchFallsBackToPoll(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	d := &fakeDispatcher{err: errors.New("temporal unavailable")}
	q := New(log, repo, Options{}, d)
	ctx := context.Background()
	p := validPayload()

	job, err := q.Enqueue(dbctx.Context{Ctx: ctx}, Request{Queue: CourseGenerate, OwnerUserID: p.UserID, Payload: p})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Dispatcher != types.JobDispatcherTemporal {
		t.Fatalf("dispatcher=%s", job.Dispatcher)
	}
	if err := q.Dispatch(ctx, job); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, _ := repo.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	if got.Dispatcher != types.JobDispatcherPoll || len(d.jobs) != 1 {
		t.Fatalf("expected poll fallback, got %s (dispatched %d)", got.Dispatcher, len(d.jobs))
	}
}
