package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

type fakeHandler struct {
	queue string
	run   func(jc *runtime.Context) error
	calls int
}

func (h *fakeHandler) Type() string { return h.queue }
func (h *fakeHandler) Run(jc *runtime.Context) error {
	h.calls++
	return h.run(jc)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}
func (n *recordingNotifier) JobCreated(uuid.UUID, *types.JobRun) { n.add("created") }
func (n *recordingNotifier) JobDone(uuid.UUID, *types.JobRun)    { n.add("done") }
func (n *recordingNotifier) JobRetrying(uuid.UUID, *types.JobRun, string, time.Time) {
	n.add("retrying")
}
func (n *recordingNotifier) JobFailed(uuid.UUID, *types.JobRun, string, string) { n.add("failed") }

type harness struct {
	db     *gorm.DB
	repo   repos.JobRunRepo
	worker *Worker
	notify *recordingNotifier
}

func newHarness(t *testing.T, handlers ...runtime.Handler) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	n := &recordingNotifier{}
	exec := NewExecutor(db, log, repo, reg, n, time.Minute)
	return &harness{
		db:     db,
		repo:   repo,
		worker: NewWorker(log, repo, exec, Config{Concurrency: 1, StaleAfter: time.Minute}),
		notify: n,
	}
}

func (h *harness) seed(t *testing.T, queue string, mutate func(j *types.JobRun)) *types.JobRun {
	t.Helper()
	ctx := context.Background()
	job := testutil.SeedJob(t, ctx, h.db, queue, types.JobStatusQueued, time.Now().Add(-time.Second))
	if mutate != nil {
		mutate(job)
		if err := h.db.Save(job).Error; err != nil {
			t.Fatalf("save job: %v", err)
		}
	}
	return job
}

func (h *harness) runOnce(t *testing.T) {
	t.Helper()
	ran, err := h.worker.RunOnce(context.Background())
	if err != nil || !ran {
		t.Fatalf("RunOnce: ran=%v err=%v", ran, err)
	}
}

func (h *harness) load(t *testing.T, id uuid.UUID) *types.JobRun {
	t.Helper()
	job, err := h.repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return job
}

func TestSuccessRemovesJob(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(jc *runtime.Context) error {
		if jc.Attempt() != 1 || jc.JobID() == uuid.Nil {
			t.Errorf("delivery metadata: attempt=%d", jc.Attempt())
		}
		jc.Progress("working")
		return nil
	}})
	job := h.seed(t, "q", nil)
	h.runOnce(t)

	if got := h.load(t, job.ID); got != nil {
		t.Fatalf("job row should be removed on success, got %+v", got)
	}
	if len(h.notify.events) != 1 || h.notify.events[0] != "done" {
		t.Fatalf("events=%v", h.notify.events)
	}
}

func TestSuccessKeepsJobWhenConfigured(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(*runtime.Context) error { return nil }})
	job := h.seed(t, "q", func(j *types.JobRun) { j.RemoveOnComplete = false })
	h.runOnce(t)

	got := h.load(t, job.ID)
	if got == nil || got.Status != types.JobStatusSucceeded {
		t.Fatalf("expected succeeded row, got %+v", got)
	}
}

func TestFailureSchedulesExponentialBackoff(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(*runtime.Context) error { return errors.New("backend timeout") }})
	job := h.seed(t, "q", func(j *types.JobRun) { j.Attempts = 1 })

	before := time.Now().UTC()
	h.runOnce(t)
	got := h.load(t, job.ID)
	if got.Status != types.JobStatusQueued || got.Attempts != 2 {
		t.Fatalf("expected queued retry after attempt 2, got status=%s attempts=%d", got.Status, got.Attempts)
	}
	delay := got.NextRunAt.Sub(before)
	if delay < 119*time.Second || delay > 125*time.Second {
		t.Fatalf("second retry should wait ~120s, got %s", delay)
	}
	if got.Error != "backend timeout" {
		t.Fatalf("error=%q", got.Error)
	}
	if ran, _ := h.worker.RunOnce(context.Background()); ran {
		t.Fatalf("job ran before its backoff elapsed")
	}
	if h.notify.events[0] != "retrying" {
		t.Fatalf("events=%v", h.notify.events)
	}
}

func TestFinalAttemptFails(t *testing.T) {
	handler := &fakeHandler{queue: "q", run: func(*runtime.Context) error { return errors.New("still broken") }}
	h := newHarness(t, handler)
	job := h.seed(t, "q", func(j *types.JobRun) { j.Attempts = 2 })
	h.runOnce(t)

	got := h.load(t, job.ID)
	if got.Status != types.JobStatusFailed || got.Attempts != 3 {
		t.Fatalf("expected failed after 3 attempts, got %s/%d", got.Status, got.Attempts)
	}
	if h.notify.events[0] != "failed" {
		t.Fatalf("events=%v", h.notify.events)
	}
}

func TestPermanentErrorSkipsRetry(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(*runtime.Context) error {
		return runtime.Permanent(errors.New("bad payload"))
	}})
	job := h.seed(t, "q", nil)
	h.runOnce(t)
	if got := h.load(t, job.ID); got.Status != types.JobStatusFailed || got.Attempts != 1 {
		t.Fatalf("permanent error should fail immediately, got %s/%d", got.Status, got.Attempts)
	}
}

func TestPanicIsRetried(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(*runtime.Context) error { panic("nil map") }})
	job := h.seed(t, "q", nil)
	h.runOnce(t)
	got := h.load(t, job.ID)
	if got.Status != types.JobStatusQueued || got.Error != "panic: nil map" {
		t.Fatalf("panic should be retried, got %s %q", got.Status, got.Error)
	}
}

func TestMissingHandlerFails(t *testing.T) {
	h := newHarness(t)
	job := h.seed(t, "unknown", nil)
	h.runOnce(t)
	if got := h.load(t, job.ID); got.Status != types.JobStatusFailed {
		t.Fatalf("status=%s", got.Status)
	}
}

func TestSweepFailsExhaustedStaleJobs(t *testing.T) {
	h := newHarness(t)
	stale := time.Now().UTC().Add(-time.Hour)
	job := h.seed(t, "q", func(j *types.JobRun) {
		j.Status = types.JobStatusRunning
		j.Attempts = 3
		j.HeartbeatAt = &stale
	})
	if n := h.worker.Sweep(context.Background()); n != 1 {
		t.Fatalf("swept=%d", n)
	}
	if got := h.load(t, job.ID); got.Status != types.JobStatusFailed {
		t.Fatalf("status=%s", got.Status)
	}
}

func TestPanicResultIsMarked(t *testing.T) {
	h := newHarness(t, &fakeHandler{queue: "q", run: func(*runtime.Context) error { panic("boom") }})
	h.seed(t, "q", nil)
	job, err := h.repo.ClaimNextRunnable(dbctx.Context{Ctx: context.Background()}, time.Minute)
	if err != nil || job == nil {
		t.Fatalf("ClaimNextRunnable: job=%v err=%v", job, err)
	}
	res := h.worker.exec.Execute(context.Background(), job)
	if res.Outcome != OutcomeRetry || !IsPanic(res.Err) {
		t.Fatalf("outcome=%s panic=%v err=%v", res.Outcome, IsPanic(res.Err), res.Err)
	}
	if IsPanic(errors.New("plain")) {
		t.Fatalf("plain error reported as panic")
	}
}
