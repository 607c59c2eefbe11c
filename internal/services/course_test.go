package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
)

type recordingNotifier struct {
	created []uuid.UUID
}

func (n *recordingNotifier) JobCreated(_ uuid.UUID, job *types.JobRun) {
	n.created = append(n.created, job.ID)
}
func (n *recordingNotifier) JobDone(uuid.UUID, *types.JobRun)                        {}
func (n *recordingNotifier) JobRetrying(uuid.UUID, *types.JobRun, string, time.Time) {}
func (n *recordingNotifier) JobFailed(uuid.UUID, *types.JobRun, string, string)      {}

type harness struct {
	db     *gorm.DB
	svc    CourseService
	ledger quota.Ledger
	notify *recordingNotifier
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ledger := quota.NewLedger(db, log, repos.NewUserQuotaRepo(db, log), limit)
	q := queue.New(log, repos.NewJobRunRepo(db, log), queue.Options{}, nil)
	n := &recordingNotifier{}
	svc := NewCourseService(db, log, repos.NewCourseRepo(db, log), repos.NewLessonRepo(db, log), ledger, q, profiles.Default(), n)
	return &harness{db: db, svc: svc, ledger: ledger, notify: n}
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateCourseReservesAndEnqueues(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	user := uuid.New()

	course, job, err := h.svc.CreateCourse(ctx, user, CreateCourseInput{Topic: " Go closures ", Difficulty: "beginner"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if course.Status != types.CourseStatusGenerating || course.Difficulty != "BEGINNER" || course.Language != "en" {
		t.Fatalf("course: %+v", course)
	}
	if course.Title != "Go closures" || course.ReservedTokens != 2000 {
		t.Fatalf("course: title=%q reserved=%d", course.Title, course.ReservedTokens)
	}
	if job.Queue != queue.CourseGenerate || job.Status != types.JobStatusQueued || job.MaxAttempts != 3 {
		t.Fatalf("job: %+v", job)
	}
	var payload queue.CourseGeneratePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.CourseID != course.ID || payload.ReservedTokens != 2000 || payload.ProfileVersion != profiles.Version() {
		t.Fatalf("payload: %+v", payload)
	}
	q, err := h.svc.GetQuota(ctx, user)
	if err != nil {
		t.Fatalf("GetQuota: %v", err)
	}
	if q.Used != 2000 || q.MonthlyLimit != 50000 || q.Remaining != 48000 {
		t.Fatalf("quota: %+v", q)
	}
	if len(h.notify.created) != 1 || h.notify.created[0] != job.ID {
		t.Fatalf("notifications: %v", h.notify.created)
	}
}

func TestCreateCourseUnknownDifficultyUsesDefaultTier(t *testing.T) {
	h := newHarness(t, 0)
	course, _, err := h.svc.CreateCourse(context.Background(), uuid.New(), CreateCourseInput{Topic: "Rust", Difficulty: "expert"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if course.Difficulty != "BEGINNER" || course.ReservedTokens != 2000 {
		t.Fatalf("course: difficulty=%s reserved=%d", course.Difficulty, course.ReservedTokens)
	}
}

func TestCreateCourseOverQuotaLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, 3000)
	ctx := context.Background()
	user := uuid.New()

	if _, _, err := h.svc.CreateCourse(ctx, user, CreateCourseInput{Topic: "Go", Difficulty: "BEGINNER"}); err != nil {
		t.Fatalf("first CreateCourse: %v", err)
	}
	_, _, err := h.svc.CreateCourse(ctx, user, CreateCourseInput{Topic: "Rust", Difficulty: "INTERMEDIATE"})
	if !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := h.count(t, &types.Course{}); got != 1 {
		t.Fatalf("courses=%d want 1", got)
	}
	if got := h.count(t, &types.JobRun{}); got != 1 {
		t.Fatalf("jobs=%d want 1", got)
	}
	q, err := h.svc.GetQuota(ctx, user)
	if err != nil || q.Used != 2000 {
		t.Fatalf("quota after rejection: %+v err=%v", q, err)
	}
}

func TestCreateCourseRejectsMissingTopic(t *testing.T) {
	h := newHarness(t, 0)
	_, _, err := h.svc.CreateCourse(context.Background(), uuid.New(), CreateCourseInput{Topic: "   "})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetStatusIsOwnershipGated(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	owner := uuid.New()
	course, _, err := h.svc.CreateCourse(ctx, owner, CreateCourseInput{Topic: "Go"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	st, err := h.svc.GetStatus(ctx, owner, course.ID)
	if err != nil || st.Status != types.CourseStatusGenerating {
		t.Fatalf("GetStatus: %+v err=%v", st, err)
	}
	if _, err := h.svc.GetStatus(ctx, uuid.New(), course.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := h.svc.GetStatus(ctx, owner, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteGeneratingCourseRefunds(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	owner := uuid.New()
	course, _, err := h.svc.CreateCourse(ctx, owner, CreateCourseInput{Topic: "Go", Difficulty: "ADVANCED"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	if err := h.svc.DeleteCourse(ctx, uuid.New(), course.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := h.svc.DeleteCourse(ctx, owner, course.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if _, err := h.svc.GetStatus(ctx, owner, course.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	q, err := h.svc.GetQuota(ctx, owner)
	if err != nil || q.Used != 0 {
		t.Fatalf("quota after delete: %+v err=%v", q, err)
	}
}

func TestRequestTranslation(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	owner := uuid.New()
	_, lesson := testutil.SeedLesson(t, ctx, h.db, owner)

	job, err := h.svc.RequestTranslation(ctx, owner, lesson.ID, " ES ")
	if err != nil {
		t.Fatalf("RequestTranslation: %v", err)
	}
	var payload queue.LessonTranslatePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if job.Queue != queue.LessonTranslate || payload.Language != "es" || payload.LessonID != lesson.ID {
		t.Fatalf("job=%+v payload=%+v", job, payload)
	}

	if _, err := h.svc.RequestTranslation(ctx, uuid.New(), lesson.ID, "es"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := h.svc.RequestTranslation(ctx, owner, uuid.New(), "es"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.svc.RequestTranslation(ctx, owner, lesson.ID, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
