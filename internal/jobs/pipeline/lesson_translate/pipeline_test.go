package lesson_translate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	jobrt "github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/generation"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/validation"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

type fakeGen struct {
	calls []string
	err   error
}

func (g *fakeGen) GenerateCourse(context.Context, generation.CourseRequest) (*validation.Course, error) {
	return nil, errors.New("not used")
}

func (g *fakeGen) TranslateLesson(ctx context.Context, title, content, lang string) (*validation.Translation, error) {
	g.calls = append(g.calls, lang)
	if g.err != nil {
		return nil, g.err
	}
	return &validation.Translation{Title: "[" + lang + "] " + title, Content: "[" + lang + "] " + content}, nil
}

type harness struct {
	db       *gorm.DB
	contents repos.LessonContentRepo
	gen      *fakeGen
	p        *Pipeline
	lesson   *types.Lesson
	user     uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	user := uuid.New()
	_, lesson := testutil.SeedLesson(t, context.Background(), db, user)
	contents := repos.NewLessonContentRepo(db, log)
	gen := &fakeGen{}
	return &harness{
		db:       db,
		contents: contents,
		gen:      gen,
		p:        New(log, repos.NewLessonRepo(db, log), contents, gen),
		lesson:   lesson,
		user:     user,
	}
}

func (h *harness) jobContext(t *testing.T, lessonID uuid.UUID, lang string) *jobrt.Context {
	t.Helper()
	payload, err := json.Marshal(queue.LessonTranslatePayload{LessonID: lessonID, UserID: h.user, Language: lang})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	job := &types.JobRun{ID: uuid.New(), Queue: queue.LessonTranslate, Attempts: 1, MaxAttempts: 3, Payload: datatypes.JSON(payload)}
	return jobrt.NewContext(context.Background(), h.db, job, nil, testutil.Logger(t))
}

func (h *harness) variant(t *testing.T, lang string) *types.LessonContent {
	t.Helper()
	lc, err := h.contents.GetByLessonAndLanguage(dbctx.Context{Ctx: context.Background()}, h.lesson.ID, lang)
	if err != nil {
		t.Fatalf("GetByLessonAndLanguage: %v", err)
	}
	return lc
}

func TestRunUpsertsTranslatedVariant(t *testing.T) {
	h := newHarness(t)
	if err := h.p.Run(h.jobContext(t, h.lesson.ID, " ES ")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lc := h.variant(t, "es")
	if lc == nil {
		t.Fatalf("no es variant written")
	}
	if lc.Title != "[es] What is a closure" {
		t.Fatalf("title=%q", lc.Title)
	}
	src := h.variant(t, "en")
	if lc.CodeExample != src.CodeExample {
		t.Fatalf("code example not carried over")
	}

	// a second translation overwrites the same row
	if err := h.p.Run(h.jobContext(t, h.lesson.ID, "es")); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	var n int64
	h.db.Model(&types.LessonContent{}).Where("lesson_id = ? AND language = ?", h.lesson.ID, "es").Count(&n)
	if n != 1 {
		t.Fatalf("es variants=%d want 1", n)
	}
}

func TestRunHinglish(t *testing.T) {
	h := newHarness(t)
	if err := h.p.Run(h.jobContext(t, h.lesson.ID, "hinglish")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.gen.calls) != 1 || h.gen.calls[0] != generation.MixedLanguageTarget {
		t.Fatalf("calls=%v", h.gen.calls)
	}
	if h.variant(t, "hinglish") == nil {
		t.Fatalf("no hinglish variant")
	}
}

func TestRunMissingLessonIsPermanent(t *testing.T) {
	h := newHarness(t)
	err := h.p.Run(h.jobContext(t, uuid.New(), "es"))
	if !jobrt.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if len(h.gen.calls) != 0 {
		t.Fatalf("translation called for missing lesson")
	}
}

func TestRunMissingSourceIsPermanent(t *testing.T) {
	h := newHarness(t)
	if err := h.db.Where("lesson_id = ?", h.lesson.ID).Delete(&types.LessonContent{}).Error; err != nil {
		t.Fatalf("delete contents: %v", err)
	}
	err := h.p.Run(h.jobContext(t, h.lesson.ID, "es"))
	if !jobrt.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestRunBackendErrorIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.gen.err = generation.ErrBackend
	err := h.p.Run(h.jobContext(t, h.lesson.ID, "fr"))
	if !errors.Is(err, generation.ErrBackend) || jobrt.IsPermanent(err) {
		t.Fatalf("expected retryable backend error, got %v", err)
	}
	if h.variant(t, "fr") != nil {
		t.Fatalf("variant written on failure")
	}
}

func TestSourceLanguages(t *testing.T) {
	if got := sourceLanguages("EN"); len(got) != 1 || got[0] != "en" {
		t.Fatalf("sourceLanguages(EN)=%v", got)
	}
	if got := sourceLanguages("de"); len(got) != 2 || got[1] != "de" {
		t.Fatalf("sourceLanguages(de)=%v", got)
	}
}
