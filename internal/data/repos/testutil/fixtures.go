package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursegen-backend/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, difficulty string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:         uuid.New(),
		CreatorID:  creatorID,
		Title:      "Go closures",
		Difficulty: difficulty,
		Language:   "en",
		Status:     types.CourseStatusGenerating,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLesson creates a published course with one module and one lesson that
// has canonical-language content.
func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, creatorID uuid.UUID) (*types.Course, *types.Lesson) {
	tb.Helper()
	c := SeedCourse(tb, ctx, tx, creatorID, "BEGINNER")
	if err := tx.WithContext(ctx).Model(c).Update("status", types.CourseStatusPublished).Error; err != nil {
		tb.Fatalf("publish course: %v", err)
	}
	m := &types.CourseModule{CourseID: c.ID, Order: 1, Title: "Basics"}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	l := &types.Lesson{ModuleID: m.ID, Order: 1}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	lc := &types.LessonContent{
		LessonID:    l.ID,
		Language:    types.CanonicalLanguage,
		Title:       "What is a closure",
		Content:     "A closure captures variables from its enclosing scope.",
		CodeExample: "func counter() func() int { n := 0; return func() int { n++; return n } }",
	}
	if err := tx.WithContext(ctx).Create(lc).Error; err != nil {
		tb.Fatalf("seed lesson content: %v", err)
	}
	return c, l
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, queue, status string, createdAt time.Time) *types.JobRun {
	tb.Helper()
	createdAt = createdAt.UTC()
	j := &types.JobRun{
		ID:               uuid.New(),
		OwnerUserID:      uuid.New(),
		Queue:            queue,
		Dispatcher:       "poll",
		Status:           status,
		Stage:            status,
		MaxAttempts:      3,
		BackoffSeconds:   60,
		NextRunAt:        createdAt,
		RemoveOnComplete: true,
		Payload:          datatypes.JSON([]byte("{}")),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func PtrTime(v time.Time) *time.Time { return &v }
