package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)

type CreateCourseInput struct {
	Topic       string `json:"topic" validate:"required,max=300"`
	Description string `json:"description" validate:"max=4000"`
	Difficulty  string `json:"difficulty"`
	Language    string `json:"language" validate:"omitempty,min=2,max=32"`
	RawText     string `json:"raw_text" validate:"max=200000"`
}

type CourseStatus struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type QuotaSummary struct {
	MonthlyLimit int `json:"monthly_limit"`
	Used         int `json:"used"`
	Remaining    int `json:"remaining"`
}

type CourseService interface {
	CreateCourse(ctx context.Context, userID uuid.UUID, in CreateCourseInput) (*types.Course, *types.JobRun, error)
	GetStatus(ctx context.Context, userID, courseID uuid.UUID) (*CourseStatus, error)
	GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error)
	DeleteCourse(ctx context.Context, userID, courseID uuid.UUID) error
	RequestTranslation(ctx context.Context, userID, lessonID uuid.UUID, language string) (*types.JobRun, error)
	GetQuota(ctx context.Context, userID uuid.UUID) (*QuotaSummary, error)
}

type courseService struct {
	db       *gorm.DB
	log      *logger.Logger
	courses  repos.CourseRepo
	lessons  repos.LessonRepo
	ledger   quota.Ledger
	jobs     *queue.Queue
	profiles *profiles.Table
	notify   JobNotifier
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	ledger quota.Ledger,
	jobs *queue.Queue,
	table *profiles.Table,
	notify JobNotifier,
) CourseService {
	if table == nil {
		table = profiles.Default()
	}
	return &courseService{
		db:       db,
		log:      baseLog.With("service", "CourseService"),
		courses:  courses,
		lessons:  lessons,
		ledger:   ledger,
		jobs:     jobs,
		profiles: table,
		notify:   notify,
	}
}

// CreateCourse writes the GENERATING shell, reserves the tier's budget and
// enqueues generation in one transaction. A rejected reservation rolls
// everything back, so the caller is neither charged nor queued.
func (s *courseService) CreateCourse(ctx context.Context, userID uuid.UUID, in CreateCourseInput) (*types.Course, *types.JobRun, error) {
	if userID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: missing user", ErrInvalidArgument)
	}
	in.Topic = strings.TrimSpace(in.Topic)
	if err := queue.Validator().Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	profile := s.profiles.For(in.Difficulty)
	difficulty := profiles.Normalize(in.Difficulty)
	if !s.profiles.Known(difficulty) {
		s.log.Debug("Unknown difficulty, using default tier", "difficulty", in.Difficulty, "tier", profile.Difficulty)
		difficulty = profile.Difficulty
	}
	language := strings.ToLower(strings.TrimSpace(in.Language))
	if language == "" {
		language = types.CanonicalLanguage
	}
	budget := s.profiles.TokenBudgetFor(difficulty)

	var (
		course *types.Course
		job    *types.JobRun
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		created, err := s.courses.Create(txc, &types.Course{
			CreatorID:      userID,
			Title:          in.Topic,
			Description:    strings.TrimSpace(in.Description),
			Difficulty:     difficulty,
			Language:       language,
			RawText:        in.RawText,
			Status:         types.CourseStatusGenerating,
			ProfileVersion: s.profiles.Version(),
			ReservedTokens: budget,
		})
		if err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		if _, err := s.ledger.Reserve(txc, userID, budget); err != nil {
			return err
		}
		id := created.ID
		job, err = s.jobs.Enqueue(txc, queue.Request{
			Queue:       queue.CourseGenerate,
			OwnerUserID: userID,
			EntityType:  queue.EntityCourse,
			EntityID:    &id,
			Payload: queue.CourseGeneratePayload{
				CourseID:       created.ID,
				UserID:         userID,
				Topic:          in.Topic,
				Description:    created.Description,
				Difficulty:     difficulty,
				Language:       language,
				RawText:        in.RawText,
				ReservedTokens: budget,
				ProfileVersion: s.profiles.Version(),
			},
		})
		if err != nil {
			return err
		}
		course = created
		return nil
	})
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return nil, nil, err
		}
		s.log.Error("CreateCourse failed", "user_id", userID, "error", err)
		return nil, nil, err
	}

	s.afterEnqueue(ctx, userID, job)
	s.log.Info("Course generation queued", "course_id", course.ID, "job_id", job.ID, "difficulty", difficulty, "reserved_tokens", budget)
	return course, job, nil
}

func (s *courseService) GetStatus(ctx context.Context, userID, courseID uuid.UUID) (*CourseStatus, error) {
	c, err := s.owned(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseStatus{ID: c.ID, Status: c.Status, FailureReason: c.FailureReason}, nil
}

func (s *courseService) GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error) {
	if _, err := s.owned(ctx, userID, courseID); err != nil {
		return nil, err
	}
	c, err := s.courses.LoadTree(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// DeleteCourse soft-deletes the course. A course still GENERATING is first
// moved to FAILED and its reservation returned in the same transaction; the
// worker discards whatever it produces afterwards.
func (s *courseService) DeleteCourse(ctx context.Context, userID, courseID uuid.UUID) error {
	c, err := s.owned(ctx, userID, courseID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		ok, err := s.courses.TransitionStatus(txc, c.ID, []string{types.CourseStatusGenerating}, types.CourseStatusFailed, map[string]interface{}{
			"failure_reason": "deleted by owner",
		})
		if err != nil {
			return fmt.Errorf("cancel generation: %w", err)
		}
		if ok {
			if err := s.ledger.Refund(txc, userID, c.ReservedTokens); err != nil {
				return err
			}
		}
		if err := s.courses.SoftDelete(txc, c.ID); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
}

// RequestTranslation enqueues a lesson_translate job for a lesson the
// caller owns.
func (s *courseService) RequestTranslation(ctx context.Context, userID, lessonID uuid.UUID, language string) (*types.JobRun, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return nil, fmt.Errorf("%w: language is required", ErrInvalidArgument)
	}
	owner, err := s.lessons.GetOwner(dbctx.Context{Ctx: ctx}, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if owner == nil {
		return nil, ErrNotFound
	}
	if owner.CreatorID != userID {
		return nil, ErrForbidden
	}
	payload := queue.LessonTranslatePayload{LessonID: lessonID, UserID: userID, Language: language}
	if err := queue.ValidatePayload(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	id := lessonID
	job, err := s.jobs.Enqueue(dbctx.Context{Ctx: ctx}, queue.Request{
		Queue:       queue.LessonTranslate,
		OwnerUserID: userID,
		EntityType:  queue.EntityLesson,
		EntityID:    &id,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}
	s.afterEnqueue(ctx, userID, job)
	return job, nil
}

func (s *courseService) GetQuota(ctx context.Context, userID uuid.UUID) (*QuotaSummary, error) {
	row, err := s.ledger.Get(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load quota: %w", err)
	}
	remaining := row.MonthlyLimit - row.Used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaSummary{MonthlyLimit: row.MonthlyLimit, Used: row.Used, Remaining: remaining}, nil
}

func (s *courseService) owned(ctx context.Context, userID, courseID uuid.UUID) (*types.Course, error) {
	c, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.CreatorID != userID {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *courseService) afterEnqueue(ctx context.Context, userID uuid.UUID, job *types.JobRun) {
	if err := s.jobs.Dispatch(ctx, job); err != nil {
		s.log.Warn("Job dispatch failed", "job_id", job.ID, "error", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(userID, job)
	}
}
