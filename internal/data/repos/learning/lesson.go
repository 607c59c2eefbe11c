package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// LessonOwner resolves a lesson to the course (and creator) it belongs to.
type LessonOwner struct {
	LessonID       uuid.UUID
	CourseID       uuid.UUID
	CreatorID      uuid.UUID
	CourseLanguage string
}

type LessonRepo interface {
	GetOwner(dbc dbctx.Context, lessonID uuid.UUID) (*LessonOwner, error)
}

type LessonContentRepo interface {
	GetByLessonAndLanguage(dbc dbctx.Context, lessonID uuid.UUID, language string) (*types.LessonContent, error)
	Upsert(dbc dbctx.Context, content *types.LessonContent) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) GetOwner(dbc dbctx.Context, lessonID uuid.UUID) (*LessonOwner, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var rows []struct {
		LessonID  uuid.UUID
		CourseID  uuid.UUID
		CreatorID uuid.UUID
		Language  string
	}
	err := dbc.Conn(r.db).
		Table("lesson").
		Select("lesson.id AS lesson_id, course.id AS course_id, course.creator_id AS creator_id, course.language AS language").
		Joins("JOIN course_module ON course_module.id = lesson.module_id").
		Joins("JOIN course ON course.id = course_module.course_id AND course.deleted_at IS NULL").
		Where("lesson.id = ?", lessonID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &LessonOwner{
		LessonID:       rows[0].LessonID,
		CourseID:       rows[0].CourseID,
		CreatorID:      rows[0].CreatorID,
		CourseLanguage: rows[0].Language,
	}, nil
}

type lessonContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonContentRepo(db *gorm.DB, baseLog *logger.Logger) LessonContentRepo {
	return &lessonContentRepo{db: db, log: baseLog.With("repo", "LessonContentRepo")}
}

func (r *lessonContentRepo) GetByLessonAndLanguage(dbc dbctx.Context, lessonID uuid.UUID, language string) (*types.LessonContent, error) {
	var lc types.LessonContent
	err := dbc.Conn(r.db).
		Where("lesson_id = ? AND language = ?", lessonID, language).
		Limit(1).
		Find(&lc).Error
	if err != nil {
		return nil, err
	}
	if lc.ID == uuid.Nil {
		return nil, nil
	}
	return &lc, nil
}

// Upsert inserts the variant or overwrites the existing (lesson_id, language) row.
func (r *lessonContentRepo) Upsert(dbc dbctx.Context, content *types.LessonContent) error {
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "language"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "content", "code_example", "updated_at"}),
		}).
		Create(content).Error
}
