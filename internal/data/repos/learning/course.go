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

type CourseRepo interface {
	Create(dbc dbctx.Context, course *types.Course) (*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	LoadTree(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string, updates map[string]interface{}) (bool, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
	SaveTree(dbc dbctx.Context, courseID uuid.UUID, modules []*types.CourseModule) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{
		db:  db,
		log: baseLog.With("repo", "CourseRepo"),
	}
}

func (r *courseRepo) Create(dbc dbctx.Context, course *types.Course) (*types.Course, error) {
	if err := dbc.Conn(r.db).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// GetByID returns (nil, nil) when the course does not exist or was deleted.
func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Course
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *courseRepo) LoadTree(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	byOrder := func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}})
	}
	var c types.Course
	err := dbc.Conn(r.db).
		Preload("Modules", byOrder).
		Preload("Modules.Lessons", byOrder).
		Preload("Modules.Lessons.Contents").
		Preload("Modules.Lessons.Quiz").
		Preload("Modules.Lessons.Quiz.Questions", byOrder).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

// TransitionStatus moves the course to `to` only if its current status is
// one of `from`. Returns false when the guard did not match.
func (r *courseRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	fields := map[string]interface{}{}
	for k, v := range updates {
		fields[k] = v
	}
	fields["status"] = to
	fields["updated_at"] = time.Now().UTC()

	q := dbc.Conn(r.db).Model(&types.Course{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *courseRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Course{}).Error
}

// SaveTree inserts modules, lessons, lesson contents, quizzes and questions
// level by level. Callers pass a transaction; the tree is written in full or
// not at all.
func (r *courseRepo) SaveTree(dbc dbctx.Context, courseID uuid.UUID, modules []*types.CourseModule) error {
	if len(modules) == 0 {
		return nil
	}
	var (
		lessons   []*types.Lesson
		contents  []*types.LessonContent
		quizzes   []*types.Quiz
		questions []*types.QuizQuestion
	)
	for _, m := range modules {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CourseID = courseID
		for i := range m.Lessons {
			l := &m.Lessons[i]
			if l.ID == uuid.Nil {
				l.ID = uuid.New()
			}
			l.ModuleID = m.ID
			lessons = append(lessons, l)
			for j := range l.Contents {
				lc := &l.Contents[j]
				lc.LessonID = l.ID
				contents = append(contents, lc)
			}
			if l.Quiz != nil {
				if l.Quiz.ID == uuid.Nil {
					l.Quiz.ID = uuid.New()
				}
				l.Quiz.LessonID = l.ID
				quizzes = append(quizzes, l.Quiz)
				for k := range l.Quiz.Questions {
					qq := &l.Quiz.Questions[k]
					qq.QuizID = l.Quiz.ID
					questions = append(questions, qq)
				}
			}
		}
	}

	conn := dbc.Conn(r.db).Omit(clause.Associations).Session(&gorm.Session{})
	if err := conn.Create(&modules).Error; err != nil {
		return err
	}
	if len(lessons) > 0 {
		if err := conn.Create(&lessons).Error; err != nil {
			return err
		}
	}
	if len(contents) > 0 {
		if err := conn.Create(&contents).Error; err != nil {
			return err
		}
	}
	if len(quizzes) > 0 {
		if err := conn.Create(&quizzes).Error; err != nil {
			return err
		}
	}
	if len(questions) > 0 {
		if err := conn.Create(&questions).Error; err != nil {
			return err
		}
	}
	return nil
}
