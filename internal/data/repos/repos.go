package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos/billing"
	"github.com/yungbote/coursegen-backend/internal/data/repos/jobs"
	"github.com/yungbote/coursegen-backend/internal/data/repos/learning"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type LessonContentRepo = learning.LessonContentRepo
type LessonOwner = learning.LessonOwner

type UserQuotaRepo = billing.UserQuotaRepo

type JobRunRepo = jobs.JobRunRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
func NewLessonContentRepo(db *gorm.DB, baseLog *logger.Logger) LessonContentRepo {
	return learning.NewLessonContentRepo(db, baseLog)
}
func NewUserQuotaRepo(db *gorm.DB, baseLog *logger.Logger) UserQuotaRepo {
	return billing.NewUserQuotaRepo(db, baseLog)
}
func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
