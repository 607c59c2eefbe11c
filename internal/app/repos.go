package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Repos struct {
	Course        repos.CourseRepo
	Lesson        repos.LessonRepo
	LessonContent repos.LessonContentRepo
	UserQuota     repos.UserQuotaRepo
	JobRun        repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:        repos.NewCourseRepo(db, log),
		Lesson:        repos.NewLessonRepo(db, log),
		LessonContent: repos.NewLessonContentRepo(db, log),
		UserQuota:     repos.NewUserQuotaRepo(db, log),
		JobRun:        repos.NewJobRunRepo(db, log),
	}
}
