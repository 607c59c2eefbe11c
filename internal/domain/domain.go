package domain

import (
	"github.com/yungbote/coursegen-backend/internal/domain/billing"
	"github.com/yungbote/coursegen-backend/internal/domain/jobs"
	"github.com/yungbote/coursegen-backend/internal/domain/learning"
)

const (
	CourseStatusGenerating = learning.CourseStatusGenerating
	CourseStatusPublished  = learning.CourseStatusPublished
	CourseStatusFailed     = learning.CourseStatusFailed

	CanonicalLanguage = learning.CanonicalLanguage

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed

	JobDispatcherPoll     = jobs.DispatcherPoll
	JobDispatcherTemporal = jobs.DispatcherTemporal

	DefaultMonthlyLimit = billing.DefaultMonthlyLimit
)

var (
	PeriodStartFor = billing.PeriodStartFor
	BackoffFor     = jobs.BackoffFor
)

type (
	Course        = learning.Course
	CourseModule  = learning.CourseModule
	Lesson        = learning.Lesson
	LessonContent = learning.LessonContent
	Quiz          = learning.Quiz
	QuizQuestion  = learning.QuizQuestion

	UserQuota = billing.UserQuota

	JobRun = jobs.JobRun
)

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&Course{},
		&CourseModule{},
		&Lesson{},
		&LessonContent{},
		&Quiz{},
		&QuizQuestion{},
		&UserQuota{},
		&JobRun{},
	}
}
