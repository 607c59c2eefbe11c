package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/jobs/pipeline/course_generate"
	"github.com/yungbote/coursegen-backend/internal/jobs/pipeline/lesson_translate"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	jobworker "github.com/yungbote/coursegen-backend/internal/jobs/worker"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/generation"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/media"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
	"github.com/yungbote/coursegen-backend/internal/temporalx/jobrun"
	"github.com/yungbote/coursegen-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Profiles *profiles.Table
	Ledger   quota.Ledger
	Queue    *queue.Queue
	Notifier services.JobNotifier
	Course   services.CourseService

	// worker side; nil in api mode
	Registry       *runtime.Registry
	Executor       *jobworker.Executor
	JobWorker      *jobworker.Worker
	TemporalRunner *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, r Repos) (Services, error) {
	log.Info("Wiring services...")
	table := profiles.Default()
	ledger := quota.NewLedger(db, log, r.UserQuota, cfg.QuotaMonthlyLimit)
	notifier := services.NewJobNotifier(log, clients.JobBus)

	var dispatcher queue.Dispatcher
	if clients.Temporal != nil {
		dispatcher = jobrun.NewDispatcher(log, clients.Temporal, cfg.Temporal.TaskQueue)
	}
	q := queue.New(log, r.JobRun, queue.Options{
		MaxAttempts: cfg.JobMaxAttempts,
		Backoff:     cfg.JobBackoff,
	}, dispatcher)

	out := Services{
		Profiles: table,
		Ledger:   ledger,
		Queue:    q,
		Notifier: notifier,
		Course:   services.NewCourseService(db, log, r.Course, r.Lesson, ledger, q, table, notifier),
	}
	if !cfg.RunsWorkers() {
		return out, nil
	}

	gen := generation.NewClient(log, clients.LLM, table)
	resolver := media.NewResolver(log, clients.YouTube, cfg.MediaConcurrency)

	registry := runtime.NewRegistry()
	for _, h := range []runtime.Handler{
		course_generate.New(db, log, r.Course, ledger, gen, resolver, table, cfg.PublishTxTimeout),
		lesson_translate.New(log, r.Lesson, r.LessonContent, gen),
	} {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register %s handler: %w", h.Type(), err)
		}
	}
	exec := jobworker.NewExecutor(db, log, r.JobRun, registry, notifier, cfg.JobHeartbeat)

	out.Registry = registry
	out.Executor = exec
	out.JobWorker = jobworker.NewWorker(log, r.JobRun, exec, jobworker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.JobPollInterval,
		StaleAfter:   cfg.JobStaleAfter,
	})
	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, r.JobRun, exec)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalRunner = runner
	}
	return out, nil
}
