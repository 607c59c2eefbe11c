package course_generate

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/generation"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/media"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Pipeline struct {
	db             *gorm.DB
	log            *logger.Logger
	courses        repos.CourseRepo
	ledger         quota.Ledger
	gen            generation.Client
	media          *media.Resolver
	profiles       *profiles.Table
	publishTimeout time.Duration
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	ledger quota.Ledger,
	gen generation.Client,
	resolver *media.Resolver,
	table *profiles.Table,
	publishTimeout time.Duration,
) *Pipeline {
	if table == nil {
		table = profiles.Default()
	}
	if publishTimeout <= 0 {
		publishTimeout = 30 * time.Second
	}
	return &Pipeline{
		db:             db,
		log:            baseLog.With("job", queue.CourseGenerate),
		courses:        courses,
		ledger:         ledger,
		gen:            gen,
		media:          resolver,
		profiles:       table,
		publishTimeout: publishTimeout,
	}
}

func (p *Pipeline) Type() string { return queue.CourseGenerate }
