package lesson_translate

import (
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/generation"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Pipeline struct {
	log      *logger.Logger
	lessons  repos.LessonRepo
	contents repos.LessonContentRepo
	gen      generation.Client
}

func New(baseLog *logger.Logger, lessons repos.LessonRepo, contents repos.LessonContentRepo, gen generation.Client) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", queue.LessonTranslate),
		lessons:  lessons,
		contents: contents,
		gen:      gen,
	}
}

func (p *Pipeline) Type() string { return queue.LessonTranslate }
