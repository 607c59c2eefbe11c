package lesson_translate

import (
	"fmt"
	"strings"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	jobrt "github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

// Run translates the canonical variant of a lesson and upserts the target
// variant. Re-running for the same (lesson, language) overwrites the row.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var in queue.LessonTranslatePayload
	if err := jc.Decode(&in); err != nil {
		return err
	}
	target := NormalizeLanguage(in.Language)
	log := jc.Log.With("lesson_id", in.LessonID, "language", target)
	dbc := dbctx.Context{Ctx: jc.Ctx}

	jc.Progress("load")
	owner, err := p.lessons.GetOwner(dbc, in.LessonID)
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}
	if owner == nil {
		return jobrt.Permanent(fmt.Errorf("lesson %s not found", in.LessonID))
	}

	var source *types.LessonContent
	for _, lang := range sourceLanguages(owner.CourseLanguage) {
		source, err = p.contents.GetByLessonAndLanguage(dbc, in.LessonID, lang)
		if err != nil {
			return fmt.Errorf("load source content: %w", err)
		}
		if source != nil {
			break
		}
	}
	if source == nil {
		return jobrt.Permanent(fmt.Errorf("lesson %s has no source content", in.LessonID))
	}
	if source.Language == target {
		log.Info("Target language matches source; nothing to translate")
		return nil
	}

	jc.Progress("translate")
	out, err := p.gen.TranslateLesson(jc.Ctx, source.Title, source.Content, target)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}

	jc.Progress("save")
	if err := p.contents.Upsert(dbc, &types.LessonContent{
		LessonID:    in.LessonID,
		Language:    target,
		Title:       strings.TrimSpace(out.Title),
		Content:     out.Content,
		CodeExample: source.CodeExample,
	}); err != nil {
		return fmt.Errorf("save translation: %w", err)
	}
	log.Info("Lesson translated", "source_language", source.Language, "attempt", jc.Attempt())
	return nil
}

func NormalizeLanguage(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// sourceLanguages is the lookup order for the variant to translate from:
// the canonical language first, then the course's own language.
func sourceLanguages(courseLanguage string) []string {
	out := []string{types.CanonicalLanguage}
	if l := NormalizeLanguage(courseLanguage); l != "" && l != types.CanonicalLanguage {
		out = append(out, l)
	}
	return out
}
