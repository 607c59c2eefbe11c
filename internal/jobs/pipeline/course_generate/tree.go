package course_generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/media"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/validation"
)

func searchKeywords(doc *validation.Course) map[media.Position]string {
	out := map[media.Position]string{}
	for mi, m := range doc.Modules {
		for li, l := range m.Lessons {
			out[media.Position{Module: mi, Lesson: li}] = l.YouTubeSearchQuery
		}
	}
	return out
}

// buildTree maps the validated document to rows. Array order becomes the
// 1-based order column.
func buildTree(doc *validation.Course, urls map[media.Position]*string, language string) ([]*types.CourseModule, error) {
	modules := make([]*types.CourseModule, 0, len(doc.Modules))
	for mi, m := range doc.Modules {
		mod := &types.CourseModule{Order: mi + 1, Title: strings.TrimSpace(m.Title)}
		for li, l := range m.Lessons {
			lesson := types.Lesson{
				Order:      li + 1,
				YouTubeURL: urls[media.Position{Module: mi, Lesson: li}],
				Contents: []types.LessonContent{{
					Language:    language,
					Title:       strings.TrimSpace(l.Title),
					Content:     l.Content,
					CodeExample: l.CodeExample,
				}},
			}
			quiz := &types.Quiz{}
			for qi, q := range l.Quiz.Questions {
				// stored options and answer share the trimming the answer check applies
				trimmed := make([]string, len(q.Options))
				for i, o := range q.Options {
					trimmed[i] = strings.TrimSpace(o)
				}
				opts, err := json.Marshal(trimmed)
				if err != nil {
					return nil, fmt.Errorf("encode options for module %d lesson %d: %w", mi+1, li+1, err)
				}
				quiz.Questions = append(quiz.Questions, types.QuizQuestion{
					Order:   qi + 1,
					Text:    q.Text,
					Options: datatypes.JSON(opts),
					Answer:  strings.TrimSpace(q.Answer),
				})
			}
			lesson.Quiz = quiz
			mod.Lessons = append(mod.Lessons, lesson)
		}
		modules = append(modules, mod)
	}
	return modules, nil
}
