// Package coursegentest builds generated-course documents for tests.
package coursegentest

import (
	"encoding/json"
	"fmt"
)

// Course returns a schema-valid course document as a generic map so tests
// can delete or corrupt individual fields before encoding it.
func Course(modules, lessonsPerModule int) map[string]any {
	mods := make([]any, 0, modules)
	for m := 1; m <= modules; m++ {
		lessons := make([]any, 0, lessonsPerModule)
		for l := 1; l <= lessonsPerModule; l++ {
			lessons = append(lessons, map[string]any{
				"title":                fmt.Sprintf("Lesson %d.%d", m, l),
				"content":              fmt.Sprintf("Lesson %d.%d explains how a closure captures variables from the scope that encloses it.", m, l),
				"code_example":         "func adder() func(int) int { sum := 0; return func(x int) int { sum += x; return sum } }",
				"youtube_search_query": fmt.Sprintf("go closures part %d %d", m, l),
				"quiz": map[string]any{
					"questions": []any{
						map[string]any{
							"text":    "What does a closure capture?",
							"options": []any{"variables", "packages", "goroutines"},
							"answer":  "variables",
						},
					},
				},
			})
		}
		mods = append(mods, map[string]any{
			"title":   fmt.Sprintf("Module %d", m),
			"lessons": lessons,
		})
	}
	return map[string]any{
		"title":       "Go closures",
		"description": "Functions that remember.",
		"modules":     mods,
	}
}

// CourseJSON encodes Course(modules, lessonsPerModule).
func CourseJSON(modules, lessonsPerModule int) []byte {
	return Encode(Course(modules, lessonsPerModule))
}

func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Lesson digs out module m, lesson l (zero-based) from a Course map.
func Lesson(doc map[string]any, m, l int) map[string]any {
	mod := doc["modules"].([]any)[m].(map[string]any)
	return mod["lessons"].([]any)[l].(map[string]any)
}

// Question digs out question q of lesson (m, l).
func Question(doc map[string]any, m, l, q int) map[string]any {
	quiz := Lesson(doc, m, l)["quiz"].(map[string]any)
	return quiz["questions"].([]any)[q].(map[string]any)
}
