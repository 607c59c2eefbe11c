package validation

const (
	MinContentLength = 50
	MinOptions       = 2
	MaxOptions       = 6
)

func stringSchema(minLength int) map[string]any {
	return map[string]any{"type": "string", "minLength": minLength}
}

func QuestionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": stringSchema(1),
			"options": map[string]any{
				"type":     "array",
				"items":    stringSchema(1),
				"minItems": MinOptions,
				"maxItems": MaxOptions,
			},
			"answer": stringSchema(1),
		},
		"required": []string{"text", "options", "answer"},
	}
}

func QuizSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"items":    QuestionSchema(),
				"minItems": 1,
			},
		},
		"required": []string{"questions"},
	}
}

func LessonSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":                stringSchema(1),
			"content":              stringSchema(MinContentLength),
			"code_example":         map[string]any{"type": "string"},
			"youtube_search_query": map[string]any{"type": "string"},
			"quiz":                 QuizSchema(),
		},
		"required": []string{"title", "content", "quiz"},
	}
}

func ModuleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": stringSchema(1),
			"lessons": map[string]any{
				"type":     "array",
				"items":    LessonSchema(),
				"minItems": 1,
			},
		},
		"required": []string{"title", "lessons"},
	}
}

// CourseSchema is the JSON contract for a generated course.
func CourseSchema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"title":       stringSchema(1),
			"description": map[string]any{"type": "string"},
			"modules": map[string]any{
				"type":     "array",
				"items":    ModuleSchema(),
				"minItems": 1,
			},
		},
		"required": []string{"title", "modules"},
	}
}

// TranslationSchema is the two-field contract for a translated lesson.
func TranslationSchema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"title":   stringSchema(1),
			"content": stringSchema(1),
		},
		"required": []string{"title", "content"},
	}
}
