package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrValidation = errors.New("validation failed")

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every violated field of one document.
type Error struct {
	Document   string
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Document, ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return ErrValidation }

type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

type Quiz struct {
	Questions []Question `json:"questions"`
}

type Lesson struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	CodeExample string `json:"code_example,omitempty"`
	// YouTubeSearchQuery is a search keyword, never a URL.
	YouTubeSearchQuery string `json:"youtube_search_query,omitempty"`
	Quiz               Quiz   `json:"quiz"`
}

type Module struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Course struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Modules     []Module `json:"modules"`
}

type Translation struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var (
	courseSchema      = mustSchema(CourseSchema())
	translationSchema = mustSchema(TranslationSchema())
)

func mustSchema(def map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		panic(fmt.Sprintf("validation: compile schema: %v", err))
	}
	return s
}

// ValidateCourse schema-checks raw JSON, decodes it, and then checks that
// every quiz answer is one of its options.
func ValidateCourse(raw []byte) (*Course, error) {
	if err := validateSchema("course", courseSchema, raw); err != nil {
		return nil, err
	}
	var c Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	if err := CheckAnswers(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func ValidateTranslation(raw []byte) (*Translation, error) {
	if err := validateSchema("translation", translationSchema, raw); err != nil {
		return nil, err
	}
	var t Translation
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode translation: %w", err)
	}
	return &t, nil
}

// CheckAnswers enforces answer ∈ options for every question.
func CheckAnswers(c *Course) error {
	var violations []Violation
	for mi, m := range c.Modules {
		for li, l := range m.Lessons {
			for qi, q := range l.Quiz.Questions {
				if containsOption(q.Options, q.Answer) {
					continue
				}
				violations = append(violations, Violation{
					Field:   fmt.Sprintf("modules.%d.lessons.%d.quiz.questions.%d.answer", mi, li, qi),
					Message: fmt.Sprintf("answer %q is not one of the options of question %q", q.Answer, q.Text),
				})
			}
		}
	}
	if len(violations) > 0 {
		return &Error{Document: "course", Violations: violations}
	}
	return nil
}

func containsOption(options []string, answer string) bool {
	answer = strings.TrimSpace(answer)
	for _, o := range options {
		if strings.TrimSpace(o) == answer {
			return true
		}
	}
	return false
}

func validateSchema(doc string, schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s schema check: %w", doc, err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, Violation{Field: fieldOf(re), Message: re.Description()})
	}
	sort.SliceStable(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
	return &Error{Document: doc, Violations: violations}
}

// fieldOf points required-property errors at the missing property itself.
func fieldOf(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok && prop != "" {
			if field == "(root)" || field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}
