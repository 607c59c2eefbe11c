package queue

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	CourseGenerate  = "course_generate"
	LessonTranslate = "lesson_translate"
)

const EntityCourse = "course"
const EntityLesson = "lesson"

type CourseGeneratePayload struct {
	CourseID       uuid.UUID `json:"course_id" validate:"required"`
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	Topic          string    `json:"topic" validate:"required,max=300"`
	Description    string    `json:"description,omitempty" validate:"max=4000"`
	Difficulty     string    `json:"difficulty" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Language       string    `json:"language" validate:"required,min=2,max=32"`
	RawText        string    `json:"raw_text,omitempty"`
	ReservedTokens int       `json:"reserved_tokens" validate:"gte=0"`
	ProfileVersion int       `json:"profile_version" validate:"gte=1"`
}

type LessonTranslatePayload struct {
	LessonID uuid.UUID `json:"lesson_id" validate:"required"`
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	Language string    `json:"language" validate:"required,min=2,max=32"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator exposes the shared instance for request structs elsewhere.
func Validator() *validator.Validate { return validate }

// ValidatePayload checks struct tags and reports every failing field by its
// JSON name.
func ValidatePayload(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(parts, ", "))
}
