// Package generation turns a course request into a validated course
// document with one call to the text generation backend.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/validation"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
)

var (
	// ErrBackend marks transport and backend failures.
	ErrBackend = errors.New("generation backend error")
	// ErrMalformedResponse marks replies that are not JSON or do not match
	// the document schema.
	ErrMalformedResponse = errors.New("malformed generation response")
)

// MalformedError matches ErrMalformedResponse and also unwraps to the
// underlying parse or *validation.Error.
type MalformedError struct {
	Document string
	Err      error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse.Error(), e.Document, e.Err)
}

func (e *MalformedError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

type CourseRequest struct {
	Topic       string
	Description string
	Language    string
	Difficulty  string
	RawText     string
}

type Client interface {
	GenerateCourse(ctx context.Context, req CourseRequest) (*validation.Course, error)
	TranslateLesson(ctx context.Context, title, content, targetLang string) (*validation.Translation, error)
}

type client struct {
	log      *logger.Logger
	llm      openai.Client
	profiles *profiles.Table
}

func NewClient(baseLog *logger.Logger, llm openai.Client, table *profiles.Table) Client {
	if table == nil {
		table = profiles.Default()
	}
	return &client{
		log:      baseLog.With("service", "GenerationClient"),
		llm:      llm,
		profiles: table,
	}
}

// GenerateCourse issues exactly one backend call. It never retries.
func (c *client) GenerateCourse(ctx context.Context, req CourseRequest) (*validation.Course, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("generate course: missing topic")
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = "en"
	}
	p := c.profiles.For(req.Difficulty)

	ctx, span := otel.Tracer("coursegen/generation").Start(ctx, "generation.course")
	defer span.End()
	span.SetAttributes(
		attribute.String("course.difficulty", p.Difficulty),
		attribute.Int("course.modules", p.ModuleCount),
	)

	system, user, err := courseMessages(req, p)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, system, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	course, err := validation.ValidateCourse(raw)
	if err != nil {
		span.RecordError(err)
		c.log.Warn("Generated course rejected", "difficulty", p.Difficulty, "error", err)
		return nil, &MalformedError{Document: "course", Err: err}
	}
	return course, nil
}

func (c *client) TranslateLesson(ctx context.Context, title, content, targetLang string) (*validation.Translation, error) {
	if strings.TrimSpace(targetLang) == "" {
		return nil, fmt.Errorf("translate lesson: missing target language")
	}
	ctx, span := otel.Tracer("coursegen/generation").Start(ctx, "generation.translate")
	defer span.End()
	span.SetAttributes(attribute.String("lesson.target_language", targetLang))

	system, user, err := translateMessages(title, content, targetLang)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, system, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	tr, err := validation.ValidateTranslation(raw)
	if err != nil {
		span.RecordError(err)
		return nil, &MalformedError{Document: "translation", Err: err}
	}
	return tr, nil
}

// call returns cleaned JSON bytes, or an error matching ErrBackend or
// ErrMalformedResponse.
func (c *client) call(ctx context.Context, system, user string) ([]byte, error) {
	text, err := c.llm.GenerateText(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	cleaned := CleanJSON(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, &MalformedError{Document: "response", Err: fmt.Errorf("not valid JSON (%d bytes)", len(text))}
	}
	return []byte(cleaned), nil
}
