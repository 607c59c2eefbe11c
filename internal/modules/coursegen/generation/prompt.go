package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/profiles"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/validation"
)

// MixedLanguageTarget gets a dedicated instruction instead of a plain
// "translate into" line.
const MixedLanguageTarget = "hinglish"

const mixedLanguageInstruction = "Write in Hinglish: Hindi written in Latin script mixed with English technical terms. Keep code identifiers, keywords and API names in English."

type promptSpec struct {
	Name   string
	System string
	User   string
}

type promptTemplate struct {
	name   string
	system *template.Template
	user   *template.Template
}

func mustTemplate(s promptSpec) promptTemplate {
	funcs := template.FuncMap{"join": strings.Join}
	sysT, err := template.New(s.Name + ".system").Funcs(funcs).Option("missingkey=zero").Parse(s.System)
	if err != nil {
		panic(fmt.Sprintf("%s system template parse: %v", s.Name, err))
	}
	userT, err := template.New(s.Name + ".user").Funcs(funcs).Option("missingkey=zero").Parse(s.User)
	if err != nil {
		panic(fmt.Sprintf("%s user template parse: %v", s.Name, err))
	}
	return promptTemplate{name: s.Name, system: sysT, user: userT}
}

func (t promptTemplate) render(in any) (string, string, error) {
	var sys, user bytes.Buffer
	if err := t.system.Execute(&sys, in); err != nil {
		return "", "", fmt.Errorf("%s system render: %w", t.name, err)
	}
	if err := t.user.Execute(&user, in); err != nil {
		return "", "", fmt.Errorf("%s user render: %w", t.name, err)
	}
	return strings.TrimSpace(sys.String()), strings.TrimSpace(user.String()), nil
}

var coursePrompt = mustTemplate(promptSpec{
	Name: "course_generate",
	System: `
You are a senior instructor who writes complete, accurate programming courses.
Tone: {{.Profile.Tone}}
Return ONLY a JSON object, no markdown and no commentary. It must match this JSON schema:
{{.Schema}}
Rules:
- Exactly {{.Profile.ModuleCount}} modules, each with exactly {{.Profile.LessonsPerModule}} lessons.
- Each lesson content is about {{.Profile.ContentWordTarget}} words and at least {{.MinContentLength}} characters.
- Each lesson quiz has exactly {{.Profile.QuizQuestionsPerLesson}} questions{{if .Profile.QuizTypes}} ({{join .Profile.QuizTypes ", "}}){{end}}.
- Each question has between {{.MinOptions}} and {{.MaxOptions}} options and its answer is copied verbatim from the options.
- youtube_search_query is a short search phrase for a relevant video. Never write a URL.
`,
	User: `
Topic: {{.Topic}}
{{if .Description}}Description: {{.Description}}
{{end}}Difficulty: {{.Profile.Difficulty}}
Write every title, lesson and quiz in language: {{.Language}}
{{if .RawText}}
Learner notes to build the course around:
"""
{{.RawText}}
"""
{{end}}
`,
})

var translatePrompt = mustTemplate(promptSpec{
	Name: "lesson_translate",
	System: `
You translate programming lessons. Keep code blocks, identifiers and markdown structure unchanged.
{{if .Mixed}}{{.MixedInstruction}}{{else}}Translate into the language with code "{{.Language}}".{{end}}
Return ONLY a JSON object with exactly two string fields: "title" and "content".
`,
	User: `
Title: {{.Title}}

Content:
{{.Content}}
`,
})

type courseInput struct {
	CourseRequest
	Profile          profiles.Profile
	Schema           string
	MinContentLength int
	MinOptions       int
	MaxOptions       int
}

type translateInput struct {
	Title            string
	Content          string
	Language         string
	Mixed            bool
	MixedInstruction string
}

func schemaText(def map[string]any) string {
	b, err := json.Marshal(def)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func courseMessages(req CourseRequest, p profiles.Profile) (string, string, error) {
	return coursePrompt.render(courseInput{
		CourseRequest:    req,
		Profile:          p,
		Schema:           schemaText(validation.CourseSchema()),
		MinContentLength: validation.MinContentLength,
		MinOptions:       validation.MinOptions,
		MaxOptions:       validation.MaxOptions,
	})
}

func translateMessages(title, content, targetLang string) (string, string, error) {
	lang := strings.TrimSpace(targetLang)
	return translatePrompt.render(translateInput{
		Title:            title,
		Content:          content,
		Language:         lang,
		Mixed:            strings.EqualFold(lang, MixedLanguageTarget),
		MixedInstruction: mixedLanguageInstruction,
	})
}
