package profiles

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the generation shape for one difficulty tier.
type Profile struct {
	Difficulty             string   `yaml:"-" json:"difficulty"`
	ModuleCount            int      `yaml:"module_count" json:"module_count"`
	LessonsPerModule       int      `yaml:"lessons_per_module" json:"lessons_per_module"`
	ContentWordTarget      int      `yaml:"content_word_target" json:"content_word_target"`
	QuizQuestionsPerLesson int      `yaml:"quiz_questions_per_lesson" json:"quiz_questions_per_lesson"`
	QuizTypes              []string `yaml:"quiz_types" json:"quiz_types"`
	Tone                   string   `yaml:"tone" json:"tone"`
	TokenBudget            int      `yaml:"token_budget" json:"token_budget"`
}

// Table is an immutable, versioned set of profiles.
type Table struct {
	version  int
	fallback string
	byTier   map[string]Profile
}

type tableFile struct {
	Version  int                `yaml:"version"`
	Default  string             `yaml:"default"`
	Profiles map[string]Profile `yaml:"profiles"`
}

//go:embed profiles.yaml
var embedded []byte

var defaultTable = mustLoad(embedded)

func mustLoad(raw []byte) *Table {
	t, err := Load(raw)
	if err != nil {
		panic(fmt.Sprintf("profiles: embedded table: %v", err))
	}
	return t
}

// Load parses a YAML profile table.
func Load(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("profiles: version must be positive")
	}
	t := &Table{version: f.Version, fallback: Normalize(f.Default), byTier: map[string]Profile{}}
	for tier, p := range f.Profiles {
		key := Normalize(tier)
		if p.ModuleCount <= 0 || p.LessonsPerModule <= 0 || p.TokenBudget <= 0 {
			return nil, fmt.Errorf("profiles: %s: counts and token_budget must be positive", key)
		}
		if p.QuizQuestionsPerLesson <= 0 {
			p.QuizQuestionsPerLesson = 1
		}
		p.Difficulty = key
		t.byTier[key] = p
	}
	if _, ok := t.byTier[t.fallback]; !ok {
		return nil, fmt.Errorf("profiles: default tier %q not defined", f.Default)
	}
	return t, nil
}

// Normalize upper-cases and trims a difficulty label.
func Normalize(difficulty string) string {
	return strings.ToUpper(strings.TrimSpace(difficulty))
}

func (t *Table) Version() int { return t.version }

// For returns the profile for difficulty. Unknown or empty tiers get the
// default profile; it never fails.
func (t *Table) For(difficulty string) Profile {
	if p, ok := t.byTier[Normalize(difficulty)]; ok {
		return p
	}
	return t.byTier[t.fallback]
}

// TokenBudgetFor is the single source of the reservation amount. Both the
// API reservation and the worker reconciliation call it.
func (t *Table) TokenBudgetFor(difficulty string) int {
	return t.For(difficulty).TokenBudget
}

// Known reports whether difficulty names a tier in the table.
func (t *Table) Known(difficulty string) bool {
	_, ok := t.byTier[Normalize(difficulty)]
	return ok
}

// Default returns the embedded table.
func Default() *Table { return defaultTable }

func For(difficulty string) Profile       { return defaultTable.For(difficulty) }
func TokenBudgetFor(difficulty string) int { return defaultTable.TokenBudgetFor(difficulty) }
func Version() int                        { return defaultTable.Version() }
