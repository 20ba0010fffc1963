package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ExamConfig is the static exam configuration consumed by the session controller.
// Treat it as immutable once loaded; Clone before handing it to code that may retain it.
type ExamConfig struct {
	TotalQuestions  int      `yaml:"total_questions" json:"totalQuestions"`
	DurationMinutes int      `yaml:"duration_minutes" json:"durationMinutes"`
	Classes         []string `yaml:"classes" json:"classes"`
	Sections        []string `yaml:"sections" json:"sections"`
}

// DefaultExamConfig returns the configuration used when no file or override is present.
func DefaultExamConfig() ExamConfig {
	return ExamConfig{
		TotalQuestions:  20,
		DurationMinutes: 30,
		Classes:         []string{"V", "VI", "VII", "VIII", "IX"},
		Sections:        []string{"A", "B", "C", "D"},
	}
}

// LoadExamConfig reads the exam configuration from a YAML file (if it exists),
// then applies environment overrides and validates the result.
func LoadExamConfig(path string) (ExamConfig, error) {
	cfg := DefaultExamConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			raw, err := os.ReadFile(path)
			if err != nil {
				return ExamConfig{}, fmt.Errorf("read exam config: %w", err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return ExamConfig{}, fmt.Errorf("parse exam config: %w", err)
			}
		}
	}

	cfg.TotalQuestions = getEnvInt("EXAM_TOTAL_QUESTIONS", cfg.TotalQuestions)
	cfg.DurationMinutes = getEnvInt("EXAM_DURATION_MINUTES", cfg.DurationMinutes)
	if classes := splitList(os.Getenv("EXAM_CLASSES")); len(classes) > 0 {
		cfg.Classes = classes
	}
	if sections := splitList(os.Getenv("EXAM_SECTIONS")); len(sections) > 0 {
		cfg.Sections = sections
	}

	if err := cfg.Validate(); err != nil {
		return ExamConfig{}, fmt.Errorf("invalid exam config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first problem that would make the exam unusable.
func (c ExamConfig) Validate() error {
	switch {
	case c.TotalQuestions < 1:
		return errors.New("total_questions must be at least 1")
	case c.DurationMinutes < 1:
		return errors.New("duration_minutes must be at least 1")
	case len(c.Classes) == 0:
		return errors.New("at least one class is required")
	case len(c.Sections) == 0:
		return errors.New("at least one section is required")
	}
	return nil
}

// Duration is the exam time limit.
func (c ExamConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// DurationSeconds is the starting value of the countdown.
func (c ExamConfig) DurationSeconds() int {
	return c.DurationMinutes * 60
}

func (c ExamConfig) HasClass(name string) bool {
	return slices.Contains(c.Classes, name)
}

func (c ExamConfig) HasSection(name string) bool {
	return slices.Contains(c.Sections, name)
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (c ExamConfig) Clone() ExamConfig {
	c.Classes = slices.Clone(c.Classes)
	c.Sections = slices.Clone(c.Sections)
	return c
}
