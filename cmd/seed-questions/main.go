package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/exam-portal/internal/backend"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/model"
)

// questionFile maps a class name to its questions:
//
//	"10":
//	  - question: What is 2 + 2?
//	    options: ["3", "4", "5", "6"]
//	    correctAnswerIndex: 1
type questionFile map[string][]seedQuestion

type seedQuestion struct {
	Question           string   `yaml:"question"`
	Options            []string `yaml:"options"`
	CorrectAnswerIndex int      `yaml:"correctAnswerIndex"`
}

func main() {
	file := flag.String("file", "questions.yaml", "YAML file of questions keyed by class")
	appendMode := flag.Bool("append", false, "append to the class's existing questions instead of replacing them")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	exam, err := config.LoadExamConfig(cfg.ExamConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam configuration")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read question file")
	}
	var seeds questionFile
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse question file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)
	now := time.Now()

	fmt.Printf("=== Seeding questions for %d classes ===\n", len(seeds))

	failed := 0
	for className, items := range seeds {
		clog := log.With().Str("class", className).Logger()
		if !exam.HasClass(className) {
			clog.Error().Msg("Class is not configured, skipping")
			failed++
			continue
		}

		questions, err := toQuestions(items, now)
		if err != nil {
			clog.Error().Err(err).Msg("Invalid question, skipping class")
			failed++
			continue
		}

		if *appendMode {
			existing, err := api.ManagedQuestions(ctx, className)
			if err != nil {
				clog.Error().Err(err).Msg("Failed to load existing questions")
				failed++
				continue
			}
			questions = append(existing, questions...)
		}

		if err := api.SaveQuestions(ctx, className, questions); err != nil {
			clog.Error().Err(err).Msg("Failed to save questions")
			failed++
			continue
		}

		status := "ready"
		if len(questions) < exam.TotalQuestions {
			status = fmt.Sprintf("needs %d more", exam.TotalQuestions-len(questions))
		}
		fmt.Printf("Class %s: %d questions saved (%s)\n", className, len(questions), status)
	}

	if failed > 0 {
		fmt.Printf("\n%d classes failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nSuccess!")
}

func toQuestions(items []seedQuestion, now time.Time) ([]model.Question, error) {
	out := make([]model.Question, 0, len(items))
	for i, it := range items {
		d := model.QuestionDraft{Question: it.Question, Options: it.Options, CorrectAnswerIndex: it.CorrectAnswerIndex}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, model.Question{
			ID:                 model.NewPlaceholderID(now, i),
			Question:           d.Question,
			Options:            d.Options,
			CorrectAnswerIndex: d.CorrectAnswerIndex,
		})
	}
	return out, nil
}
