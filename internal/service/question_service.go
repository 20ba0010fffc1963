package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

var (
	ErrUnknownClass          = errors.New("unknown class")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrInvalidQuestion       = errors.New("invalid question")
	ErrGenerationUnavailable = errors.New("question generation is not configured")
)

// QuestionStore is the backend's question authoring surface.
type QuestionStore interface {
	ManagedQuestions(ctx context.Context, className string) ([]model.Question, error)
	SaveQuestions(ctx context.Context, className string, questions []model.Question) error
}

// JobQueue accepts generation jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, job *model.GenerationJob) error
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
}

// ClassQuestions is the authoring view of one class.
type ClassQuestions struct {
	ClassName string           `json:"className"`
	Questions []model.Question `json:"questions"`
	Count     int              `json:"count"`
	Required  int              `json:"required"`
	Ready     bool             `json:"ready"`
}

// QuestionService manages per-class question lists. Every change is a
// read-modify-write of the whole list, serialised per class in this process.
type QuestionService struct {
	store QuestionStore
	jobs  JobQueue
	exam  config.ExamConfig
	now   func() time.Time
	log   zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewQuestionService creates a new QuestionService. jobs may be nil when AI
// generation is disabled.
func NewQuestionService(store QuestionStore, jobs JobQueue, exam config.ExamConfig, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store: store,
		jobs:  jobs,
		exam:  exam.Clone(),
		now:   time.Now,
		log:   log.With().Str("component", "question_service").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *QuestionService) classLock(className string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[className]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[className] = mu
	}
	return mu
}

func (s *QuestionService) checkClass(className string) error {
	if !s.exam.HasClass(className) {
		return fmt.Errorf("%w: %q", ErrUnknownClass, className)
	}
	return nil
}

func (s *QuestionService) summarize(className string, qs []model.Question) ClassQuestions {
	if qs == nil {
		qs = []model.Question{}
	}
	return ClassQuestions{
		ClassName: className,
		Questions: qs,
		Count:     len(qs),
		Required:  s.exam.TotalQuestions,
		Ready:     len(qs) >= s.exam.TotalQuestions,
	}
}

// ListClass returns the managed (unshuffled) questions of one class.
func (s *QuestionService) ListClass(ctx context.Context, className string) (ClassQuestions, error) {
	if err := s.checkClass(className); err != nil {
		return ClassQuestions{}, err
	}
	qs, err := s.store.ManagedQuestions(ctx, className)
	if err != nil {
		return ClassQuestions{}, err
	}
	return s.summarize(className, qs), nil
}

// ListAll returns every configured class. A class whose fetch fails is
// logged and reported with an empty list.
func (s *QuestionService) ListAll(ctx context.Context) []ClassQuestions {
	out := make([]ClassQuestions, len(s.exam.Classes))

	var g errgroup.Group
	g.SetLimit(4)
	for i, className := range s.exam.Classes {
		g.Go(func() error {
			qs, err := s.store.ManagedQuestions(ctx, className)
			if err != nil {
				s.log.Error().Err(err).Str("class", className).Msg("Failed to fetch questions for class")
				qs = nil
			}
			out[i] = s.summarize(className, qs)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Add appends a new question to a class and returns the refreshed list.
func (s *QuestionService) Add(ctx context.Context, className string, draft model.QuestionDraft) (ClassQuestions, error) {
	if err := draft.Validate(); err != nil {
		return ClassQuestions{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return s.mutate(ctx, className, func(qs []model.Question) ([]model.Question, error) {
		return append(qs, questionFromDraft(model.NewPlaceholderID(s.now(), 0), draft)), nil
	})
}

// Update replaces the question with id in a class.
func (s *QuestionService) Update(ctx context.Context, className, id string, draft model.QuestionDraft) (ClassQuestions, error) {
	if err := draft.Validate(); err != nil {
		return ClassQuestions{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return s.mutate(ctx, className, func(qs []model.Question) ([]model.Question, error) {
		i := slices.IndexFunc(qs, func(q model.Question) bool { return q.ID == id })
		if i < 0 {
			return nil, ErrQuestionNotFound
		}
		qs[i] = questionFromDraft(id, draft)
		return qs, nil
	})
}

// Delete removes the question with id from a class.
func (s *QuestionService) Delete(ctx context.Context, className, id string) (ClassQuestions, error) {
	return s.mutate(ctx, className, func(qs []model.Question) ([]model.Question, error) {
		i := slices.IndexFunc(qs, func(q model.Question) bool { return q.ID == id })
		if i < 0 {
			return nil, ErrQuestionNotFound
		}
		return slices.Delete(qs, i, i+1), nil
	})
}

// AppendGenerated adds machine-generated questions to a class.
func (s *QuestionService) AppendGenerated(ctx context.Context, className string, generated []model.Question) (ClassQuestions, error) {
	return s.mutate(ctx, className, func(qs []model.Question) ([]model.Question, error) {
		return append(qs, generated...), nil
	})
}

// mutate saves the whole list after change and refetches it so the caller
// sees the backend-assigned ids.
func (s *QuestionService) mutate(ctx context.Context, className string, change func([]model.Question) ([]model.Question, error)) (ClassQuestions, error) {
	if err := s.checkClass(className); err != nil {
		return ClassQuestions{}, err
	}

	mu := s.classLock(className)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.store.ManagedQuestions(ctx, className)
	if err != nil {
		return ClassQuestions{}, fmt.Errorf("load questions: %w", err)
	}
	updated, err := change(slices.Clone(current))
	if err != nil {
		return ClassQuestions{}, err
	}
	if err := s.store.SaveQuestions(ctx, className, updated); err != nil {
		return ClassQuestions{}, fmt.Errorf("save questions: %w", err)
	}

	refreshed, err := s.store.ManagedQuestions(ctx, className)
	if err != nil {
		return ClassQuestions{}, fmt.Errorf("reload questions: %w", err)
	}
	s.log.Info().Str("class", className).Int("count", len(refreshed)).Msg("Questions saved")
	return s.summarize(className, refreshed), nil
}

// EnqueueGeneration queues an AI generation job for a class. A zero count
// asks for the configured exam size.
func (s *QuestionService) EnqueueGeneration(ctx context.Context, className string, count int) (*model.GenerationJob, error) {
	if s.jobs == nil {
		return nil, ErrGenerationUnavailable
	}
	if err := s.checkClass(className); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = s.exam.TotalQuestions
	}

	now := s.now()
	job := &model.GenerationJob{
		ID:        uuid.NewString(),
		ClassName: className,
		Count:     count,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", job.ID).Str("class", className).Int("count", count).Msg("Generation job queued")
	return job, nil
}

// GenerationJob returns a job's current status.
func (s *QuestionService) GenerationJob(ctx context.Context, id string) (*model.GenerationJob, error) {
	if s.jobs == nil {
		return nil, ErrGenerationUnavailable
	}
	return s.jobs.Get(ctx, id)
}

func questionFromDraft(id string, d model.QuestionDraft) model.Question {
	opts := make([]string, len(d.Options))
	for i, o := range d.Options {
		opts[i] = strings.TrimSpace(o)
	}
	return model.Question{
		ID:                 id,
		Question:           strings.TrimSpace(d.Question),
		Options:            opts,
		CorrectAnswerIndex: d.CorrectAnswerIndex,
	}
}
