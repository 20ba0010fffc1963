package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// memoryStore mimics the backend: placeholder ids are replaced on save.
type memoryStore struct {
	mu      sync.Mutex
	byClass map[string][]model.Question
	failFor map[string]error
	nextID  int
	saves   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byClass: map[string][]model.Question{}, failFor: map[string]error{}}
}

func (m *memoryStore) ManagedQuestions(_ context.Context, className string) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[className]; err != nil {
		return nil, err
	}
	return append([]model.Question(nil), m.byClass[className]...), nil
}

func (m *memoryStore) SaveQuestions(_ context.Context, className string, qs []model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	saved := make([]model.Question, len(qs))
	for i, q := range qs {
		if q.IsPlaceholder() {
			m.nextID++
			q.ID = fmt.Sprintf("db-%d", m.nextID)
		}
		saved[i] = q
	}
	m.byClass[className] = saved
	return nil
}

type memoryJobs struct {
	jobs map[string]*model.GenerationJob
}

func (m *memoryJobs) Enqueue(_ context.Context, job *model.GenerationJob) error {
	job.Status = model.GenerationJobQueued
	m.jobs[job.ID] = job
	return nil
}

func (m *memoryJobs) Get(_ context.Context, id string) (*model.GenerationJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("generation job not found")
	}
	return job, nil
}

func testExam() config.ExamConfig {
	return config.ExamConfig{TotalQuestions: 2, DurationMinutes: 30, Classes: []string{"9", "10"}, Sections: []string{"A", "B"}}
}

func draft(text string) model.QuestionDraft {
	return model.QuestionDraft{Question: text, Options: []string{" a ", "b", "c", "d"}, CorrectAnswerIndex: 2}
}

func TestQuestionService_AddUpdateDelete(t *testing.T) {
	store := newMemoryStore()
	svc := NewQuestionService(store, nil, testExam(), zerolog.Nop())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	cq, err := svc.Add(ctx, "9", draft("  What is H2O?  "))
	require.NoError(t, err)
	require.Len(t, cq.Questions, 1)
	assert.Equal(t, "db-1", cq.Questions[0].ID)
	assert.Equal(t, "What is H2O?", cq.Questions[0].Question)
	assert.Equal(t, "a", cq.Questions[0].Options[0])
	assert.False(t, cq.Ready)

	cq, err = svc.Add(ctx, "9", draft("2+2?"))
	require.NoError(t, err)
	assert.Equal(t, 2, cq.Count)
	assert.True(t, cq.Ready)

	cq, err = svc.Update(ctx, "9", "db-1", model.QuestionDraft{Question: "Water?", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, "Water?", cq.Questions[0].Question)
	assert.Equal(t, "db-1", cq.Questions[0].ID)

	cq, err = svc.Delete(ctx, "9", "db-1")
	require.NoError(t, err)
	require.Len(t, cq.Questions, 1)
	assert.Equal(t, "db-2", cq.Questions[0].ID)

	_, err = svc.Delete(ctx, "9", "db-1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionService_RejectsInvalidInput(t *testing.T) {
	store := newMemoryStore()
	svc := NewQuestionService(store, nil, testExam(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Add(ctx, "9", model.QuestionDraft{Question: "x", Options: []string{"a", "b", "c"}})
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	_, err = svc.Add(ctx, "12", draft("x"))
	assert.ErrorIs(t, err, ErrUnknownClass)

	_, err = svc.ListClass(ctx, "12")
	assert.ErrorIs(t, err, ErrUnknownClass)

	assert.Zero(t, store.saves)
}

func TestQuestionService_ListAllToleratesClassFailure(t *testing.T) {
	store := newMemoryStore()
	store.byClass["10"] = []model.Question{{ID: "x", Question: "q", Options: []string{"a", "b", "c", "d"}}}
	store.failFor["9"] = errors.New("API Error: Internal Server Error - boom")
	svc := NewQuestionService(store, nil, testExam(), zerolog.Nop())

	all := svc.ListAll(context.Background())
	require.Len(t, all, 2)
	assert.Equal(t, "9", all[0].ClassName)
	assert.Empty(t, all[0].Questions)
	assert.NotNil(t, all[0].Questions)
	assert.Equal(t, 1, all[1].Count)
}

func TestQuestionService_AppendGenerated(t *testing.T) {
	store := newMemoryStore()
	store.byClass["10"] = []model.Question{{ID: "x", Question: "q", Options: []string{"a", "b", "c", "d"}}}
	svc := NewQuestionService(store, nil, testExam(), zerolog.Nop())

	gen := []model.Question{{ID: "q-1700000000000", Question: "g", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1}}
	cq, err := svc.AppendGenerated(context.Background(), "10", gen)
	require.NoError(t, err)
	require.Len(t, cq.Questions, 2)
	assert.Equal(t, "x", cq.Questions[0].ID)
	assert.Equal(t, "db-1", cq.Questions[1].ID)
}

func TestQuestionService_Generation(t *testing.T) {
	ctx := context.Background()

	_, err := NewQuestionService(newMemoryStore(), nil, testExam(), zerolog.Nop()).EnqueueGeneration(ctx, "9", 5)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)

	jobs := &memoryJobs{jobs: map[string]*model.GenerationJob{}}
	svc := NewQuestionService(newMemoryStore(), jobs, testExam(), zerolog.Nop())

	job, err := svc.EnqueueGeneration(ctx, "9", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Count)
	assert.Equal(t, model.GenerationJobQueued, job.Status)

	got, err := svc.GenerationJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.EnqueueGeneration(ctx, "nope", 3)
	assert.ErrorIs(t, err, ErrUnknownClass)
}
