package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// ----------------------------------------------------------------
// Collaborator mocks
// ----------------------------------------------------------------

type mockRegistrar struct{ mock.Mock }

func (m *mockRegistrar) Register(ctx context.Context, reg model.StudentRegistration) (*model.Student, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

type mockQuestionSource struct{ mock.Mock }

func (m *mockQuestionSource) FetchQuestions(ctx context.Context, className string) ([]model.Question, error) {
	args := m.Called(ctx, className)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

type mockScorer struct{ mock.Mock }

func (m *mockScorer) Submit(ctx context.Context, sub model.Submission) (*model.ExamResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExamResult), args.Error(1)
}

// ----------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------

const testTotal = 3

func testConfig() config.ExamConfig {
	return config.ExamConfig{
		TotalQuestions:  testTotal,
		DurationMinutes: 1,
		Classes:         []string{"V", "VI"},
		Sections:        []string{"A", "B"},
	}
}

func asha() model.StudentRegistration {
	return model.StudentRegistration{Name: "Asha", ClassName: "V", Section: "A", RollNumber: "12"}
}

func ashaStudent() *model.Student {
	return &model.Student{ID: "stu-1", Name: "Asha", ClassName: "V", Section: "A", RollNumber: "12", RegisteredAt: "2024-05-01T10:00:00"}
}

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:                 fmt.Sprintf("qid-%d", i),
			Question:           fmt.Sprintf("Question %d?", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
		}
	}
	return qs
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []Stage
	ticks  []int
}

func (r *stageRecorder) observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Kind {
	case EventStage:
		r.stages = append(r.stages, ev.Stage)
	case EventTick:
		r.ticks = append(r.ticks, ev.RemainingSeconds)
	}
}

func (r *stageRecorder) Stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stage(nil), r.stages...)
}

func (r *stageRecorder) Ticks() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ticks...)
}

type harness struct {
	ctrl      *Controller
	registrar *mockRegistrar
	source    *mockQuestionSource
	scorer    *mockScorer
	rec       *stageRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		registrar: new(mockRegistrar),
		source:    new(mockQuestionSource),
		scorer:    new(mockScorer),
		rec:       &stageRecorder{},
	}
	h.ctrl = NewController("sess-1", testConfig(), h.registrar, h.source, h.scorer,
		WithTickInterval(0),
		WithObserver(h.rec.observe),
	)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) waitStage(t *testing.T, want Stage) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ctrl.Stage() == want }, 2*time.Second, time.Millisecond,
		"stage never reached %s (now %s)", want, h.ctrl.Stage())
}

// toInProgress registers Asha with enough questions and starts the exam.
func (h *harness) toInProgress(t *testing.T) {
	t.Helper()
	h.registrar.On("Register", mock.Anything, mock.Anything).Return(ashaStudent(), nil).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").Return(makeQuestions(testTotal), nil).Once()
	require.NoError(t, h.ctrl.Register(asha()))
	h.waitStage(t, StageInstructions)
	require.NoError(t, h.ctrl.Start())
}

func (h *harness) countdown() *Countdown {
	h.ctrl.mu.Lock()
	defer h.ctrl.mu.Unlock()
	return h.ctrl.countdown
}

func intp(v int) *int { return &v }

// ----------------------------------------------------------------
// Registration and loading
// ----------------------------------------------------------------

func TestController_RegistrationReachesInstructions(t *testing.T) {
	h := newHarness(t)
	h.registrar.On("Register", mock.Anything, asha()).Return(ashaStudent(), nil).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").Return(makeQuestions(testTotal), nil).Once()

	require.NoError(t, h.ctrl.Register(asha()))
	h.waitStage(t, StageInstructions)

	assert.Equal(t, []Stage{StageLoading, StageInstructions}, h.rec.Stages())

	view := h.ctrl.Snapshot()
	require.NotNil(t, view.Student)
	assert.Equal(t, "stu-1", view.Student.ID)
	assert.Len(t, view.Questions, testTotal)
	assert.Len(t, view.Answers, len(view.Questions))
	assert.Equal(t, 60, view.RemainingSeconds)
	assert.Nil(t, view.Failure)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correctAnswerIndex")

	h.registrar.AssertExpectations(t)
	h.source.AssertExpectations(t)
}

func TestController_InsufficientQuestionsFailsAsNotConfigured(t *testing.T) {
	h := newHarness(t)
	h.registrar.On("Register", mock.Anything, mock.Anything).Return(ashaStudent(), nil).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").Return(makeQuestions(testTotal-1), nil).Once()

	require.NoError(t, h.ctrl.Register(asha()))
	h.waitStage(t, StageFailed)

	assert.Equal(t, []Stage{StageLoading, StageFailed}, h.rec.Stages())
	view := h.ctrl.Snapshot()
	require.NotNil(t, view.Failure)
	assert.Equal(t, FailureNotConfigured, view.Failure.Kind)
	assert.Equal(t,
		"The exam for Class V is not yet available or has fewer than 3 questions. Please contact the administrator.",
		view.Failure.Message)
	assert.Nil(t, view.Student)
	assert.Empty(t, view.Questions)
}

func TestController_SetupFailureSurfacesErrorVerbatim(t *testing.T) {
	h := newHarness(t)
	fetchCancelled := make(chan struct{})

	h.registrar.On("Register", mock.Anything, mock.Anything).
		Return(nil, errors.New("API Error: Conflict - roll number already registered")).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
			close(fetchCancelled)
		}).
		Return(nil, context.Canceled).Once()

	require.NoError(t, h.ctrl.Register(asha()))
	h.waitStage(t, StageFailed)

	select {
	case <-fetchCancelled:
	case <-time.After(time.Second):
		t.Fatal("question fetch was not cancelled after registration failed")
	}

	view := h.ctrl.Snapshot()
	require.NotNil(t, view.Failure)
	assert.Equal(t, FailureSetup, view.Failure.Kind)
	assert.Equal(t, "API Error: Conflict - roll number already registered", view.Failure.Message)
	assert.NotContains(t, h.rec.Stages(), StageInstructions)
}

func TestController_RegisterRejectsBlankFields(t *testing.T) {
	cases := map[string]func(*model.StudentRegistration){
		"blank name":      func(r *model.StudentRegistration) { r.Name = "   " },
		"blank roll":      func(r *model.StudentRegistration) { r.RollNumber = "" },
		"unknown class":   func(r *model.StudentRegistration) { r.ClassName = "XII" },
		"unknown section": func(r *model.StudentRegistration) { r.Section = "Z" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			reg := asha()
			mutate(&reg)

			err := h.ctrl.Register(reg)
			assert.ErrorIs(t, err, ErrInvalidRegistration)
			assert.Equal(t, StageRegistration, h.ctrl.Stage())
			h.registrar.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestController_ActionsOutsideTheirStage(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, h.ctrl.SelectOption(0, 0), ErrInvalidTransition)
	_, err := h.ctrl.Navigate(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, h.ctrl.Submit(), ErrInvalidTransition)
	assert.NoError(t, h.ctrl.Reset())
	assert.Empty(t, h.rec.Stages())
}

// ----------------------------------------------------------------
// Exam
// ----------------------------------------------------------------

func TestController_AnswerAndNavigate(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)

	require.NoError(t, h.ctrl.SelectOption(2, 1))
	idx, err := h.ctrl.Navigate(0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = h.ctrl.Navigate(2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	view := h.ctrl.Snapshot()
	require.NotNil(t, view.Answers[2])
	assert.Equal(t, 1, *view.Answers[2])
	assert.Equal(t, StatusCurrent, view.Palette[2])
	assert.Equal(t, StatusUnanswered, view.Palette[0])

	idx, err = h.ctrl.Navigate(50)
	require.NoError(t, err)
	assert.Equal(t, testTotal-1, idx)
	idx, err = h.ctrl.Navigate(-1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	assert.ErrorIs(t, h.ctrl.SelectOption(testTotal, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, h.ctrl.SelectOption(0, 4), ErrInvalidOption)
	assert.ErrorIs(t, h.ctrl.SelectOption(0, -1), ErrInvalidOption)
}

func TestController_TimerExpirySubmitsCurrentAnswers(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)
	require.NoError(t, h.ctrl.SelectOption(1, 3))

	got := make(chan model.Submission, 1)
	release := make(chan struct{})
	h.scorer.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got <- args.Get(1).(model.Submission)
			<-release
		}).
		Return(&model.ExamResult{ID: "res-1", SubmittedAt: "2024-05-01T10:30:00"}, nil).Once()

	cd := h.countdown()
	require.NotNil(t, cd)
	for range 59 {
		require.True(t, cd.Tick())
	}
	assert.Equal(t, 1, h.ctrl.Snapshot().RemainingSeconds)

	assert.False(t, cd.Tick())

	var sub model.Submission
	select {
	case sub = <-got:
	case <-time.After(time.Second):
		t.Fatal("timer expiry did not submit")
	}
	view := h.ctrl.Snapshot()
	assert.Equal(t, StageSubmitting, view.Stage)
	assert.Equal(t, 0, view.RemainingSeconds)
	assert.Equal(t, []*int{nil, intp(3), nil}, sub.Answers)
	assert.Equal(t, "stu-1", sub.Student.ID)
	assert.Len(t, sub.Questions, testTotal)

	// Further ticks after expiry change nothing.
	assert.False(t, cd.Tick())

	close(release)
	h.waitStage(t, StageComplete)
	h.scorer.AssertNumberOfCalls(t, "Submit", 1)
	assert.Equal(t, "2024-05-01T10:30:00", h.ctrl.Snapshot().SubmittedAt)
	require.NotNil(t, h.ctrl.Result())
	assert.Equal(t, "res-1", h.ctrl.Result().ID)

	ticks := h.rec.Ticks()
	for i := 1; i < len(ticks); i++ {
		assert.LessOrEqual(t, ticks[i], ticks[i-1])
	}
	assert.Equal(t, 0, ticks[len(ticks)-1])
}

func TestController_DoubleSubmitIssuesOneScoringCall(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)

	release := make(chan struct{})
	h.scorer.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ExamResult{ID: "res-1"}, nil).Once()

	require.NoError(t, h.ctrl.Submit())
	assert.ErrorIs(t, h.ctrl.Submit(), ErrAlreadySubmitted)
	assert.Equal(t, StageSubmitting, h.ctrl.Stage())

	assert.Nil(t, h.countdown(), "timer must be released on submit")

	close(release)
	h.waitStage(t, StageComplete)
	assert.ErrorIs(t, h.ctrl.Submit(), ErrAlreadySubmitted)
	h.scorer.AssertNumberOfCalls(t, "Submit", 1)
}

func TestController_ManualSubmitStopsTimer(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)
	h.scorer.On("Submit", mock.Anything, mock.Anything).Return(&model.ExamResult{ID: "res-1"}, nil).Once()

	cd := h.countdown()
	require.NoError(t, h.ctrl.Submit())

	assert.True(t, cd.Stopped())
	assert.False(t, cd.Tick())
	h.waitStage(t, StageComplete)
	h.scorer.AssertNumberOfCalls(t, "Submit", 1)
}

func TestController_SubmissionFailureAndRetry(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)
	h.scorer.On("Submit", mock.Anything, mock.Anything).
		Return(nil, errors.New("API Error: Bad Gateway - upstream down")).Once()

	require.NoError(t, h.ctrl.Submit())
	h.waitStage(t, StageFailed)

	view := h.ctrl.Snapshot()
	require.NotNil(t, view.Failure)
	assert.Equal(t, FailureSubmission, view.Failure.Kind)
	assert.Equal(t, "API Error: Bad Gateway - upstream down", view.Failure.Message)

	require.NoError(t, h.ctrl.Reset())
	view = h.ctrl.Snapshot()
	assert.Equal(t, StageRegistration, view.Stage)
	assert.Nil(t, view.Student)
	assert.Nil(t, view.Questions)
	assert.Nil(t, view.Answers)
	assert.Nil(t, view.Failure)
	assert.Zero(t, view.RemainingSeconds)
}

func TestController_ResetRefusedWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)

	assert.ErrorIs(t, h.ctrl.Reset(), ErrInvalidTransition)
	assert.Equal(t, StageInProgress, h.ctrl.Stage())
}

// ----------------------------------------------------------------
// Teardown and stale results
// ----------------------------------------------------------------

func TestController_CloseDiscardsLateLoadingResult(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})

	h.registrar.On("Register", mock.Anything, mock.Anything).Return(ashaStudent(), nil).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").
		Run(func(mock.Arguments) { <-release }).
		Return(makeQuestions(testTotal), nil).Once()

	var closed sync.WaitGroup
	closed.Add(1)
	h.ctrl.AddObserver(func(ev Event) {
		if ev.Kind == EventClosed {
			closed.Done()
		}
	})

	require.NoError(t, h.ctrl.Register(asha()))
	h.ctrl.Close()
	closed.Wait()

	close(release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StageLoading, h.ctrl.Stage())
	assert.Nil(t, h.ctrl.Snapshot().Student)
	assert.ErrorIs(t, h.ctrl.Start(), ErrSessionClosed)
	assert.Equal(t, []Stage{StageLoading}, h.rec.Stages())
}

func TestController_CloseStopsTimerAndDiscardsLateScore(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)
	cd := h.countdown()

	h.ctrl.Close()
	assert.True(t, cd.Stopped())
	assert.False(t, cd.Tick())

	h.ctrl.Close()
	assert.ErrorIs(t, h.ctrl.Submit(), ErrSessionClosed)
	h.scorer.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestController_RetryThenCloseIgnoresLateRegistration(t *testing.T) {
	h := newHarness(t)
	h.toInProgress(t)

	h.scorer.On("Submit", mock.Anything, mock.Anything).
		Return(nil, errors.New("API Error: Internal Server Error - boom")).Once()
	require.NoError(t, h.ctrl.Submit())
	h.waitStage(t, StageFailed)
	require.NoError(t, h.ctrl.Reset())

	// The second attempt's registration only returns after the session closed.
	release := make(chan struct{})
	h.registrar.On("Register", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(ashaStudent(), nil).Once()
	h.source.On("FetchQuestions", mock.Anything, "V").Return(makeQuestions(testTotal), nil).Once()

	require.NoError(t, h.ctrl.Register(asha()))
	assert.Equal(t, StageLoading, h.ctrl.Stage())
	h.ctrl.Close()
	close(release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StageLoading, h.ctrl.Stage())
	assert.Nil(t, h.ctrl.Snapshot().Failure)
}

func TestController_ObserverRemoval(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	count := 0
	remove := h.ctrl.AddObserver(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	h.toInProgress(t)
	mu.Lock()
	before := count
	mu.Unlock()
	assert.Positive(t, before)

	remove()
	require.NoError(t, h.ctrl.SelectOption(0, 0))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, count)
}
