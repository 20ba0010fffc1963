package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
)

var (
	ErrInvalidTransition   = errors.New("action not allowed in the current stage")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrIndexOutOfRange     = errors.New("question index out of range")
	ErrInvalidOption       = errors.New("option index out of range")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrSessionClosed       = errors.New("session closed")
)

// Registrar creates the student identity record.
type Registrar interface {
	Register(ctx context.Context, reg model.StudentRegistration) (*model.Student, error)
}

// QuestionSource returns the exam-taking question set for a class.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, className string) ([]model.Question, error)
}

// Scorer scores a completed exam.
type Scorer interface {
	Submit(ctx context.Context, sub model.Submission) (*model.ExamResult, error)
}

// Option customises a Controller.
type Option func(*Controller)

// WithTickInterval overrides the countdown cadence. Zero disables the internal
// ticker so tests can drive the countdown by hand.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.tickInterval = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.addObserverLocked(o) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one exam session. All methods are safe for concurrent use.
//
// Asynchronous work (the loading pair, the scoring call, countdown callbacks)
// is tagged with the epoch current when it was issued; Reset and Close bump
// the epoch so late completions are discarded instead of mutating a session
// that has moved on.
type Controller struct {
	id           string
	cfg          config.ExamConfig
	registrar    Registrar
	source       QuestionSource
	scorer       Scorer
	tickInterval time.Duration
	now          func() time.Time
	log          zerolog.Logger

	mu           sync.Mutex
	epoch        uint64
	stage        Stage
	student      *model.Student
	questions    []model.Question
	tracker      *AnswerTracker
	remaining    int
	failure      *Failure
	result       *model.ExamResult
	countdown    *Countdown
	cancel       context.CancelFunc
	closed       bool
	lastActivity time.Time

	observers    map[int]Observer
	nextObserver int
}

// NewController creates a session in StageRegistration.
func NewController(id string, cfg config.ExamConfig, registrar Registrar, source QuestionSource, scorer Scorer, opts ...Option) *Controller {
	c := &Controller{
		id:           id,
		cfg:          cfg.Clone(),
		registrar:    registrar,
		source:       source,
		scorer:       scorer,
		tickInterval: time.Second,
		now:          time.Now,
		log:          zerolog.Nop(),
		stage:        StageRegistration,
		observers:    make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("session_id", id).Logger()
	c.lastActivity = c.now()
	return c
}

func (c *Controller) ID() string { return c.id }

// Config returns the exam configuration the session was created with.
func (c *Controller) Config() config.ExamConfig { return c.cfg.Clone() }

// ----------------------------------------------------------------
// Registration and loading
// ----------------------------------------------------------------

// Register validates the form and moves to StageLoading. Registration and the
// question fetch then run concurrently; the session lands in
// StageInstructions only if both succeed and enough questions exist.
func (c *Controller) Register(reg model.StudentRegistration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.RollNumber = strings.TrimSpace(reg.RollNumber)
	reg.ClassName = strings.TrimSpace(reg.ClassName)
	reg.Section = strings.TrimSpace(reg.Section)

	switch {
	case reg.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	case reg.RollNumber == "":
		return fmt.Errorf("%w: roll number is required", ErrInvalidRegistration)
	case !c.cfg.HasClass(reg.ClassName):
		return fmt.Errorf("%w: unknown class %q", ErrInvalidRegistration, reg.ClassName)
	case !c.cfg.HasSection(reg.Section):
		return fmt.Errorf("%w: unknown section %q", ErrInvalidRegistration, reg.Section)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if c.stage != StageRegistration {
		return ErrInvalidTransition
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	epoch := c.epoch
	c.setStageLocked(StageLoading)

	go c.load(ctx, epoch, reg)
	return nil
}

func (c *Controller) load(ctx context.Context, epoch uint64, reg model.StudentRegistration) {
	var (
		student   *model.Student
		questions []model.Question
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.registrar.Register(gctx, reg)
		if err != nil {
			return err
		}
		if s == nil {
			return errors.New("registration returned no student record")
		}
		student = s
		return nil
	})
	g.Go(func() error {
		qs, err := c.source.FetchQuestions(gctx, reg.ClassName)
		if err != nil {
			return err
		}
		questions = qs
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.stage != StageLoading {
		c.log.Debug().Msg("Discarding stale loading result")
		return
	}
	c.releaseCallLocked()

	if err != nil {
		c.log.Warn().Err(err).Str("class", reg.ClassName).Msg("Exam setup failed")
		c.failLocked(FailureSetup, errorMessage(err, "An unknown error occurred during setup."))
		return
	}
	if len(questions) < c.cfg.TotalQuestions {
		c.log.Warn().
			Str("class", reg.ClassName).
			Int("available", len(questions)).
			Int("required", c.cfg.TotalQuestions).
			Msg("Not enough questions configured")
		c.failLocked(FailureNotConfigured, fmt.Sprintf(
			"The exam for Class %s is not yet available or has fewer than %d questions. Please contact the administrator.",
			reg.ClassName, c.cfg.TotalQuestions))
		return
	}

	c.student = student
	c.questions = cloneQuestions(questions)
	c.tracker = NewAnswerTracker(len(c.questions))
	c.remaining = c.cfg.DurationSeconds()
	c.setStageLocked(StageInstructions)
}

// ----------------------------------------------------------------
// Exam
// ----------------------------------------------------------------

// Start begins the timed exam.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if c.stage != StageInstructions {
		return ErrInvalidTransition
	}

	epoch := c.epoch
	c.remaining = c.cfg.DurationSeconds()
	c.countdown = NewCountdown(c.remaining, c.tickInterval,
		func(remaining int) { c.onTick(epoch, remaining) },
		func() { c.onExpire(epoch) },
	)
	c.setStageLocked(StageInProgress)
	c.countdown.Start()
	return nil
}

func (c *Controller) onTick(epoch uint64, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.stage != StageInProgress {
		return
	}
	if remaining < c.remaining {
		c.remaining = remaining
	}
	c.notifyLocked(EventTick)
}

func (c *Controller) onExpire(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.stage != StageInProgress {
		return
	}
	c.remaining = 0
	c.log.Info().Msg("Time is up, submitting automatically")
	c.beginSubmitLocked(TriggerTimer)
}

// SelectOption records option as the answer to question index.
func (c *Controller) SelectOption(index, option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if c.stage != StageInProgress {
		return ErrInvalidTransition
	}
	if index < 0 || index >= len(c.questions) {
		return ErrIndexOutOfRange
	}
	if option < 0 || option >= len(c.questions[index].Options) {
		return ErrInvalidOption
	}
	if err := c.tracker.Select(index, option); err != nil {
		return err
	}
	c.touchLocked()
	c.notifyLocked(EventProgress)
	return nil
}

// Navigate moves to target, clamped to the question range, and returns the
// index actually shown.
func (c *Controller) Navigate(target int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return 0, err
	}
	if c.stage != StageInProgress {
		return 0, ErrInvalidTransition
	}
	idx := c.tracker.Navigate(target)
	c.touchLocked()
	c.notifyLocked(EventProgress)
	return idx, nil
}

// Submit hands the current answers to the scorer. A second call while the
// first is outstanding, or after completion, returns ErrAlreadySubmitted
// without issuing another scoring call.
func (c *Controller) Submit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	switch c.stage {
	case StageInProgress:
		c.beginSubmitLocked(TriggerManual)
		return nil
	case StageSubmitting, StageComplete:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}
}

func (c *Controller) beginSubmitLocked(trigger SubmitTrigger) {
	c.stopTimerLocked()

	sub := model.Submission{
		Student:   *c.student,
		Questions: cloneQuestions(c.questions),
		Answers:   c.tracker.Answers(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	epoch := c.epoch
	c.setStageLocked(StageSubmitting)

	c.log.Info().
		Str("trigger", string(trigger)).
		Int("answered", c.tracker.AnsweredCount()).
		Int("total", c.tracker.Len()).
		Msg("Submitting exam")

	go c.submit(ctx, epoch, sub, trigger)
}

func (c *Controller) submit(ctx context.Context, epoch uint64, sub model.Submission, trigger SubmitTrigger) {
	result, err := c.scorer.Submit(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.stage != StageSubmitting {
		c.log.Debug().Msg("Discarding stale submission result")
		return
	}
	c.releaseCallLocked()

	if err != nil {
		metrics.Submission(string(trigger), "error")
		c.log.Error().Err(err).Msg("Exam submission failed")
		c.failLocked(FailureSubmission, errorMessage(err, "Failed to submit your exam."))
		return
	}

	metrics.Submission(string(trigger), "ok")
	c.result = result
	c.setStageLocked(StageComplete)
}

// ----------------------------------------------------------------
// Reset and teardown
// ----------------------------------------------------------------

// Reset discards everything and returns to StageRegistration. It is the retry
// path from StageFailed and the restart path from StageComplete.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	switch c.stage {
	case StageRegistration:
		return nil
	case StageFailed, StageComplete:
	default:
		return ErrInvalidTransition
	}

	c.abandonLocked()
	c.student = nil
	c.questions = nil
	c.tracker = nil
	c.remaining = 0
	c.failure = nil
	c.result = nil
	c.setStageLocked(StageRegistration)
	return nil
}

// Close abandons the session from any stage: the timer stops, in-flight
// calls are cancelled and their results ignored, observers are detached.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.abandonLocked()
	c.closed = true
	c.notifyLocked(EventClosed)
	clear(c.observers)
}

func (c *Controller) abandonLocked() {
	c.epoch++
	c.stopTimerLocked()
	c.releaseCallLocked()
}

func (c *Controller) stopTimerLocked() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
}

func (c *Controller) releaseCallLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// ----------------------------------------------------------------
// Observation
// ----------------------------------------------------------------

// Snapshot returns the browser-facing view. Correct answers are never included.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Palette returns the per-question status, or nil before the questions are loaded.
func (c *Controller) Palette() []QuestionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker == nil {
		return nil
	}
	return c.tracker.Palette()
}

// Result returns the scoring result once the session is complete.
func (c *Controller) Result() *model.ExamResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// LastActivity is the time of the last user action or stage change.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// AddObserver registers o and returns a function that removes it. Observers
// run with the session lock held and must not block or call back into the
// controller.
func (c *Controller) AddObserver(o Observer) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.addObserverLocked(o)
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) addObserverLocked(o Observer) int {
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = o
	return id
}

func (c *Controller) viewLocked() View {
	v := View{
		SessionID:        c.id,
		Stage:            c.stage,
		Student:          c.student,
		RemainingSeconds: c.remaining,
		TotalQuestions:   c.cfg.TotalQuestions,
		DurationMinutes:  c.cfg.DurationMinutes,
		Failure:          c.failure,
		UpdatedAt:        c.lastActivity,
	}
	if c.tracker != nil {
		v.Questions = make([]model.QuestionForStudent, len(c.questions))
		for i, q := range c.questions {
			v.Questions[i] = q.ForStudent()
		}
		v.Answers = c.tracker.Answers()
		v.Palette = c.tracker.Palette()
		v.CurrentIndex = c.tracker.Current()
		v.AnsweredCount = c.tracker.AnsweredCount()
	}
	if c.result != nil {
		v.SubmittedAt = c.result.SubmittedAt
	}
	return v
}

func (c *Controller) notifyLocked(kind EventKind) {
	if len(c.observers) == 0 {
		return
	}
	ev := Event{
		SessionID:        c.id,
		Kind:             kind,
		Stage:            c.stage,
		RemainingSeconds: c.remaining,
		At:               c.now(),
	}
	if c.tracker != nil {
		ev.CurrentIndex = c.tracker.Current()
		ev.AnsweredCount = c.tracker.AnsweredCount()
		ev.TotalQuestions = c.tracker.Len()
	}
	if c.student != nil {
		ev.StudentName = c.student.Name
		ev.ClassName = c.student.ClassName
	}
	if c.failure != nil {
		ev.FailureKind = c.failure.Kind
	}
	for _, o := range c.observers {
		o(ev)
	}
}

// ----------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------

func (c *Controller) setStageLocked(next Stage) {
	prev := c.stage
	c.stage = next
	c.touchLocked()
	metrics.StageTransition(string(prev), string(next))
	c.log.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("Stage changed")
	c.notifyLocked(EventStage)
}

func (c *Controller) failLocked(kind FailureKind, message string) {
	c.failure = &Failure{Kind: kind, Message: message}
	metrics.SessionFailure(string(kind))
	c.setStageLocked(StageFailed)
}

func (c *Controller) touchLocked() {
	c.lastActivity = c.now()
}

func (c *Controller) checkOpenLocked() error {
	if c.closed {
		return ErrSessionClosed
	}
	return nil
}

func errorMessage(err error, fallback string) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

func cloneQuestions(in []model.Question) []model.Question {
	out := make([]model.Question, len(in))
	for i, q := range in {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
