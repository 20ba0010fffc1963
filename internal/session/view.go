package session

import (
	"time"

	"github.com/stemsi/exam-portal/internal/model"
)

// View is the state pushed to the browser.
type View struct {
	SessionID        string                     `json:"sessionId"`
	Stage            Stage                      `json:"stage"`
	Student          *model.Student             `json:"student,omitempty"`
	Questions        []model.QuestionForStudent `json:"questions,omitempty"`
	Answers          []*int                     `json:"answers,omitempty"`
	Palette          []QuestionStatus           `json:"palette,omitempty"`
	CurrentIndex     int                        `json:"currentIndex"`
	AnsweredCount    int                        `json:"answeredCount"`
	RemainingSeconds int                        `json:"remainingSeconds"`
	TotalQuestions   int                        `json:"totalQuestions"`
	DurationMinutes  int                        `json:"durationMinutes"`
	Failure          *Failure                   `json:"failure,omitempty"`
	SubmittedAt      string                     `json:"submittedAt,omitempty"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

// EventKind distinguishes the notifications a Controller emits.
type EventKind string

const (
	EventStage    EventKind = "stage"
	EventProgress EventKind = "progress"
	EventTick     EventKind = "tick"
	EventClosed   EventKind = "closed"
)

// Event is a compact change notification. Observers that need the full state
// call Snapshot outside the observer callback.
type Event struct {
	SessionID        string      `json:"sessionId"`
	Kind             EventKind   `json:"kind"`
	Stage            Stage       `json:"stage"`
	StudentName      string      `json:"studentName,omitempty"`
	ClassName        string      `json:"className,omitempty"`
	CurrentIndex     int         `json:"currentIndex"`
	AnsweredCount    int         `json:"answeredCount"`
	TotalQuestions   int         `json:"totalQuestions"`
	RemainingSeconds int         `json:"remainingSeconds"`
	FailureKind      FailureKind `json:"failureKind,omitempty"`
	At               time.Time   `json:"at"`
}

// Observer receives events with the session lock held. It must return quickly
// and must not call back into the Controller.
type Observer func(Event)
