package model

import (
	"fmt"
	"strings"
	"time"
)

// OptionsPerQuestion is the fixed number of options every question carries.
const OptionsPerQuestion = 4

// PlaceholderPrefix marks identifiers generated on this side; the backend
// replaces them with canonical ids on save.
const PlaceholderPrefix = "q-"

// Question is a multiple-choice question as stored by the backend.
type Question struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// QuestionForStudent is a question without the correct answer, sent to the browser.
type QuestionForStudent struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ForStudent strips the answer key.
func (q Question) ForStudent() QuestionForStudent {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionForStudent{ID: q.ID, Question: q.Question, Options: opts}
}

// IsPlaceholder reports whether the id was generated locally.
func (q Question) IsPlaceholder() bool {
	return q.ID == "" || strings.HasPrefix(q.ID, PlaceholderPrefix)
}

// NewPlaceholderID returns a local identifier in the "q-<unix millis>" form.
// seq disambiguates ids minted within the same millisecond.
func NewPlaceholderID(now time.Time, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s%d", PlaceholderPrefix, now.UnixMilli())
	}
	return fmt.Sprintf("%s%d-%d", PlaceholderPrefix, now.UnixMilli(), seq)
}

// QuestionDraft is the question editor payload.
type QuestionDraft struct {
	Question           string   `json:"question" binding:"required,max=2000"`
	Options            []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" binding:"min=0,max=3"`
}

// Validate applies the editor rules regardless of how the draft arrived.
func (d QuestionDraft) Validate() error {
	if strings.TrimSpace(d.Question) == "" {
		return fmt.Errorf("question text is required")
	}
	if len(d.Options) != OptionsPerQuestion {
		return fmt.Errorf("exactly %d options are required", OptionsPerQuestion)
	}
	for i, opt := range d.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i+1)
		}
	}
	if d.CorrectAnswerIndex < 0 || d.CorrectAnswerIndex >= OptionsPerQuestion {
		return fmt.Errorf("correct answer index must be between 0 and %d", OptionsPerQuestion-1)
	}
	return nil
}

// GenerateQuestionsRequest asks the AI generator for questions for one class.
type GenerateQuestionsRequest struct {
	Count int `json:"count" binding:"omitempty,min=1,max=100"`
}
