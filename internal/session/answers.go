package session

// QuestionStatus classifies a question for the navigation palette.
type QuestionStatus string

const (
	StatusCurrent    QuestionStatus = "CURRENT"
	StatusAnswered   QuestionStatus = "ANSWERED"
	StatusUnanswered QuestionStatus = "UNANSWERED"
)

// AnswerTracker holds one nullable selection per question and the index of the
// question on screen. It is not safe for concurrent use; the Controller
// serialises access.
type AnswerTracker struct {
	answers []*int
	current int
}

// NewAnswerTracker returns a tracker with n unanswered slots positioned on the
// first question.
func NewAnswerTracker(n int) *AnswerTracker {
	return &AnswerTracker{answers: make([]*int, n)}
}

func (t *AnswerTracker) Len() int { return len(t.answers) }

func (t *AnswerTracker) Current() int { return t.current }

// Select records option for question index, overwriting any earlier choice.
func (t *AnswerTracker) Select(index, option int) error {
	if index < 0 || index >= len(t.answers) {
		return ErrIndexOutOfRange
	}
	v := option
	t.answers[index] = &v
	return nil
}

// Navigate moves to target, clamped to the valid range, and returns the new index.
func (t *AnswerTracker) Navigate(target int) int {
	switch {
	case len(t.answers) == 0:
		target = 0
	case target < 0:
		target = 0
	case target >= len(t.answers):
		target = len(t.answers) - 1
	}
	t.current = target
	return target
}

// Status returns the palette status of question i. Current wins over answered.
func (t *AnswerTracker) Status(i int) QuestionStatus {
	if i == t.current {
		return StatusCurrent
	}
	if i >= 0 && i < len(t.answers) && t.answers[i] != nil {
		return StatusAnswered
	}
	return StatusUnanswered
}

func (t *AnswerTracker) Palette() []QuestionStatus {
	out := make([]QuestionStatus, len(t.answers))
	for i := range t.answers {
		out[i] = t.Status(i)
	}
	return out
}

// Answers returns a copy of every slot, nil for unanswered.
func (t *AnswerTracker) Answers() []*int {
	out := make([]*int, len(t.answers))
	for i, a := range t.answers {
		if a != nil {
			v := *a
			out[i] = &v
		}
	}
	return out
}

func (t *AnswerTracker) AnsweredCount() int {
	n := 0
	for _, a := range t.answers {
		if a != nil {
			n++
		}
	}
	return n
}
