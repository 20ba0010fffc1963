package model

import "time"

// ResultStatus is the pass/fail verdict assigned by the backend.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "Pass"
	ResultStatusFail ResultStatus = "Fail"
)

// ExamResult is the scored submission as owned by the backend.
type ExamResult struct {
	ID                string       `json:"id"`
	StudentID         string       `json:"studentId"`
	StudentName       string       `json:"studentName"`
	ClassName         string       `json:"className"`
	Section           string       `json:"section"`
	RollNumber        string       `json:"rollNumber"`
	Score             int          `json:"score"`
	AnsweredQuestions int          `json:"answeredQuestions"`
	TotalQuestions    int          `json:"totalQuestions"`
	Status            ResultStatus `json:"status"`
	SubmittedAt       string       `json:"submittedAt"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the backend's timestamp strings, which may or may not
// carry a zone.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a backend timestamp for reports, falling back to the raw value.
func FormatTimestamp(s string) string {
	if t, ok := ParseTimestamp(s); ok {
		return t.Format("2006-01-02 15:04:05")
	}
	return s
}
