package model

// Submission is the payload handed to the scoring collaborator. Answers holds
// one slot per question; nil means unanswered.
type Submission struct {
	Student   Student    `json:"student"`
	Questions []Question `json:"questions"`
	Answers   []*int     `json:"answers"`
}

// SelectOptionRequest sets the answer for one question.
type SelectOptionRequest struct {
	Option *int `json:"option" binding:"required,min=0"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}
