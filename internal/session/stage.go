// Package session implements the timed exam-taking state machine: one
// Controller per student session, its countdown and its answer tracker.
package session

// Stage is the current phase of an exam session. Exactly one is active at a time.
type Stage string

const (
	StageRegistration Stage = "REGISTRATION"
	StageLoading      Stage = "LOADING"
	StageInstructions Stage = "INSTRUCTIONS"
	StageInProgress   Stage = "IN_PROGRESS"
	StageSubmitting   Stage = "SUBMITTING"
	StageComplete     Stage = "COMPLETE"
	StageFailed       Stage = "FAILED"
)

// Busy reports whether the session has work that must not be interrupted by
// idle reaping: a running exam or an outstanding scoring call.
func (s Stage) Busy() bool {
	return s == StageInProgress || s == StageSubmitting
}

// Terminal reports whether the session can only move on through Reset.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// FailureKind classifies why a session ended in StageFailed.
type FailureKind string

const (
	// FailureSetup means registration or the question fetch errored.
	FailureSetup FailureKind = "SETUP_FAILED"
	// FailureNotConfigured means the class has fewer questions than required.
	FailureNotConfigured FailureKind = "EXAM_NOT_CONFIGURED"
	// FailureSubmission means the scoring call errored.
	FailureSubmission FailureKind = "SUBMISSION_FAILED"
)

// Failure is the message shown on the error screen.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// SubmitTrigger records what caused a submission. Downstream logic treats both the same.
type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual"
	TriggerTimer  SubmitTrigger = "timer"
)
