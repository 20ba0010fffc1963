package model

import "time"

// GenerationJobStatus tracks an AI question generation job.
type GenerationJobStatus string

const (
	GenerationJobQueued  GenerationJobStatus = "QUEUED"
	GenerationJobRunning GenerationJobStatus = "RUNNING"
	GenerationJobDone    GenerationJobStatus = "DONE"
	GenerationJobFailed  GenerationJobStatus = "FAILED"
)

// GenerationJob is the queued request plus its current status.
type GenerationJob struct {
	ID        string              `json:"id"`
	ClassName string              `json:"className"`
	Count     int                 `json:"count"`
	Status    GenerationJobStatus `json:"status"`
	Generated int                 `json:"generated"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}
