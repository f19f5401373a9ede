package model

import "time"

// JobStatus is the lifecycle state of a merge job
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether no further transitions can follow
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Job represents a merge job tracked in memory
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	OutputPath  string     `json:"-"`
	Filename    string     `json:"filename"`
	Error       *string    `json:"error,omitempty"`
	Delivering  bool       `json:"-"` // set once a download has claimed the output file
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ErrorMessage returns the stored failure message or an empty string
func (j *Job) ErrorMessage() string {
	if j.Error == nil {
		return ""
	}
	return *j.Error
}
