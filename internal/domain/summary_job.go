package domain

import (
	"fmt"
	"time"
)

// SummaryJobStatus represents the status of a summary job
type SummaryJobStatus string

const (
	SummaryJobStatusPending    SummaryJobStatus = "pending"
	SummaryJobStatusProcessing SummaryJobStatus = "processing"
	SummaryJobStatusCompleted  SummaryJobStatus = "completed"
	SummaryJobStatusFailed     SummaryJobStatus = "failed"
)

// SummaryMode selects how a job analyses its students.
type SummaryMode string

const (
	// SummaryModeDirect sends the selected rows in a single prompt.
	SummaryModeDirect SummaryMode = "direct"
	// SummaryModeCohort runs the batch-and-reduce pipeline.
	SummaryModeCohort SummaryMode = "cohort"
)

// SummaryJob represents an async strengths-and-weaknesses summary request
type SummaryJob struct {
	ID          string
	StudentIDs  []string
	Mode        SummaryMode
	Status      SummaryJobStatus
	Retries     int32
	Error       string
	ReportID    string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewSummaryJob creates a pending SummaryJob
func NewSummaryJob(id string, studentIDs []string, mode SummaryMode, createdAt time.Time) *SummaryJob {
	ids := make([]string, len(studentIDs))
	copy(ids, studentIDs)
	return &SummaryJob{
		ID:         id,
		StudentIDs: ids,
		Mode:       mode,
		Status:     SummaryJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateSummaryJob validates a SummaryJob instance
func ValidateSummaryJob(j *SummaryJob) error {
	if j == nil {
		return fmt.Errorf("summary job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("summary job ID is required")
	}

	if !IsValidSummaryMode(j.Mode) {
		return fmt.Errorf("summary job Mode is invalid: %s", j.Mode)
	}

	// A cohort job with no students covers the whole dataset.
	if j.Mode == SummaryModeDirect && len(j.StudentIDs) == 0 {
		return fmt.Errorf("summary job in direct mode needs at least one student")
	}

	if !isValidSummaryJobStatus(j.Status) {
		return fmt.Errorf("summary job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("summary job Retries cannot be negative")
	}

	return nil
}

// IsValidSummaryMode checks if a SummaryMode is valid
func IsValidSummaryMode(m SummaryMode) bool {
	switch m {
	case SummaryModeDirect, SummaryModeCohort:
		return true
	}
	return false
}

func isValidSummaryJobStatus(s SummaryJobStatus) bool {
	switch s {
	case SummaryJobStatusPending, SummaryJobStatusProcessing,
		SummaryJobStatusCompleted, SummaryJobStatusFailed:
		return true
	}
	return false
}
