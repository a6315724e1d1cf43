package domain

import "time"

// NoDataMessage is returned in place of a summary when nothing matched.
const NoDataMessage = "No data found."

// SummaryReport is the stored outcome of a summary job.
type SummaryReport struct {
	ID         string
	JobID      string
	StudentIDs []string
	Mode       SummaryMode
	Summary    string
	NoData     bool
	Calls      int
	Levels     int
	Chunks     int
	ArchiveKey string
	Embedding  []float32
	CreatedAt  time.Time
}
