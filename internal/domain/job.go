package domain

import "time"

// Job is one batch-classification run over an input file. Jobs are created
// by the Runner and transition monotonically to a terminal JobStatus.
// Invariant: at most one running Job exists per InputPath at a time,
// enforced by the Job Store via the Lock table.
type Job struct {
	JobID              string
	InputPath          string
	InputFingerprint   string // size+mtime or content hash, opaque to the store
	OutputPath         string
	BatchSize          int
	TotalRows          *int64
	LastCommittedBatch int
	ProcessedCount     int64
	FailedCount        int64
	Status             JobStatus
	StartedAt          time.Time
	CompletedAt        *time.Time
	CostAccum          float64
	TimeAccumMS        int64
	ErrorSummary       string
}

// Done reports whether processed+failed accounts for every row. It is
// false while TotalRows is unknown.
func (j Job) Done() bool {
	if j.TotalRows == nil {
		return false
	}
	return j.ProcessedCount+j.FailedCount >= *j.TotalRows
}

// LeadResult is the per-row outcome of classifying one input record.
// Primary key (JobID, RowIndex); immutable once committed.
type LeadResult struct {
	JobID            string
	RowIndex         int64
	BatchIndex       int
	InputFields      map[string]string
	Classification   *Classification
	ProcessingStatus ProcessingStatus
	RetryCount       int
	ErrorKind        ErrorKind
	ErrorMessage     string
	LatencyMS        int64
	Method           Method
	Provider         string
	Cost             float64
}

// Lock is a per-input-file exclusion record, removed on terminal job status
// or when detected stale by ReleaseStaleLocks.
type Lock struct {
	InputPath  string
	JobID      string
	HeldBy     string
	AcquiredAt time.Time
}

// JobSummary is returned by a completed or failed Runner invocation,
// aggregating the outcome of every row for reporting.
type JobSummary struct {
	JobID            string
	Status           JobStatus
	TotalRows        int64
	ProcessedCount   int64
	FailedCount      int64
	RetryExhausted   int64
	ErrorKindCounts  map[ErrorKind]int64
	CostAccum        float64
	TimeAccumMS      int64
	ResumeCount      int
	StartedAt        time.Time
	CompletedAt      time.Time
}
