package models

import "time"

// JobStatus is the lifecycle of the once-per-day refresh job.
type JobStatus string

const (
	JobIdle    JobStatus = "idle"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// DailyJobState is persisted between runs so restarts and sibling processes
// agree on whether today's job already happened.
type DailyJobState struct {
	Day        string     `json:"day"`
	Status     JobStatus  `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobOutcome is the decision taken by one acquisition attempt.
type JobOutcome string

const (
	JobStarted               JobOutcome = "started"
	JobSkippedAlreadyDone    JobOutcome = "skipped_already_done"
	JobSkippedAlreadyRunning JobOutcome = "skipped_already_running"
	JobTookOver              JobOutcome = "took_over"
)
