// Package jobmanager owns the lifecycle of diagnostic check runs: it spawns
// the catalog-resolved command under a deadline, feeds output through the
// text decoder, invokes the parser on completion, and fans lifecycle events
// out to subscribers with full replay for late arrivals.
package jobmanager

import "time"

// Status is the lifecycle state of a job. A job starts running and
// transitions exactly once to completed or failed.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Snapshot is an immutable-at-read copy of a job's current fields.
// Subscribers and callers only ever see snapshots, never the live record.
type Snapshot struct {
	ID        string     `json:"id"`
	CheckID   string     `json:"check_id"`
	Title     string     `json:"title"`
	Target    string     `json:"target,omitempty"`
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// ExitCode is nil when no process-level code exists (killed on timeout,
	// spawn failure).
	ExitCode *int `json:"exit_code"`

	// RawOutput is the accumulated decoded output. Append-only while the
	// job is running.
	RawOutput string `json:"raw_output"`

	// Structured, Diagnosis and Evidence are empty while running and
	// populated atomically at finalization.
	Structured map[string]any `json:"structured"`
	Diagnosis  []string       `json:"diagnosis"`
	Evidence   []string       `json:"evidence"`
}

// EventKind discriminates stream events.
type EventKind string

const (
	// EventStart announces the process is about to run.
	EventStart EventKind = "start"
	// EventLog carries a chunk of decoded stdout.
	EventLog EventKind = "log"
	// EventError carries a chunk of decoded stderr or a terminal error message.
	EventError EventKind = "error"
	// EventComplete carries the final job snapshot. Exactly one per job.
	EventComplete EventKind = "complete"
)

// Event is one entry in a job's ordered event stream.
type Event struct {
	Kind  EventKind `json:"kind"`
	JobID string    `json:"job_id"`
	TS    time.Time `json:"ts"`

	// CommandLine, Title and Target are set on start events.
	CommandLine string `json:"command_line,omitempty"`
	Title       string `json:"title,omitempty"`
	Target      string `json:"target,omitempty"`

	// Text is the decoded chunk for log events, or the message for error
	// events.
	Text string `json:"text,omitempty"`

	// Job is the final snapshot on complete events.
	Job *Snapshot `json:"job,omitempty"`
}

// Input carries the caller-supplied parameters for a run.
type Input struct {
	Target         string `json:"target"`
	Count          int    `json:"count"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}
