package model

import "time"

// RunStatus represents the current state of a lead hunt run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// RecordStage distinguishes the raw extraction batch from the reconciled one.
type RecordStage string

const (
	StageRaw    RecordStage = "raw"
	StageUnique RecordStage = "unique"
)

// Run is one extraction run over a single source.
type Run struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats summarises a finished run.
type RunStats struct {
	Discovered  int   `json:"discovered"`
	Extracted   int   `json:"extracted"`
	Skipped     int   `json:"skipped"`
	Unique      int   `json:"unique"`
	Duplicates  int   `json:"duplicates"`
	AIExtracted int   `json:"ai_extracted"`
	DurationMs  int64 `json:"duration_ms"`
}
