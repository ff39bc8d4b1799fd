package domain

import "time"

// SyncResult is the settled outcome of one platform task. It is never
// mutated after the task settles.
type SyncResult struct {
	Success    bool   `json:"success"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	Platform   string `json:"platform"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Error      any    `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// SyncStatus is the progress ledger for the current (or most recent) batch.
// It is reset on every StartSync call and only ever written by the
// orchestrator; completed+failed never exceeds total.
type SyncStatus struct {
	CurrentTask string       `json:"currentTask"` // platform id, empty when idle
	Completed   int          `json:"completed"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	StartTime   time.Time    `json:"startTime,omitzero"`
	EndTime     time.Time    `json:"endTime,omitzero"`
	Results     []SyncResult `json:"results,omitempty"`
}

// SyncRun is a persisted record of one settled batch.
type SyncRun struct {
	ID         int64     `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Total      int       `db:"total"`
	Completed  int       `db:"completed"`
	Failed     int       `db:"failed"`
	Results    []SyncResult
}
