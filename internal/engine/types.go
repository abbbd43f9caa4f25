// Package engine runs posting jobs against the portal: a selector-driven
// step script, a robot-detection guard, and an orchestrator with resume
// and cooperative cancellation.
package engine

import "context"

// Credentials authenticate one portal account.
type Credentials struct {
	UserID   string
	Password string
}

// SalonHint disambiguates multi-salon accounts. Matching tries the exact
// ID first, then the exact name. Empty hint on a multi-salon account is
// an error.
type SalonHint struct {
	ID   string
	Name string
}

// Params describes one run.
type Params struct {
	JobID        string
	Credentials  Credentials
	Salon        SalonHint
	DatasetPath  string
	ImageDir     string // directory the dataset's image names resolve against
	ResumeOffset int    // rows to skip; 0 for a fresh run
}

// RowError records one failed or skipped row.
type RowError struct {
	Row        int    `json:"row"`   // 0-based dataset index
	Style      string `json:"style"` // display name of the entry
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Result summarizes a finished run. Completed and Failed are cumulative:
// a resumed run starts counting from its offset.
type Result struct {
	Success     bool
	Total       int
	Completed   int
	Failed      int
	Errors      []RowError
	Interrupted bool
	Fatal       error // the error that aborted the run, nil when Success
}

// Progress receives a progress report at every row boundary and once
// after the loop. Returning false requests a cooperative stop; the
// engine finishes nothing further and reports Interrupted.
type Progress interface {
	Report(ctx context.Context, completed, total int) (bool, error)
}

// ProgressFunc adapts a function to the Progress interface.
type ProgressFunc func(ctx context.Context, completed, total int) (bool, error)

func (f ProgressFunc) Report(ctx context.Context, completed, total int) (bool, error) {
	return f(ctx, completed, total)
}

// ItemRecorder receives per-row outcomes as they happen. Optional.
type ItemRecorder interface {
	RecordItem(ctx context.Context, row int, style, status, message, screenshot string)
}

// Item statuses passed to ItemRecorder.
const (
	ItemSuccess = "SUCCESS"
	ItemFailure = "FAILURE"
	ItemSkipped = "SKIPPED"
)
