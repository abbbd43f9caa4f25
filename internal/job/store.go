package job

import "context"

// Store persists jobs and items. Implementations: GORM (Postgres in
// production, SQLite in tests) and in-memory (CLI, tests).
type Store interface {
	// Create inserts a new job. Conflict if the ID exists.
	Create(ctx context.Context, j *Job) error

	// Get returns a job by ID. NotFound if absent.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]Job, error)

	// Items returns a job's items ordered by index.
	Items(ctx context.Context, jobID string) ([]Item, error)

	// ClaimNext atomically moves the oldest PENDING job to PROCESSING
	// and returns it. NotFound when no job is pending. At most one
	// caller can claim a given job.
	ClaimNext(ctx context.Context) (*Job, error)

	// UpdateProgress writes the cumulative completed and failed counts
	// and the dataset total, known once the dataset is loaded.
	UpdateProgress(ctx context.Context, id string, completed, failed, total int) error

	// SetStatus moves a job to a terminal or pending state, recording
	// the error summary and stamping CompletedAt for terminal states.
	SetStatus(ctx context.Context, id, status, errorMessage string) error

	// SetArtifacts records the job's log and screenshot paths. Empty
	// values leave the existing paths untouched.
	SetArtifacts(ctx context.Context, id, logPath, screenshotPath string) error

	// RecordItem upserts a row outcome keyed by (JobID, ItemIndex).
	RecordItem(ctx context.Context, item *Item) error

	// RequestInterrupt asks a job to stop. A PENDING job becomes
	// INTERRUPTED immediately; a PROCESSING job gets the interrupt flag
	// and stops at its next row boundary. Conflict for terminal states.
	RequestInterrupt(ctx context.Context, id string) error

	// InterruptRequested reports whether a stop has been requested.
	InterruptRequested(ctx context.Context, id string) (bool, error)

	// Resume moves an INTERRUPTED job back to PENDING, clearing the
	// interrupt flag and keeping CompletedItems as the resume offset.
	// Conflict for any other state.
	Resume(ctx context.Context, id string) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}
