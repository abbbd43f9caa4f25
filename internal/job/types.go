// Package job defines the durable posting job model and its stores.
package job

import "time"

// Job statuses. INTERRUPTED is the resumable terminal state: Resume
// moves it back to PENDING with completed_items preserved as the
// resume offset.
const (
	StatusPending     = "PENDING"
	StatusProcessing  = "PROCESSING"
	StatusSuccess     = "SUCCESS"
	StatusFailure     = "FAILURE"
	StatusInterrupted = "INTERRUPTED"
)

// Item statuses, one item per dataset row.
const (
	ItemPending    = "PENDING"
	ItemProcessing = "PROCESSING"
	ItemSuccess    = "SUCCESS"
	ItemFailure    = "FAILURE"
	ItemSkipped    = "SKIPPED"
)

// Job is one end-to-end posting run over a dataset.
//
// CompletedItems is monotonically non-decreasing while PROCESSING and
// doubles as the resume offset after an interruption. Invariant:
// 0 <= CompletedItems <= TotalItems.
type Job struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	Owner     string `gorm:"size:128" json:"owner"`
	AccountID string `gorm:"size:64" json:"accountId"`

	DatasetPath string `gorm:"size:512" json:"datasetPath"`
	ImageDir    string `gorm:"size:512" json:"imageDir"`

	CallbackURL string `gorm:"size:512" json:"callbackUrl,omitempty"`
	CallbackKey string `gorm:"size:128" json:"-"`

	Status             string `gorm:"size:16;index" json:"status"`
	InterruptRequested bool   `json:"interruptRequested"`

	TotalItems     int `json:"totalItems"`
	CompletedItems int `json:"completedItems"`
	FailedItems    int `json:"failedItems"`

	LogPath        string `gorm:"size:512" json:"logPath,omitempty"`
	ScreenshotPath string `gorm:"size:512" json:"screenshotPath,omitempty"`
	ErrorMessage   string `gorm:"size:2048" json:"errorMessage,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Item is the outcome of one dataset row. Items are created lazily as
// rows are processed and keyed by (job, index); re-recording an index
// overwrites the earlier outcome (a resumed row that failed before).
type Item struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	JobID          string     `gorm:"size:64;uniqueIndex:idx_job_item" json:"jobId"`
	ItemIndex      int        `gorm:"uniqueIndex:idx_job_item" json:"itemIndex"`
	Status         string     `gorm:"size:16" json:"status"`
	StyleName      string     `gorm:"size:256" json:"styleName"`
	ErrorMessage   string     `gorm:"size:2048" json:"errorMessage,omitempty"`
	ScreenshotPath string     `gorm:"size:512" json:"screenshotPath,omitempty"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
}

// Request creates a new job. The dataset and images are expected to be
// in place already; upload handling lives outside this service.
type Request struct {
	Owner       string `json:"owner"`
	AccountID   string `json:"accountId"`
	DatasetPath string `json:"datasetPath"`
	ImageDir    string `json:"imageDir"`
	CallbackURL string `json:"callbackUrl,omitempty"`
	CallbackKey string `json:"callbackKey,omitempty"`
}
