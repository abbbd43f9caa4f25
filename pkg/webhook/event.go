// Package webhook provides signed job event delivery over HTTP.
package webhook

import "time"

// Event types emitted over a job's lifetime.
const (
	TypeJobStarted   = "job.started"
	TypeJobProgress  = "job.progress"
	TypeJobCompleted = "job.completed"
)

// Event is the payload POSTed to a job's callback URL.
type Event struct {
	Type       string    `json:"type"`
	JobID      string    `json:"jobId"`
	Status     string    `json:"status"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New creates an event stamped with the current UTC time.
func New(eventType, jobID, status string, completed, failed, total int) *Event {
	return &Event{
		Type:       eventType,
		JobID:      jobID,
		Status:     status,
		Completed:  completed,
		Failed:     failed,
		Total:      total,
		OccurredAt: time.Now().UTC(),
	}
}
