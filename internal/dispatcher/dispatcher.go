// Package dispatcher delivers job webhooks asynchronously with
// buffering, retry, and per-destination circuit breaking.
package dispatcher

import (
	"context"
	"errors"

	"salonpost/pkg/webhook"
)

// ErrBufferFull is returned when the queue is full and the event is dropped.
var ErrBufferFull = errors.New("dispatcher buffer full, event dropped")

// Dispatcher handles async delivery of job events.
type Dispatcher interface {
	// Dispatch queues an event for async delivery. Non-blocking.
	// Returns ErrBufferFull if the event cannot be queued.
	Dispatch(event *Event) error

	// Stats returns current dispatcher statistics.
	Stats() Stats

	// Close shuts down, attempting to deliver queued events. The
	// context deadline bounds the drain.
	Close(ctx context.Context) error
}

// Event is one webhook delivery.
type Event struct {
	Payload     *webhook.Event
	Destination string // callback URL
	SigningKey  string // HMAC key, empty for unsigned delivery
	Requeues    int    // times requeued due to an open circuit (internal)
}

// Stats holds dispatcher statistics.
type Stats struct {
	QueueDepth   int
	Queued       int64
	Delivered    int64
	Failed       int64
	Dropped      int64
	Requeued     int64
	BreakersOpen int
}
