package worker

import (
	"context"
	"log/slog"
	"time"

	"salonpost/internal/dispatcher"
	"salonpost/internal/engine"
	"salonpost/internal/job"
	"salonpost/internal/observability"
	"salonpost/pkg/webhook"
)

// tracker persists one running job's progress and row outcomes and
// checks for an interrupt request at every row boundary. It implements
// engine.Progress and engine.ItemRecorder; a tracker serves exactly one
// run and is not shared between goroutines.
type tracker struct {
	store   job.Store
	events  dispatcher.Dispatcher
	metrics *observability.Metrics
	job     *job.Job
	log     *slog.Logger

	failed int
}

func (t *tracker) Report(ctx context.Context, completed, total int) (bool, error) {
	if err := t.store.UpdateProgress(ctx, t.job.ID, completed, t.failed, total); err != nil {
		return false, err
	}

	t.notify(webhook.TypeJobProgress, job.StatusProcessing, completed, total, "")

	stop, err := t.store.InterruptRequested(ctx, t.job.ID)
	if err != nil {
		return false, err
	}
	return !stop, nil
}

func (t *tracker) RecordItem(ctx context.Context, row int, style, status, message, screenshot string) {
	if status != engine.ItemSuccess {
		t.failed++
	}

	now := time.Now()
	if err := t.store.RecordItem(ctx, &job.Item{
		JobID:          t.job.ID,
		ItemIndex:      row,
		Status:         status,
		StyleName:      style,
		ErrorMessage:   message,
		ScreenshotPath: screenshot,
		ProcessedAt:    &now,
	}); err != nil {
		t.log.Warn("item record failed", "row", row, "error", err)
	}

	if t.metrics != nil {
		t.metrics.RecordRow(ctx, status)
	}
	t.log.Info("row recorded", "row", row, "style", style, "status", status)
}

// notify dispatches a lifecycle webhook when the job has a callback.
// Delivery is async and best-effort; a full buffer only logs.
func (t *tracker) notify(eventType, status string, completed, total int, errMsg string) {
	if t.events == nil || t.job.CallbackURL == "" {
		return
	}

	ev := webhook.New(eventType, t.job.ID, status, completed, t.failed, total)
	ev.Error = errMsg

	if err := t.events.Dispatch(&dispatcher.Event{
		Payload:     ev,
		Destination: t.job.CallbackURL,
		SigningKey:  t.job.CallbackKey,
	}); err != nil {
		t.log.Warn("webhook dispatch failed", "type", eventType, "error", err)
	}
}
