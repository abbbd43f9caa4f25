// Package worker polls the job queue and drives posting runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"salonpost/internal/apperrors"
	"salonpost/internal/artifacts"
	"salonpost/internal/config"
	"salonpost/internal/dispatcher"
	"salonpost/internal/engine"
	"salonpost/internal/job"
	"salonpost/internal/observability"
	"salonpost/pkg/webhook"
)

// Runner executes one posting run. The production implementation opens
// a Chrome session per job; tests substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result
}

// CredentialResolver turns an account ID into portal credentials.
// The credential store implements it.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID string) (engine.Credentials, engine.SalonHint, error)
}

// Pool runs posting jobs claimed from the store. Each worker claims at
// most one job at a time; a claimed job survives pool shutdown as
// INTERRUPTED and can be resumed later.
type Pool struct {
	store     job.Store
	creds     CredentialResolver
	runner    Runner
	artifacts *artifacts.Store
	events    dispatcher.Dispatcher
	metrics   *observability.Metrics
	cfg       config.WorkerConfig
	log       *slog.Logger

	wg sync.WaitGroup
}

// NewPool creates a worker pool. artifacts, events, and metrics may be
// nil to disable the corresponding concern.
func NewPool(store job.Store, creds CredentialResolver, runner Runner, art *artifacts.Store, events dispatcher.Dispatcher, metrics *observability.Metrics, cfg config.WorkerConfig) *Pool {
	return &Pool{
		store:     store,
		creds:     creds,
		runner:    runner,
		artifacts: art,
		events:    events,
		metrics:   metrics,
		cfg:       cfg,
		log:       slog.With("component", "worker"),
	}
}

// Start launches the polling workers. Cancelling ctx stops claiming new
// jobs; a job in flight observes the cancellation at its next row
// boundary and parks as INTERRUPTED.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	p.log.Info("Worker pool started", "concurrency", p.cfg.Concurrency, "poll_interval", p.cfg.PollInterval)
}

// Wait blocks until all workers have returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With("worker", id)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		claimed, err := p.store.ClaimNext(ctx)
		switch {
		case err == nil:
			p.runJob(ctx, claimed)
			continue // look for more work without waiting for the tick
		case errors.Is(err, apperrors.ErrNotFound):
			// queue empty
		case ctx.Err() != nil:
			return
		default:
			log.Error("claim failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runJob executes one claimed job end to end. The claimed record's
// CompletedItems is the resume offset.
func (p *Pool) runJob(ctx context.Context, j *job.Job) {
	log := p.log.With("job_id", j.ID)

	if p.artifacts != nil {
		if f, err := p.artifacts.OpenLog(j.ID); err != nil {
			log.Warn("job log open failed", "error", err)
		} else {
			defer f.Close()
			log = slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, f), nil)).
				With("component", "worker", "job_id", j.ID)
			if err := p.store.SetArtifacts(ctx, j.ID, f.Name(), ""); err != nil {
				log.Warn("log path record failed", "error", err)
			}
		}
	}

	log.Info("job claimed", "owner", j.Owner, "offset", j.CompletedItems)
	start := time.Now()
	if p.metrics != nil {
		p.metrics.RecordJobStarted(ctx)
	}

	t := &tracker{store: p.store, events: p.events, metrics: p.metrics, job: j, log: log}
	t.notify(webhook.TypeJobStarted, job.StatusProcessing, j.CompletedItems, j.TotalItems, "")

	var result engine.Result
	creds, hint, err := p.creds.Resolve(ctx, j.AccountID)
	if err != nil {
		log.Error("credential resolve failed", "account_id", j.AccountID, "error", err)
		result = engine.Result{
			Total:     j.TotalItems,
			Completed: j.CompletedItems,
			Fatal:     err,
			Errors:    []engine.RowError{{Row: -1, Message: err.Error()}},
		}
	} else {
		result = p.runner.Run(ctx, engine.Params{
			JobID:        j.ID,
			Credentials:  creds,
			Salon:        hint,
			DatasetPath:  j.DatasetPath,
			ImageDir:     j.ImageDir,
			ResumeOffset: j.CompletedItems,
		}, t, t)
	}

	// Final writes must land even when the pool is shutting down.
	p.finish(context.WithoutCancel(ctx), j, t, result, start, log)
}

func (p *Pool) finish(ctx context.Context, j *job.Job, t *tracker, result engine.Result, start time.Time, log *slog.Logger) {
	status, summary := classify(result)

	if err := p.store.UpdateProgress(ctx, j.ID, result.Completed, result.Failed, result.Total); err != nil {
		log.Error("progress write failed", "error", err)
	}
	if shot := lastScreenshot(result); shot != "" {
		if err := p.store.SetArtifacts(ctx, j.ID, "", shot); err != nil {
			log.Warn("screenshot path record failed", "error", err)
		}
	}
	if err := p.store.SetStatus(ctx, j.ID, status, summary); err != nil {
		log.Error("status write failed", "status", status, "error", err)
	}

	if p.metrics != nil {
		p.metrics.RecordJobFinished(ctx, status != job.StatusFailure, time.Since(start).Seconds())
		if phase, ok := robotDetection(j, result); ok {
			p.metrics.RecordRobotDetected(ctx, phase)
		}
	}

	t.notify(webhook.TypeJobCompleted, status, result.Completed, result.Total, summary)
	log.Info("job finished",
		"status", status,
		"completed", result.Completed,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
}

// classify maps an engine result to a job status and error summary.
// Row failures alone don't fail the job; the summary names them.
func classify(result engine.Result) (status, summary string) {
	switch {
	case result.Interrupted:
		return job.StatusInterrupted, ""
	case !result.Success:
		msg := ""
		if len(result.Errors) > 0 {
			msg = result.Errors[len(result.Errors)-1].Message
		}
		return job.StatusFailure, msg
	case result.Failed > 0:
		return job.StatusSuccess, fmt.Sprintf("%d of %d styles failed", result.Failed, result.Total)
	default:
		return job.StatusSuccess, ""
	}
}

// lastScreenshot returns the most recent failure screenshot, which for
// an aborted run is the critical one.
func lastScreenshot(result engine.Result) string {
	for i := len(result.Errors) - 1; i >= 0; i-- {
		if result.Errors[i].Screenshot != "" {
			return result.Errors[i].Screenshot
		}
	}
	return ""
}

// robotDetection reports whether the run was aborted by the detection
// guard, with a coarse phase label.
func robotDetection(j *job.Job, result engine.Result) (string, bool) {
	var appErr *apperrors.Error
	if !errors.As(result.Fatal, &appErr) || !strings.HasPrefix(appErr.Op, "guard") {
		return "", false
	}
	if result.Completed > j.CompletedItems || result.Failed > 0 {
		return "submit", true
	}
	return "login", true
}
