package engine

import (
	"context"
	"fmt"
	"log/slog"

	"salonpost/internal/apperrors"
	"salonpost/internal/dataset"
	"salonpost/internal/selectors"
)

// SessionFactory opens a browser session. The returned closer runs on
// every exit path, including panics in the page driver.
type SessionFactory func(ctx context.Context) (Driver, func(), error)

// ScreenshotSaver persists a failure screenshot and returns its path.
// The artifact store implements it.
type ScreenshotSaver interface {
	SaveScreenshot(jobID, prefix string, png []byte) (string, error)
}

// Engine orchestrates posting runs. Safe for concurrent use; all
// per-run state lives on the stack of Run.
type Engine struct {
	sel   *selectors.Config
	shots ScreenshotSaver
	log   *slog.Logger
}

// New creates an engine. shots may be nil to disable screenshots.
func New(sel *selectors.Config, shots ScreenshotSaver, log *slog.Logger) *Engine {
	return &Engine{sel: sel, shots: shots, log: log}
}

// Run executes one posting job: open a session, log in, navigate, then
// submit rows starting at the resume offset. Row failures are isolated;
// session-fatal errors abort with a single critical error record. The
// session is torn down on every exit path.
//
// Completed counts cumulatively from the resume offset so a resumed
// job's progress keeps advancing from where it stopped.
func (e *Engine) Run(ctx context.Context, open SessionFactory, params Params, progress Progress, items ItemRecorder) Result {
	log := e.log.With("job_id", params.JobID)

	rows, err := dataset.Load(params.DatasetPath)
	if err != nil {
		log.Error("dataset load failed", "path", params.DatasetPath, "error", err)
		return fatalResult(0, params.ResumeOffset, err, "")
	}
	total := len(rows)

	result := Result{
		Total:     total,
		Completed: params.ResumeOffset,
	}

	if params.ResumeOffset < 0 || params.ResumeOffset > total {
		err := apperrors.Validation("resumeOffset", fmt.Sprintf("resume offset %d out of range [0, %d]", params.ResumeOffset, total))
		return fatalResult(total, params.ResumeOffset, err, "")
	}

	driver, closeSession, err := open(ctx)
	if err != nil {
		log.Error("session launch failed", "error", err)
		return fatalResult(total, params.ResumeOffset, apperrors.SessionFatal("session.open", err), "")
	}
	defer closeSession()

	scr := newScript(driver, e.sel, log)

	if err := scr.login(ctx, params.Credentials, params.Salon); err != nil {
		return e.fatal(ctx, driver, params.JobID, log, result, err)
	}
	if err := scr.navigateToStyleList(ctx); err != nil {
		return e.fatal(ctx, driver, params.JobID, log, result, err)
	}

	log.Info("row loop starting", "total", total, "offset", params.ResumeOffset)

	for idx := params.ResumeOffset; idx < total; idx++ {
		cont, err := progress.Report(ctx, result.Completed, total)
		if err != nil {
			log.Warn("progress report failed, stopping", "error", err)
			cont = false
		}
		if !cont {
			log.Info("stop requested, interrupting at row boundary", "next_row", idx)
			result.Interrupted = true
			break
		}

		row := rows[idx]
		style := row.DisplayName(idx)

		if !row.Has(dataset.ColImageName) {
			msg := fmt.Sprintf("%s column is empty", dataset.ColImageName)
			log.Warn("row skipped", "row", idx, "style", style, "reason", msg)
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: idx, Style: style, Message: msg})
			recordItem(ctx, items, idx, style, ItemSkipped, msg, "")
			continue
		}

		err = scr.submitRow(ctx, row, params.ImageDir)
		switch {
		case err == nil:
			result.Completed++
			log.Info("row posted", "row", idx, "style", style, "completed", result.Completed)
			recordItem(ctx, items, idx, style, ItemSuccess, "", "")

		case apperrors.IsSessionFatal(err):
			return e.fatal(ctx, driver, params.JobID, log, result, err)

		default:
			shot := e.capture(ctx, driver, params.JobID, fmt.Sprintf("error_row_%d", idx), log)
			log.Error("row failed", "row", idx, "style", style, "error", err, "screenshot", shot)
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: idx, Style: style, Message: err.Error(), Screenshot: shot})
			recordItem(ctx, items, idx, style, ItemFailure, err.Error(), shot)
		}
	}

	if _, err := progress.Report(ctx, result.Completed, total); err != nil {
		log.Warn("final progress report failed", "error", err)
	}

	result.Success = true
	log.Info("run finished", "completed", result.Completed, "failed", result.Failed, "interrupted", result.Interrupted)
	return result
}

// fatal aborts the run: one critical error record with a best-effort
// screenshot. The deferred session close still runs.
func (e *Engine) fatal(ctx context.Context, d Driver, jobID string, log *slog.Logger, result Result, err error) Result {
	shot := e.capture(ctx, d, jobID, "critical", log)
	log.Error("run aborted", "error", err, "screenshot", shot)

	result.Success = false
	result.Fatal = err
	result.Errors = append(result.Errors, RowError{Row: -1, Message: err.Error(), Screenshot: shot})
	return result
}

// capture takes and stores a screenshot. Best-effort: failures are
// logged and swallowed, never escalated.
func (e *Engine) capture(ctx context.Context, d Driver, jobID, prefix string, log *slog.Logger) string {
	if e.shots == nil || d == nil {
		return ""
	}
	png, err := d.Screenshot(ctx)
	if err != nil {
		log.Warn("screenshot capture failed", "error", err)
		return ""
	}
	path, err := e.shots.SaveScreenshot(jobID, prefix, png)
	if err != nil {
		log.Warn("screenshot save failed", "error", err)
		return ""
	}
	return path
}

func fatalResult(total, completed int, err error, screenshot string) Result {
	return Result{
		Total:     total,
		Completed: completed,
		Fatal:     err,
		Errors:    []RowError{{Row: -1, Message: err.Error(), Screenshot: screenshot}},
	}
}

func recordItem(ctx context.Context, items ItemRecorder, row int, style, status, message, screenshot string) {
	if items != nil {
		items.RecordItem(ctx, row, style, status, message, screenshot)
	}
}
