package worker

import (
	"context"

	"salonpost/internal/browser"
	"salonpost/internal/engine"
)

var _ engine.Driver = (*browser.Session)(nil)

// BrowserRunner opens a fresh Chrome session per job and drives the
// posting engine over it. A session is never shared between jobs.
type BrowserRunner struct {
	engine  *engine.Engine
	browser browser.Config
}

// NewBrowserRunner creates the production runner.
func NewBrowserRunner(eng *engine.Engine, cfg browser.Config) *BrowserRunner {
	return &BrowserRunner{engine: eng, browser: cfg}
}

func (r *BrowserRunner) Run(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
	open := func(ctx context.Context) (engine.Driver, func(), error) {
		session, err := browser.Open(ctx, r.browser)
		if err != nil {
			return nil, nil, err
		}
		return session, session.Close, nil
	}
	return r.engine.Run(ctx, open, params, progress, items)
}
