package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salonpost/internal/config"
	"salonpost/internal/dispatcher"
	"salonpost/internal/engine"
	"salonpost/internal/job"
	"salonpost/internal/testutil"
)

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, accountID string) (engine.Credentials, engine.SalonHint, error) {
	if f.err != nil {
		return engine.Credentials{}, engine.SalonHint{}, f.err
	}
	return engine.Credentials{UserID: "user", Password: "pw"}, engine.SalonHint{ID: "S001"}, nil
}

type fakeRunner struct {
	mu   sync.Mutex
	runs []engine.Params
	run  func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result
}

func (f *fakeRunner) Run(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
	f.mu.Lock()
	f.runs = append(f.runs, params)
	f.mu.Unlock()
	return f.run(ctx, params, progress, items)
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type capturingDispatcher struct {
	mu     sync.Mutex
	events []*dispatcher.Event
}

func (c *capturingDispatcher) Dispatch(event *dispatcher.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingDispatcher) Stats() dispatcher.Stats        { return dispatcher.Stats{} }
func (c *capturingDispatcher) Close(ctx context.Context) error { return nil }

func (c *capturingDispatcher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Payload.Type
	}
	return out
}

// postRows simulates the engine's row loop: report, then succeed every
// row, honoring the cooperative stop.
func postRows(total int) func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
	return func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
		result := engine.Result{Total: total, Completed: params.ResumeOffset}
		for idx := params.ResumeOffset; idx < total; idx++ {
			cont, err := progress.Report(ctx, result.Completed, total)
			if err != nil || !cont {
				result.Interrupted = true
				result.Success = true
				return result
			}
			result.Completed++
			items.RecordItem(ctx, idx, "style", engine.ItemSuccess, "", "")
		}
		progress.Report(ctx, result.Completed, total)
		result.Success = true
		return result
	}
}

func startPool(t *testing.T, store job.Store, runner Runner, creds CredentialResolver, events dispatcher.Dispatcher) *Pool {
	t.Helper()

	pool := NewPool(store, creds, runner, nil, events, nil, config.WorkerConfig{
		Concurrency:  1,
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})
	return pool
}

func createJob(t *testing.T, store job.Store, j *job.Job) *job.Job {
	t.Helper()
	if j.Status == "" {
		j.Status = job.StatusPending
	}
	if err := store.Create(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	return j
}

func waitForStatus(t *testing.T, store job.Store, id, status string) *job.Job {
	t.Helper()
	var got *job.Job
	testutil.MustWaitFor(t, func() bool {
		j, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == status
	})
	return got
}

func TestPoolRunsJobToSuccess(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: postRows(3)}
	startPool(t, store, runner, &fakeResolver{}, nil)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "a", DatasetPath: "d.csv", ImageDir: "img"})

	got := waitForStatus(t, store, "j1", job.StatusSuccess)
	if got.CompletedItems != 3 || got.TotalItems != 3 {
		t.Errorf("progress = %d/%d, want 3/3", got.CompletedItems, got.TotalItems)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}

	items, err := store.Items(context.Background(), "j1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for i, item := range items {
		if item.ItemIndex != i || item.Status != job.ItemSuccess {
			t.Errorf("item %d = %+v", i, item)
		}
	}

	// Runner got the resolved credentials and a fresh offset.
	if params := runner.runs[0]; params.Credentials.UserID != "user" || params.ResumeOffset != 0 {
		t.Errorf("params = %+v", params)
	}
}

func TestPoolPartialSuccessSummary(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
		progress.Report(ctx, 0, 3)
		items.RecordItem(ctx, 0, "a", engine.ItemSuccess, "", "")
		items.RecordItem(ctx, 1, "b", engine.ItemFailure, "coupon not found", "shot.png")
		items.RecordItem(ctx, 2, "c", engine.ItemSuccess, "", "")
		return engine.Result{
			Success: true, Total: 3, Completed: 2, Failed: 1,
			Errors: []engine.RowError{{Row: 1, Style: "b", Message: "coupon not found", Screenshot: "shot.png"}},
		}
	}}
	startPool(t, store, runner, &fakeResolver{}, nil)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "a"})

	got := waitForStatus(t, store, "j1", job.StatusSuccess)
	if got.ErrorMessage != "1 of 3 styles failed" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if got.FailedItems != 1 {
		t.Errorf("failed items = %d, want 1", got.FailedItems)
	}
	if got.ScreenshotPath != "shot.png" {
		t.Errorf("screenshot path = %q", got.ScreenshotPath)
	}
}

func TestPoolFatalResultFailsJob(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
		return engine.Result{
			Total: 3,
			Errors: []engine.RowError{
				{Row: -1, Message: "login button not found", Screenshot: "critical.png"},
			},
		}
	}}
	startPool(t, store, runner, &fakeResolver{}, nil)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "a"})

	got := waitForStatus(t, store, "j1", job.StatusFailure)
	if got.ErrorMessage != "login button not found" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if got.ScreenshotPath != "critical.png" {
		t.Errorf("screenshot path = %q", got.ScreenshotPath)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestPoolCredentialFailureFailsJob(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: postRows(3)}
	startPool(t, store, runner, &fakeResolver{err: errors.New("account missing")}, nil)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "gone"})

	got := waitForStatus(t, store, "j1", job.StatusFailure)
	if got.ErrorMessage != "account missing" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if runner.runCount() != 0 {
		t.Error("runner invoked without credentials")
	}
}

func TestPoolInterruptAndResume(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	ctx := context.Background()

	// Interrupt after the first completed row.
	runner := &fakeRunner{}
	runner.run = func(ctx context.Context, params engine.Params, progress engine.Progress, items engine.ItemRecorder) engine.Result {
		result := engine.Result{Total: 3, Completed: params.ResumeOffset, Success: true}
		for idx := params.ResumeOffset; idx < 3; idx++ {
			cont, err := progress.Report(ctx, result.Completed, 3)
			if err != nil || !cont {
				result.Interrupted = true
				return result
			}
			result.Completed++
			items.RecordItem(ctx, idx, "style", engine.ItemSuccess, "", "")
			if runner.runCount() == 1 && idx == 0 {
				store.RequestInterrupt(ctx, params.JobID)
			}
		}
		progress.Report(ctx, result.Completed, 3)
		return result
	}
	startPool(t, store, runner, &fakeResolver{}, nil)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "a"})

	got := waitForStatus(t, store, "j1", job.StatusInterrupted)
	if got.CompletedItems != 1 {
		t.Fatalf("completed = %d, want 1", got.CompletedItems)
	}

	if err := store.Resume(ctx, "j1"); err != nil {
		t.Fatal(err)
	}

	got = waitForStatus(t, store, "j1", job.StatusSuccess)
	if got.CompletedItems != 3 {
		t.Errorf("completed after resume = %d, want 3", got.CompletedItems)
	}

	testutil.MustWaitFor(t, func() bool { return runner.runCount() == 2 })
	if offset := runner.runs[1].ResumeOffset; offset != 1 {
		t.Errorf("resumed offset = %d, want 1", offset)
	}
}

func TestPoolDispatchesWebhooks(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: postRows(2)}
	events := &capturingDispatcher{}
	startPool(t, store, runner, &fakeResolver{}, events)

	createJob(t, store, &job.Job{
		ID: "j1", Owner: "o", AccountID: "a",
		CallbackURL: "https://example.com/hook", CallbackKey: "signing-key",
	})

	waitForStatus(t, store, "j1", job.StatusSuccess)

	types := events.types()
	if len(types) < 3 {
		t.Fatalf("event types = %v, want started, progress..., completed", types)
	}
	if types[0] != "job.started" {
		t.Errorf("first event = %s, want job.started", types[0])
	}
	if last := types[len(types)-1]; last != "job.completed" {
		t.Errorf("last event = %s, want job.completed", last)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	for _, ev := range events.events {
		if ev.Destination != "https://example.com/hook" || ev.SigningKey != "signing-key" {
			t.Errorf("event routing = %+v", ev)
		}
	}
	final := events.events[len(events.events)-1]
	if final.Payload.Status != job.StatusSuccess || final.Payload.Completed != 2 {
		t.Errorf("final payload = %+v", final.Payload)
	}
}

func TestPoolNoWebhooksWithoutCallback(t *testing.T) {
	t.Parallel()

	store := job.NewMemoryStore()
	runner := &fakeRunner{run: postRows(1)}
	events := &capturingDispatcher{}
	startPool(t, store, runner, &fakeResolver{}, events)

	createJob(t, store, &job.Job{ID: "j1", Owner: "o", AccountID: "a"})

	waitForStatus(t, store, "j1", job.StatusSuccess)
	if got := events.types(); len(got) != 0 {
		t.Errorf("events dispatched without a callback URL: %v", got)
	}
}
