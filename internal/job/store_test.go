package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"salonpost/internal/apperrors"
)

// storeUnderTest builds each Store implementation so the whole suite
// runs against both.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "jobs.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	gs, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": gs,
	}
}

func newJob(id string, createdAt time.Time) *Job {
	return &Job{
		ID:          id,
		Owner:       "owner-1",
		AccountID:   "acct-1",
		DatasetPath: "/data/styles.csv",
		ImageDir:    "/data/images",
		Status:      StatusPending,
		TotalItems:  3,
		CreatedAt:   createdAt,
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Create(ctx, newJob("j1", time.Now())); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := store.Create(ctx, newJob("j1", time.Now())); !errors.Is(err, apperrors.ErrConflict) {
				t.Errorf("duplicate Create() error = %v, want conflict", err)
			}

			got, err := store.Get(ctx, "j1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Status != StatusPending || got.Owner != "owner-1" {
				t.Errorf("Get() = %+v", got)
			}

			if _, err := store.Get(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want not found", err)
			}
		})
	}
}

func TestStoreClaimNextIsFIFO(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			if _, err := store.ClaimNext(ctx); !errors.Is(err, apperrors.ErrNotFound) {
				t.Fatalf("ClaimNext() on empty store error = %v, want not found", err)
			}

			for i, id := range []string{"first", "second"} {
				if err := store.Create(ctx, newJob(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
					t.Fatal(err)
				}
			}

			claimed, err := store.ClaimNext(ctx)
			if err != nil {
				t.Fatalf("ClaimNext() error = %v", err)
			}
			if claimed.ID != "first" || claimed.Status != StatusProcessing {
				t.Errorf("claimed = %+v, want oldest pending as PROCESSING", claimed)
			}
			if claimed.StartedAt == nil {
				t.Error("StartedAt not stamped")
			}

			// The claimed job is no longer claimable.
			next, err := store.ClaimNext(ctx)
			if err != nil {
				t.Fatalf("second ClaimNext() error = %v", err)
			}
			if next.ID != "second" {
				t.Errorf("second claim = %q, want %q", next.ID, "second")
			}
		})
	}
}

func TestStoreInterruptAndResume(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Pending job: interrupted immediately.
			if err := store.Create(ctx, newJob("pending", time.Now().Add(-2*time.Minute))); err != nil {
				t.Fatal(err)
			}
			if err := store.RequestInterrupt(ctx, "pending"); err != nil {
				t.Fatalf("RequestInterrupt(pending) error = %v", err)
			}
			got, _ := store.Get(ctx, "pending")
			if got.Status != StatusInterrupted {
				t.Errorf("pending job status = %q, want INTERRUPTED", got.Status)
			}

			// Processing job: flag set, status untouched.
			if err := store.Create(ctx, newJob("running", time.Now().Add(-time.Minute))); err != nil {
				t.Fatal(err)
			}
			if _, err := store.ClaimNext(ctx); err != nil {
				t.Fatal(err)
			}
			if err := store.RequestInterrupt(ctx, "running"); err != nil {
				t.Fatalf("RequestInterrupt(running) error = %v", err)
			}
			flagged, err := store.InterruptRequested(ctx, "running")
			if err != nil || !flagged {
				t.Errorf("InterruptRequested() = %v, %v, want true", flagged, err)
			}
			got, _ = store.Get(ctx, "running")
			if got.Status != StatusProcessing {
				t.Errorf("running job status = %q, want still PROCESSING", got.Status)
			}

			// The worker observes the flag and parks the job.
			if err := store.UpdateProgress(ctx, "running", 2, 0, 5); err != nil {
				t.Fatal(err)
			}
			if err := store.SetStatus(ctx, "running", StatusInterrupted, ""); err != nil {
				t.Fatal(err)
			}

			// Resume: back to PENDING, offset preserved, flag cleared.
			if err := store.Resume(ctx, "running"); err != nil {
				t.Fatalf("Resume() error = %v", err)
			}
			got, _ = store.Get(ctx, "running")
			if got.Status != StatusPending {
				t.Errorf("resumed status = %q, want PENDING", got.Status)
			}
			if got.CompletedItems != 2 {
				t.Errorf("resumed CompletedItems = %d, want preserved 2", got.CompletedItems)
			}
			if got.InterruptRequested {
				t.Error("interrupt flag not cleared on resume")
			}

			// Resume on a non-interrupted job is a conflict.
			if err := store.Resume(ctx, "running"); !errors.Is(err, apperrors.ErrConflict) {
				t.Errorf("Resume(pending) error = %v, want conflict", err)
			}

			// Interrupting a finished job is a conflict.
			if err := store.SetStatus(ctx, "pending", StatusSuccess, ""); err != nil {
				t.Fatal(err)
			}
			if err := store.RequestInterrupt(ctx, "pending"); !errors.Is(err, apperrors.ErrConflict) {
				t.Errorf("RequestInterrupt(finished) error = %v, want conflict", err)
			}
		})
	}
}

func TestStoreSetStatusStampsCompletion(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Create(ctx, newJob("j1", time.Now())); err != nil {
				t.Fatal(err)
			}

			if err := store.SetStatus(ctx, "j1", StatusFailure, "login failed"); err != nil {
				t.Fatalf("SetStatus() error = %v", err)
			}
			got, _ := store.Get(ctx, "j1")
			if got.Status != StatusFailure || got.ErrorMessage != "login failed" {
				t.Errorf("job = %+v", got)
			}
			if got.CompletedAt == nil {
				t.Error("CompletedAt not stamped on terminal status")
			}

			if err := store.SetStatus(ctx, "missing", StatusFailure, ""); !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("SetStatus(missing) error = %v, want not found", err)
			}
		})
	}
}

func TestStoreRecordItemUpserts(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Create(ctx, newJob("j1", time.Now())); err != nil {
				t.Fatal(err)
			}

			now := time.Now()
			first := &Item{JobID: "j1", ItemIndex: 1, Status: ItemFailure, StyleName: "ボブ", ErrorMessage: "timeout", ProcessedAt: &now}
			if err := store.RecordItem(ctx, first); err != nil {
				t.Fatalf("RecordItem() error = %v", err)
			}
			if err := store.RecordItem(ctx, &Item{JobID: "j1", ItemIndex: 0, Status: ItemSuccess, StyleName: "ロング", ProcessedAt: &now}); err != nil {
				t.Fatal(err)
			}

			// A resumed run re-records the failed row as SUCCESS.
			if err := store.RecordItem(ctx, &Item{JobID: "j1", ItemIndex: 1, Status: ItemSuccess, StyleName: "ボブ", ProcessedAt: &now}); err != nil {
				t.Fatalf("upsert RecordItem() error = %v", err)
			}

			items, err := store.Items(ctx, "j1")
			if err != nil {
				t.Fatalf("Items() error = %v", err)
			}
			if len(items) != 2 {
				t.Fatalf("items = %+v, want 2 (upsert, not append)", items)
			}
			if items[0].ItemIndex != 0 || items[1].ItemIndex != 1 {
				t.Errorf("items not ordered by index: %+v", items)
			}
			if items[1].Status != ItemSuccess || items[1].ErrorMessage != "" {
				t.Errorf("item 1 = %+v, want overwritten by the upsert", items[1])
			}

			if _, err := store.Items(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("Items(missing) error = %v, want not found", err)
			}
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)
			for i, id := range []string{"old", "mid", "new"} {
				if err := store.Create(ctx, newJob(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
					t.Fatal(err)
				}
			}

			jobs, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(jobs) != 3 || jobs[0].ID != "new" || jobs[2].ID != "old" {
				t.Errorf("List() order = %v", []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
			}
		})
	}
}
