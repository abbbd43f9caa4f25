package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err   error
	calls int
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestLivenessAlwaysHealthy(t *testing.T) {
	t.Parallel()

	checker := NewChecker(nil)
	if got := checker.Liveness(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Liveness() status = %s, want healthy", got.Status)
	}
}

func TestReadinessReflectsDatabase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ping error
		want Status
	}{
		{"database up", nil, StatusHealthy},
		{"database down", errors.New("connection refused"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker(&fakePinger{err: tt.ping})
			response := checker.Readiness(context.Background())

			if response.Status != tt.want {
				t.Errorf("Readiness() status = %s, want %s", response.Status, tt.want)
			}
			check, ok := response.Checks["database"]
			if !ok {
				t.Fatal("database check missing")
			}
			if check.Status != tt.want {
				t.Errorf("database check = %s, want %s", check.Status, tt.want)
			}
		})
	}
}

func TestReadinessNoStore(t *testing.T) {
	t.Parallel()

	checker := NewChecker(nil)
	if got := checker.Readiness(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("Readiness() status = %s, want unhealthy", got.Status)
	}
}

func TestReadinessCachesResult(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{}
	checker := NewChecker(pinger)

	checker.Readiness(context.Background())
	checker.Readiness(context.Background())

	if pinger.calls != 1 {
		t.Errorf("Ping calls = %d, want 1 (second probe should hit the cache)", pinger.calls)
	}
}

func TestSetShuttingDown(t *testing.T) {
	t.Parallel()

	checker := NewChecker(&fakePinger{})
	if got := checker.Readiness(context.Background()); !got.IsHealthy() {
		t.Fatalf("Readiness() status = %s before shutdown", got.Status)
	}

	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())
	if response.IsHealthy() {
		t.Error("Readiness() healthy after SetShuttingDown")
	}
	if _, ok := response.Checks["shutdown"]; !ok {
		t.Error("shutdown check missing from response")
	}
}
