package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveScreenshotNamesAndContent(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store.now = func() time.Time {
		return time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)
	}

	path, err := store.SaveScreenshot("job-1", "error_row_3", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("SaveScreenshot() error = %v", err)
	}

	if got := filepath.Base(path); got != "error_row_3_20260828_143005.png" {
		t.Errorf("screenshot name = %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("screenshot content = %q, err = %v", data, err)
	}
	if !strings.Contains(path, filepath.Join("job-1")) {
		t.Errorf("screenshot not under job dir: %q", path)
	}
}

func TestSaveScreenshotSameSecondGetsDistinctNames(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	first, err := store.SaveScreenshot("job-1", "error", []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.SaveScreenshot("job-1", "error", []byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatalf("expected distinct paths, both = %q", first)
	}
	if got := filepath.Base(second); got != "error_20260828_090000_2.png" {
		t.Errorf("second screenshot name = %q", got)
	}
}

func TestOpenLogAppends(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	f, err := store.OpenLog("job-2")
	if err != nil {
		t.Fatalf("OpenLog() error = %v", err)
	}
	if _, err := f.WriteString("first\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = store.OpenLog("job-2")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("log content = %q", data)
	}
}
