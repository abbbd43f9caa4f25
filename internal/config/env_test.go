package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("SALONPOST_TEST_STR", "value")

	if got := GetEnv("SALONPOST_TEST_STR", "default"); got != "value" {
		t.Errorf("GetEnv() = %q, want %q", got, "value")
	}
	if got := GetEnv("SALONPOST_TEST_MISSING", "default"); got != "default" {
		t.Errorf("GetEnv() = %q, want %q", got, "default")
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("SALONPOST_TEST_INT", "42")
	t.Setenv("SALONPOST_TEST_BAD_INT", "not-a-number")

	if got := GetIntEnv("SALONPOST_TEST_INT", 7); got != 42 {
		t.Errorf("GetIntEnv() = %d, want 42", got)
	}
	if got := GetIntEnv("SALONPOST_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetIntEnv() with invalid value = %d, want fallback 7", got)
	}
}

func TestGetBoolEnv(t *testing.T) {
	t.Setenv("SALONPOST_TEST_BOOL", "false")

	if got := GetBoolEnv("SALONPOST_TEST_BOOL", true); got {
		t.Error("GetBoolEnv() = true, want false")
	}
	if got := GetBoolEnv("SALONPOST_TEST_BOOL_MISSING", true); !got {
		t.Error("GetBoolEnv() = false, want fallback true")
	}
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("SALONPOST_TEST_DUR", "250ms")

	if got := GetDurationEnv("SALONPOST_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("GetDurationEnv() = %v, want 250ms", got)
	}
	if got := GetDurationEnv("SALONPOST_TEST_DUR_MISSING", time.Second); got != time.Second {
		t.Errorf("GetDurationEnv() = %v, want fallback 1s", got)
	}
}

func TestGetSecretFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := GetSecretFile(path); got != "s3cret" {
		t.Errorf("GetSecretFile() = %q, want trimmed %q", got, "s3cret")
	}
	if got := GetSecretFile(""); got != "" {
		t.Errorf("GetSecretFile(\"\") = %q, want empty", got)
	}
	if got := GetSecretFile(filepath.Join(t.TempDir(), "missing")); got != "" {
		t.Errorf("GetSecretFile(missing) = %q, want empty", got)
	}
}
