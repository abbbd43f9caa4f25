// Package artifacts stores per-job run artifacts on disk: failure
// screenshots and the job log file.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"salonpost/internal/apperrors"
)

// Store writes artifacts under root/<jobID>/.
type Store struct {
	root string
	now  func() time.Time // overridable in tests
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Internal("artifacts.init", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

// JobDir returns (and creates) the directory for a job's artifacts.
func (s *Store) JobDir(jobID string) (string, error) {
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Internal("artifacts.jobdir", err)
	}
	return dir, nil
}

// SaveScreenshot writes a PNG named <prefix>_<timestamp>.png into the
// job's directory and returns its path. Two screenshots taken within the
// same second get distinct names via a numeric suffix.
func (s *Store) SaveScreenshot(jobID, prefix string, png []byte) (string, error) {
	dir, err := s.JobDir(jobID)
	if err != nil {
		return "", err
	}

	stamp := s.now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, stamp))
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%s_%d.png", prefix, stamp, n))
	}

	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", apperrors.Internal("artifacts.screenshot", err)
	}
	return path, nil
}

// OpenLog opens the job's log file for appending. The caller closes it.
func (s *Store) OpenLog(jobID string) (*os.File, error) {
	dir, err := s.JobDir(jobID)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "job.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.Internal("artifacts.log", err)
	}
	return f, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
