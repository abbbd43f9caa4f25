package job

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"salonpost/internal/apperrors"
	"salonpost/internal/observability"
)

const (
	maxOwnerLength = 128
	maxPathLength  = 512
)

// Service manages job lifecycle on top of a Store. It validates
// requests and owns ID generation; the worker pool drives execution.
type Service struct {
	store   Store
	metrics *observability.Metrics
}

// NewService creates a job service.
func NewService(store Store, metrics *observability.Metrics) *Service {
	return &Service{store: store, metrics: metrics}
}

// Create validates and persists a new PENDING job.
func (s *Service) Create(ctx context.Context, req *Request) (*Job, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	j := &Job{
		ID:          uuid.NewString(),
		Owner:       req.Owner,
		AccountID:   req.AccountID,
		DatasetPath: req.DatasetPath,
		ImageDir:    req.ImageDir,
		CallbackURL: req.CallbackURL,
		CallbackKey: req.CallbackKey,
		Status:      StatusPending,
	}
	if err := s.store.Create(ctx, j); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordJobCreated(ctx)
	}
	slog.Info("Job created", "jobId", j.ID, "owner", j.Owner, "dataset", j.DatasetPath)
	return j, nil
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.store.List(ctx)
}

// Items returns a job's per-row outcomes.
func (s *Service) Items(ctx context.Context, id string) ([]Item, error) {
	return s.store.Items(ctx, id)
}

// Interrupt requests a cooperative stop. A running job stops at its
// next row boundary; a pending job is interrupted immediately.
func (s *Service) Interrupt(ctx context.Context, id string) error {
	if err := s.store.RequestInterrupt(ctx, id); err != nil {
		return err
	}
	slog.Info("Job interrupt requested", "jobId", id)
	return nil
}

// Resume puts an interrupted job back in the queue. Completed rows are
// never re-attempted; the preserved completed count is the offset.
func (s *Service) Resume(ctx context.Context, id string) error {
	if err := s.store.Resume(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordJobResumed(ctx)
	}
	slog.Info("Job resumed", "jobId", id)
	return nil
}

// validate checks a create request. The dataset file must already
// exist; upload handling is outside this service.
func validate(req *Request) error {
	if req.Owner == "" {
		return apperrors.Validation("owner", "owner is required")
	}
	if len(req.Owner) > maxOwnerLength {
		return apperrors.Validation("owner", fmt.Sprintf("owner exceeds maximum length of %d", maxOwnerLength))
	}
	if req.AccountID == "" {
		return apperrors.Validation("accountId", "account ID is required")
	}

	if req.DatasetPath == "" {
		return apperrors.Validation("datasetPath", "dataset path is required")
	}
	if len(req.DatasetPath) > maxPathLength {
		return apperrors.Validation("datasetPath", fmt.Sprintf("dataset path exceeds maximum length of %d", maxPathLength))
	}
	switch strings.ToLower(filepath.Ext(req.DatasetPath)) {
	case ".csv", ".xlsx":
	default:
		return apperrors.Validation("datasetPath", "dataset must be a .csv or .xlsx file")
	}
	if info, err := os.Stat(req.DatasetPath); err != nil || info.IsDir() {
		return apperrors.Validation("datasetPath", "dataset file does not exist")
	}

	if req.ImageDir == "" {
		return apperrors.Validation("imageDir", "image directory is required")
	}
	if info, err := os.Stat(req.ImageDir); err != nil || !info.IsDir() {
		return apperrors.Validation("imageDir", "image directory does not exist")
	}

	if req.CallbackURL != "" {
		if err := validateURL(req.CallbackURL); err != nil {
			return apperrors.Validation("callbackUrl", fmt.Sprintf("invalid callback URL: %v", err))
		}
	}
	return nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
