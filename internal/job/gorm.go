package job

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salonpost/internal/apperrors"
)

// GormStore persists jobs in a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns a store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Job{}, &Item{}); err != nil {
		return nil, apperrors.Internal("store.migrate", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, j *Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Create(j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("job", j.ID, "job already exists")
		}
		return apperrors.Internal("store.create", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("job", id)
		}
		return nil, apperrors.Internal("store.get", err)
	}
	return &j, nil
}

func (s *GormStore) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Internal("store.list", err)
	}
	return jobs, nil
}

func (s *GormStore) Items(ctx context.Context, jobID string) ([]Item, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}
	var items []Item
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("item_index ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Internal("store.items", err)
	}
	return items, nil
}

// ClaimNext finds the oldest pending job and claims it with a guarded
// update, so two workers racing on the same row cannot both win.
func (s *GormStore) ClaimNext(ctx context.Context) (*Job, error) {
	for {
		var j Job
		err := s.db.WithContext(ctx).
			Where("status = ?", StatusPending).
			Order("created_at ASC").
			First(&j).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("job", "pending")
			}
			return nil, apperrors.Internal("store.claim", err)
		}

		now := time.Now()
		res := s.db.WithContext(ctx).
			Model(&Job{}).
			Where("id = ? AND status = ?", j.ID, StatusPending).
			Updates(map[string]any{"status": StatusProcessing, "started_at": now})
		if res.Error != nil {
			return nil, apperrors.Internal("store.claim", res.Error)
		}
		if res.RowsAffected == 0 {
			continue // another worker got there first, try the next one
		}

		j.Status = StatusProcessing
		j.StartedAt = &now
		return &j, nil
	}
}

func (s *GormStore) UpdateProgress(ctx context.Context, id string, completed, failed, total int) error {
	return s.update(ctx, id, map[string]any{
		"completed_items": completed,
		"failed_items":    failed,
		"total_items":     total,
	})
}

func (s *GormStore) SetStatus(ctx context.Context, id, status, errorMessage string) error {
	fields := map[string]any{
		"status":        status,
		"error_message": errorMessage,
	}
	if status == StatusSuccess || status == StatusFailure || status == StatusInterrupted {
		fields["completed_at"] = time.Now()
	}
	return s.update(ctx, id, fields)
}

func (s *GormStore) SetArtifacts(ctx context.Context, id, logPath, screenshotPath string) error {
	fields := map[string]any{}
	if logPath != "" {
		fields["log_path"] = logPath
	}
	if screenshotPath != "" {
		fields["screenshot_path"] = screenshotPath
	}
	if len(fields) == 0 {
		return nil
	}
	return s.update(ctx, id, fields)
}

func (s *GormStore) RecordItem(ctx context.Context, item *Item) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "item_index"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "style_name", "error_message", "screenshot_path", "processed_at",
			}),
		}).
		Create(item).Error
	if err != nil {
		return apperrors.Internal("store.recordItem", err)
	}
	return nil
}

func (s *GormStore) RequestInterrupt(ctx context.Context, id string) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch j.Status {
	case StatusPending:
		res := s.db.WithContext(ctx).
			Model(&Job{}).
			Where("id = ? AND status = ?", id, StatusPending).
			Updates(map[string]any{"status": StatusInterrupted, "completed_at": time.Now()})
		if res.Error != nil {
			return apperrors.Internal("store.interrupt", res.Error)
		}
		if res.RowsAffected == 0 {
			// Claimed between the read and the update; fall back to the flag.
			return s.update(ctx, id, map[string]any{"interrupt_requested": true})
		}
		return nil
	case StatusProcessing:
		return s.update(ctx, id, map[string]any{"interrupt_requested": true})
	default:
		return apperrors.Conflict("job", id, "job is already finished")
	}
}

func (s *GormStore) InterruptRequested(ctx context.Context, id string) (bool, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return j.InterruptRequested, nil
}

func (s *GormStore) Resume(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusInterrupted).
		Updates(map[string]any{
			"status":              StatusPending,
			"interrupt_requested": false,
			"completed_at":        nil,
			"error_message":       "",
		})
	if res.Error != nil {
		return apperrors.Internal("store.resume", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return apperrors.Conflict("job", id, "only interrupted jobs can be resumed")
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return apperrors.Internal("store.ping", err)
	}
	return db.PingContext(ctx)
}

func (s *GormStore) update(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperrors.Internal("store.update", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("job", id)
	}
	return nil
}
