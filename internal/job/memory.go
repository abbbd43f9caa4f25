package job

import (
	"context"
	"sort"
	"sync"
	"time"

	"salonpost/internal/apperrors"
)

// MemoryStore is an in-memory Store for tests and the one-shot CLI.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	items map[string][]Item
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		items: make(map[string][]Item),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return apperrors.Conflict("job", j.ID, "job already exists")
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// get returns the live record. Callers must hold s.mu.
func (s *MemoryStore) get(id string) (*Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("job", id)
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

func (s *MemoryStore) Items(_ context.Context, jobID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return nil, apperrors.NotFound("job", jobID)
	}
	items := append([]Item(nil), s.items[jobID]...)
	sort.Slice(items, func(i, k int) bool {
		return items[i].ItemIndex < items[k].ItemIndex
	})
	return items, nil
}

func (s *MemoryStore) ClaimNext(_ context.Context) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *Job
	for _, j := range s.jobs {
		if j.Status != StatusPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, apperrors.NotFound("job", "pending")
	}

	now := s.now()
	oldest.Status = StatusProcessing
	oldest.StartedAt = &now
	cp := *oldest
	return &cp, nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, id string, completed, failed, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job", id)
	}
	j.CompletedItems = completed
	j.FailedItems = failed
	j.TotalItems = total
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id, status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job", id)
	}
	j.Status = status
	j.ErrorMessage = errorMessage
	if status == StatusSuccess || status == StatusFailure || status == StatusInterrupted {
		now := s.now()
		j.CompletedAt = &now
	}
	return nil
}

func (s *MemoryStore) SetArtifacts(_ context.Context, id, logPath, screenshotPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job", id)
	}
	if logPath != "" {
		j.LogPath = logPath
	}
	if screenshotPath != "" {
		j.ScreenshotPath = screenshotPath
	}
	return nil
}

func (s *MemoryStore) RecordItem(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[item.JobID]; !ok {
		return apperrors.NotFound("job", item.JobID)
	}
	items := s.items[item.JobID]
	for i := range items {
		if items[i].ItemIndex == item.ItemIndex {
			items[i] = *item
			return nil
		}
	}
	s.items[item.JobID] = append(items, *item)
	return nil
}

func (s *MemoryStore) RequestInterrupt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job", id)
	}
	switch j.Status {
	case StatusPending:
		j.Status = StatusInterrupted
		now := s.now()
		j.CompletedAt = &now
		return nil
	case StatusProcessing:
		j.InterruptRequested = true
		return nil
	default:
		return apperrors.Conflict("job", id, "job is already finished")
	}
}

func (s *MemoryStore) InterruptRequested(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false, apperrors.NotFound("job", id)
	}
	return j.InterruptRequested, nil
}

func (s *MemoryStore) Resume(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFound("job", id)
	}
	if j.Status != StatusInterrupted {
		return apperrors.Conflict("job", id, "only interrupted jobs can be resumed")
	}
	j.Status = StatusPending
	j.InterruptRequested = false
	j.CompletedAt = nil
	j.ErrorMessage = ""
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
