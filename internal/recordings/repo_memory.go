package recordings

import (
	"context"
	"sync"
)

// MemoryRepo stores recordings in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Recording
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Recording)}
}

// Create stores the recording.
func (r *MemoryRepo) Create(ctx context.Context, rec Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	return nil
}

// GetByID returns a recording by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, recordingID string) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return Recording{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[recordingID]
	if !ok {
		return Recording{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes a recording. Deleting a missing recording is not an error.
func (r *MemoryRepo) Delete(ctx context.Context, recordingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, recordingID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
