package screenings

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores screenings in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byToken map[string]Screening
	order   []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byToken: make(map[string]Screening)}
}

// Create stores the screening.
func (r *MemoryRepo) Create(ctx context.Context, s Screening) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byToken[s.Token]; !exists {
		r.order = append(r.order, s.Token)
	}
	r.byToken[s.Token] = s
	return nil
}

// GetByToken returns a screening by its session token.
func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Screening, error) {
	if err := ctx.Err(); err != nil {
		return Screening{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byToken[token]
	if !ok {
		return Screening{}, ErrNotFound
	}
	return s, nil
}

// Latest returns the most recently created screening.
func (r *MemoryRepo) Latest(ctx context.Context) (Screening, error) {
	if err := ctx.Err(); err != nil {
		return Screening{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return Screening{}, ErrNotFound
	}
	return r.byToken[r.order[len(r.order)-1]], nil
}

// UpdateStatus applies a status transition and maintains timestamps. A
// screening that already reached a terminal status stays there; the losing
// transition gets ErrTerminal.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, token string, update StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return ErrNotFound
	}
	if s.Terminal() {
		return ErrTerminal
	}

	now := time.Now().UTC()
	s.Status = update.Status
	if update.HasResult {
		s.Label = update.Label
		s.Probability = update.Probability
	}
	if update.ErrorMessage != nil {
		s.ErrorMessage = update.ErrorMessage
	}
	if update.Status == StatusProcessing && s.StartedAt == nil {
		s.StartedAt = &now
	}
	if s.Terminal() && s.CompletedAt == nil {
		s.CompletedAt = &now
	}
	s.UpdatedAt = now
	r.byToken[token] = s
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
