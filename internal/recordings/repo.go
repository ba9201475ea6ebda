package recordings

import "context"

// Repo defines persistence operations for recordings.
type Repo interface {
	Create(ctx context.Context, rec Recording) error
	GetByID(ctx context.Context, recordingID string) (Recording, error)
	Delete(ctx context.Context, recordingID string) error
}
