package screenings

import "context"

// StatusUpdate carries the mutable fields of a screening status transition.
// Nil pointers leave the stored value untouched.
type StatusUpdate struct {
	Status       string
	Label        string
	Probability  float64
	HasResult    bool
	ErrorMessage *string
}

// Repo defines persistence operations for screenings.
type Repo interface {
	Create(ctx context.Context, s Screening) error
	GetByToken(ctx context.Context, token string) (Screening, error)
	// Latest returns the most recently created screening. It backs the
	// token-less legacy contract where one client owns the backend.
	Latest(ctx context.Context) (Screening, error)
	UpdateStatus(ctx context.Context, token string, update StatusUpdate) error
}
