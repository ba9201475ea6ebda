package screenings

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedScreening(t *testing.T, repo *MemoryRepo, token, status string) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.Create(context.Background(), Screening{
		Token:        token,
		RecordingID:  "rec-" + token,
		LanguageCode: "en",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestMemoryRepoTerminalStatusIsFinal(t *testing.T) {
	repo := NewMemoryRepo()
	seedScreening(t, repo, "tok-1", StatusQueued)

	ctx := context.Background()
	if err := repo.UpdateStatus(ctx, "tok-1", StatusUpdate{Status: StatusCancelled}); err != nil {
		t.Fatalf("cancel transition: %v", err)
	}

	// A classification result arriving after the cancel must not resurrect
	// the screening.
	err := repo.UpdateStatus(ctx, "tok-1", StatusUpdate{
		Status:      StatusCompleted,
		Label:       "HC",
		Probability: 0.1,
		HasResult:   true,
	})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}

	s, err := repo.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if s.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", s.Status)
	}
	if s.Label != "" {
		t.Fatalf("label = %q, discarded result must not be stored", s.Label)
	}
}

func TestMemoryRepoUpdateStatusUnknownTokenIsNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	err := repo.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: StatusProcessing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
