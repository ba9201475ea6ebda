package recordings

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"screening-backend/internal/shared/storage/object"
	"screening-backend/internal/shared/telemetry"
)

// probeNamespace holds transient connectivity-check artifacts.
const probeNamespace = "connection-probe"

// Service contains business logic for recording artifacts.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Save stores the recording under the session namespace and records it.
func (s *Service) Save(ctx context.Context, sessionToken, fileName, languageCode string, r io.Reader) (Recording, error) {
	if fileName == "" || sessionToken == "" {
		return Recording{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, sessionToken, fileName, r)
	if err != nil {
		return Recording{}, err
	}

	rec := Recording{
		ID:           uuid.NewString(),
		SessionToken: sessionToken,
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    size,
		LanguageCode: languageCode,
		StorageKey:   storageKey,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		// Don't leave an orphaned object behind the failed row.
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Error("recording.orphan_cleanup_failed", map[string]any{
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Recording{}, err
	}

	return rec, nil
}

// Get returns a recording by ID.
func (s *Service) Get(ctx context.Context, recordingID string) (Recording, error) {
	if recordingID == "" {
		return Recording{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, recordingID)
}

// OpenArtifact opens the stored audio for reading.
func (s *Service) OpenArtifact(ctx context.Context, rec Recording) (io.ReadCloser, error) {
	return s.Store.Open(ctx, rec.StorageKey)
}

// Remove deletes the stored artifact and its record.
func (s *Service) Remove(ctx context.Context, rec Recording) error {
	if err := s.Store.Delete(ctx, rec.StorageKey); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, rec.ID)
}

// Probe writes and immediately discards a small artifact, verifying that the
// server can receive uploads and reach its object store.
func (s *Service) Probe(ctx context.Context, fileName string, r io.Reader) error {
	if fileName == "" {
		return ErrInvalidInput
	}
	storageKey, _, _, err := s.Store.Save(ctx, probeNamespace, fileName, r)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Error("recording.probe_cleanup_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
	return nil
}
