package screenings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"screening-backend/internal/cache"
	"screening-backend/internal/classifier"
	"screening-backend/internal/queue"
	"screening-backend/internal/recordings"
	"screening-backend/internal/shared/metrics"
	"screening-backend/internal/shared/telemetry"
)

const statusCacheTTL = 10 * time.Minute

// Service contains business logic for screenings.
type Service struct {
	Repo       Repo
	Recordings *recordings.Service
	Classifier classifier.Client
	JobQueue   queue.Client
	Cache      cache.Cache

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Start stores the recording and enqueues a new screening. The returned
// screening carries the session token the client must present on all
// subsequent status, result and cancel calls.
func (s *Service) Start(ctx context.Context, fileName, languageCode string, r io.Reader) (Screening, error) {
	if fileName == "" {
		return Screening{}, errors.New("fileName is required")
	}
	if strings.TrimSpace(languageCode) == "" {
		return Screening{}, ErrNoLanguage
	}

	token := uuid.NewString()

	rec, err := s.Recordings.Save(ctx, token, fileName, languageCode, r)
	if err != nil {
		return Screening{}, err
	}

	now := time.Now().UTC()
	screening := Screening{
		Token:        token,
		RecordingID:  rec.ID,
		LanguageCode: languageCode,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Repo.Create(ctx, screening); err != nil {
		return Screening{}, err
	}
	s.cacheStatus(ctx, token, StatusQueued)

	if s.JobQueue != nil {
		msg := queue.Message{
			SessionToken: token,
			RequestID:    requestIDFromContext(ctx),
			EnqueuedAt:   now.Format(time.RFC3339),
			Version:      1,
		}
		err := s.JobQueue.Send(ctx, msg)
		if err == nil {
			return screening, nil
		}
		telemetry.Error("screening.enqueue_failed", map[string]any{
			"session_token": token,
			"error":         err.Error(),
		})
		// Fall through to in-process handling so the job isn't lost.
	}

	go s.processAsync(backgroundWithRequestID(ctx), token)

	return screening, nil
}

func (s *Service) processAsync(ctx context.Context, token string) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, token, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.Process(ctx, token); err != nil {
		telemetry.Error("screening.process_failed", map[string]any{
			"request_id":    requestIDFromContext(ctx),
			"session_token": token,
			"error":         err.Error(),
		})
	}
}

// Process runs the classification for a queued screening. It is called both
// by the in-process async path and by the queue worker, and is idempotent for
// screenings that already reached a terminal state.
func (s *Service) Process(ctx context.Context, token string) error {
	screening, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("screening lookup: %w", err)
	}
	if screening.Terminal() {
		return nil
	}

	startedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatus(ctx, token, StatusUpdate{Status: StatusProcessing}); err != nil {
		if errors.Is(err, ErrTerminal) {
			// Cancelled (or finished elsewhere) before we could claim it.
			return nil
		}
		s.fail(ctx, token, fmt.Errorf("set processing failed: %w", err))
		return nil
	}
	s.cacheStatus(ctx, token, StatusProcessing)
	metrics.IncScreeningStarted()
	telemetry.Info("screening.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_token":     token,
		"recording_id":      screening.RecordingID,
		"language_code":     screening.LanguageCode,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	if s.Recordings == nil {
		s.fail(ctx, token, errors.New("missing recording store dependencies"))
		return nil
	}
	if s.Classifier == nil {
		s.fail(ctx, token, errors.New("missing classifier client"))
		return nil
	}

	rec, err := s.Recordings.Get(ctx, screening.RecordingID)
	if err != nil {
		s.fail(ctx, token, fmt.Errorf("recording lookup id=%s: %w", screening.RecordingID, err))
		return nil
	}

	audio, err := s.Recordings.OpenArtifact(ctx, rec)
	if err != nil {
		s.fail(ctx, token, fmt.Errorf("open recording %s: %w", rec.ID, err))
		return nil
	}
	defer audio.Close()

	// The per-job context lets Cancel abort an in-flight classification
	// instead of merely discarding its result.
	jobCtx, cancelJob := context.WithCancel(ctx)
	s.registerCancel(token, cancelJob)
	defer s.unregisterCancel(token)

	pred, err := s.Classifier.Classify(jobCtx, audio, rec.FileName, screening.LanguageCode)
	if err != nil {
		if jobCtx.Err() != nil {
			// Cancelled mid-flight; Cancel already recorded the terminal state.
			return nil
		}
		s.fail(ctx, token, fmt.Errorf("classify recording %s: %w", rec.ID, err))
		return nil
	}

	update := StatusUpdate{
		Status:      StatusCompleted,
		Label:       pred.Label,
		Probability: pred.Probability,
		HasResult:   true,
	}
	if err := s.Repo.UpdateStatus(ctx, token, update); err != nil {
		if errors.Is(err, ErrTerminal) {
			// A cancel landed while we were classifying; its state stands
			// and this result is discarded.
			telemetry.Info("screening.result_discarded", map[string]any{
				"request_id":    requestIDFromContext(ctx),
				"session_token": token,
			})
			return nil
		}
		s.fail(ctx, token, fmt.Errorf("set completed failed: %w", err))
		return nil
	}
	s.cacheStatus(ctx, token, StatusCompleted)
	metrics.IncScreeningCompleted()
	metrics.ObserveScreeningDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("screening.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_token":     token,
		"label":             pred.Label,
		"probability":       pred.Probability,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
	})
	return nil
}

// Status reports whether the screening's classification is ready. An empty
// token resolves to the most recent screening (legacy single-client contract).
func (s *Service) Status(ctx context.Context, token string) (bool, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		screening, err := s.Repo.Latest(ctx)
		if err != nil {
			return false, "", err
		}
		return screening.Status == StatusCompleted, screening.Status, nil
	}

	if s.Cache != nil {
		status, ok, err := s.Cache.GetStatus(ctx, token)
		if err != nil {
			telemetry.Error("screening.cache_read_failed", map[string]any{
				"session_token": token,
				"error":         err.Error(),
			})
		} else if ok {
			return status == StatusCompleted, status, nil
		}
	}

	screening, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return false, "", err
	}
	s.cacheStatus(ctx, token, screening.Status)
	return screening.Status == StatusCompleted, screening.Status, nil
}

// Result returns the completed screening or a sentinel describing why the
// classification is unavailable.
func (s *Service) Result(ctx context.Context, token string) (Screening, error) {
	screening, err := s.resolve(ctx, token)
	if err != nil {
		return Screening{}, err
	}
	switch screening.Status {
	case StatusCompleted:
		return screening, nil
	case StatusFailed:
		return screening, ErrFailed
	case StatusCancelled:
		return screening, ErrCancelled
	default:
		return screening, ErrNotReady
	}
}

// Cancel marks the screening cancelled, aborts any in-flight classification
// and removes the stored recording artifact. It is idempotent.
func (s *Service) Cancel(ctx context.Context, token string) error {
	screening, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	if screening.Terminal() {
		return nil
	}

	if err := s.Repo.UpdateStatus(ctx, screening.Token, StatusUpdate{Status: StatusCancelled}); err != nil {
		if errors.Is(err, ErrTerminal) {
			// The job finished between the lookup and the update.
			return nil
		}
		return err
	}
	s.cacheStatus(ctx, screening.Token, StatusCancelled)

	s.mu.Lock()
	cancelJob := s.cancels[screening.Token]
	s.mu.Unlock()
	if cancelJob != nil {
		cancelJob()
	}

	if rec, err := s.Recordings.Get(ctx, screening.RecordingID); err == nil {
		if err := s.Recordings.Remove(ctx, rec); err != nil {
			telemetry.Error("screening.cleanup_failed", map[string]any{
				"session_token": screening.Token,
				"recording_id":  rec.ID,
				"error":         err.Error(),
			})
		}
	}

	metrics.IncScreeningCancelled()
	telemetry.Info("screening.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_token":     screening.Token,
		"status":            StatusCancelled,
		"status_transition": screening.Status + "->cancelled",
	})
	return nil
}

func (s *Service) resolve(ctx context.Context, token string) (Screening, error) {
	if strings.TrimSpace(token) == "" {
		return s.Repo.Latest(ctx)
	}
	return s.Repo.GetByToken(ctx, strings.TrimSpace(token))
}

func (s *Service) fail(ctx context.Context, token string, cause error) {
	msg := cause.Error()
	update := StatusUpdate{Status: StatusFailed, ErrorMessage: &msg}
	if err := s.Repo.UpdateStatus(ctx, token, update); err != nil {
		if errors.Is(err, ErrTerminal) {
			// The screening was cancelled or completed first; leave it be.
			return
		}
		telemetry.Error("screening.fail_update_failed", map[string]any{
			"session_token": token,
			"error":         err.Error(),
		})
	}
	s.cacheStatus(ctx, token, StatusFailed)
	metrics.IncScreeningFailed()
	telemetry.Error("screening.failed", map[string]any{
		"request_id":    requestIDFromContext(ctx),
		"session_token": token,
		"error":         msg,
	})
}

func (s *Service) cacheStatus(ctx context.Context, token, status string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, token, status, statusCacheTTL); err != nil {
		telemetry.Error("screening.cache_write_failed", map[string]any{
			"session_token": token,
			"error":         err.Error(),
		})
	}
}

func (s *Service) registerCancel(token string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancels == nil {
		s.cancels = make(map[string]context.CancelFunc)
	}
	s.cancels[token] = cancel
}

func (s *Service) unregisterCancel(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, token)
}
