package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"screening-backend/internal/shared/telemetry"
)

const cancelNotifyTimeout = 5 * time.Second

// Session coordinates one analysis attempt: it owns the reducer state,
// drives the countdown tick and the poll loop, and exposes cancel semantics.
// A Session is single-use; retrying requires a fresh one.
type Session struct {
	API    *API
	Poller *Poller
	Token  string

	// TickInterval exists so tests can speed up the countdown.
	TickInterval time.Duration

	mu        sync.Mutex
	state     State
	cancelRun context.CancelFunc
}

// NewSession constructs a Session for an already-uploaded recording.
func NewSession(api *API, token string) *Session {
	poller := NewPoller(api)
	s := &Session{
		API:          api,
		Poller:       poller,
		Token:        token,
		TickInterval: time.Second,
		state:        NewState(),
	}
	poller.Notify = s.apply
	return s
}

// State returns the current session snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) apply(e Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, e)
	s.mu.Unlock()
}

// Run polls until the session reaches a terminal phase and returns the final
// state. The countdown ticks concurrently with polling and never gates it.
func (s *Session) Run(ctx context.Context) State {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()

	s.apply(EventStart{})

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		ticker := time.NewTicker(s.tickInterval())
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.apply(EventTick{})
			}
		}
	}()

	result, err := s.Poller.Run(runCtx, s.Token)
	cancel()
	<-tickDone

	switch {
	case err == nil:
		s.apply(EventResult{Result: result})
	case errors.Is(err, context.Canceled):
		// Cancel already drove the state machine; nothing to record.
	default:
		s.apply(EventFailure{Message: err.Error()})
	}

	return s.State()
}

// Cancel transitions the session to its cancelled terminal state, aborts the
// in-flight poll, and notifies the backend without awaiting the outcome.
// Notification failures are logged only.
func (s *Session) Cancel() {
	s.apply(EventCancel{})

	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	token := s.Token
	go func() {
		ctx, done := context.WithTimeout(context.Background(), cancelNotifyTimeout)
		defer done()
		if err := s.API.Cancel(ctx, token); err != nil {
			telemetry.Error("client.cancel_notify_failed", map[string]any{
				"session_token": token,
				"error":         err.Error(),
			})
		}
	}()
}

func (s *Session) tickInterval() time.Duration {
	if s.TickInterval <= 0 {
		return time.Second
	}
	return s.TickInterval
}
