package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollOutcome classifies one status check. Pending and Ready describe job
// progress; the two error kinds separate recoverable hiccups from conditions
// no amount of polling will fix.
type PollOutcome int

const (
	PollPending PollOutcome = iota
	PollReady
	PollTransientError
	PollFatalError
)

func (o PollOutcome) String() string {
	switch o {
	case PollPending:
		return "pending"
	case PollReady:
		return "ready"
	case PollTransientError:
		return "transient_error"
	case PollFatalError:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// ErrRetriesExhausted indicates the transient-error budget ran out.
var ErrRetriesExhausted = errors.New("backend unreachable: retries exhausted")

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxRetries   = 5
	defaultBaseBackoff  = 2 * time.Second
	defaultMaxBackoff   = 30 * time.Second
)

// Poller drives the status loop for one screening until the classification
// is available, the session is cancelled, or the retry budget is spent.
type Poller struct {
	API *API

	// Interval is the delay between checks while the job is pending.
	Interval time.Duration
	// MaxRetries bounds consecutive transient errors before giving up.
	MaxRetries int
	// BaseBackoff and MaxBackoff shape the exponential delay applied to
	// transient errors. Pending checks use the flat Interval.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Notify, when set, receives session events as the poll loop works
	// through its phases. Used by the session controller to keep its
	// reducer state current.
	Notify func(Event)
}

// NewPoller constructs a Poller with the default cadence.
func NewPoller(api *API) *Poller {
	return &Poller{
		API:         api,
		Interval:    defaultPollInterval,
		MaxRetries:  defaultMaxRetries,
		BaseBackoff: defaultBaseBackoff,
		MaxBackoff:  defaultMaxBackoff,
	}
}

// Run polls until the classification is ready and fetches it. Transient
// errors are retried with exponential backoff up to MaxRetries in a row;
// a successful check resets the budget. Fatal errors are returned as-is.
func (p *Poller) Run(ctx context.Context, token string) (Classification, error) {
	transient := 0

	for {
		outcome, err := p.API.UploadStatus(ctx, token)
		switch outcome {
		case PollReady:
			return p.fetch(ctx, token)
		case PollPending:
			transient = 0
			if err := p.sleep(ctx, p.interval()); err != nil {
				return Classification{}, err
			}
		case PollTransientError:
			transient++
			if transient > p.maxRetries() {
				return Classification{}, fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
			}
			if err := p.sleep(ctx, p.backoff(transient)); err != nil {
				return Classification{}, err
			}
		default:
			if err == nil {
				err = fmt.Errorf("status check failed")
			}
			return Classification{}, err
		}
	}
}

// fetch retrieves the classification, retrying transient failures with the
// same bounded budget as the status loop. A stalled result fetch should not
// strand a completed screening.
func (p *Poller) fetch(ctx context.Context, token string) (Classification, error) {
	p.notify(EventFetchStarted{})
	defer p.notify(EventFetchFinished{})

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries(); attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return Classification{}, err
			}
		}

		result, err := p.API.FetchClassification(ctx, token)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Transient() {
			return Classification{}, err
		}
		if ctx.Err() != nil {
			return Classification{}, ctx.Err()
		}
	}
	return Classification{}, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (p *Poller) backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	maxDelay := p.MaxBackoff
	if maxDelay <= 0 {
		maxDelay = defaultMaxBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return defaultPollInterval
	}
	return p.Interval
}

func (p *Poller) maxRetries() int {
	if p.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return p.MaxRetries
}

func (p *Poller) notify(e Event) {
	if p.Notify != nil {
		p.Notify(e)
	}
}
