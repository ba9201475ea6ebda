package screenings

import (
	"sync"
	"time"
)

// Clients poll upload-status every 2 seconds; anything faster than the window
// is a misbehaving poller.
const pollLimitWindow = 1 * time.Second

// Stale entries are swept lazily, once per this many windows, so the map does
// not grow with every token that ever polled.
const sweepEveryWindows = 10

type pollLimiter struct {
	mu        sync.Mutex
	lastHit   map[string]time.Time
	now       func() time.Time
	window    time.Duration
	lastSweep time.Time
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit:   make(map[string]time.Time),
		now:       now,
		window:    window,
		lastSweep: now(),
	}
}

func (l *pollLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastHit[key]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	l.lastHit[key] = now
	l.sweepLocked(now)
	return true
}

// sweepLocked drops entries already outside the window. Callers hold mu.
func (l *pollLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEveryWindows*l.window {
		return
	}
	for key, last := range l.lastHit {
		if now.Sub(last) >= l.window {
			delete(l.lastHit, key)
		}
	}
	l.lastSweep = now
}

func (l *pollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(pollLimitWindow.Seconds())
	}
	return int(l.window.Seconds())
}
