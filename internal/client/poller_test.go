package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeBackend scripts upload-status responses and records classification
// fetches so tests can assert ordering.
type fakeBackend struct {
	mu           sync.Mutex
	statusCalls  int
	fetchCalls   int
	statusScript func(call int) (int, string)
	result       string
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload-status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.statusCalls++
		call := f.statusCalls
		f.mu.Unlock()

		code, body := f.statusScript(call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/get_classification", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.fetchCalls++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","classification":%q,"probability":0.2}`, f.result)
	})
	return mux
}

func (f *fakeBackend) counts() (status, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.fetchCalls
}

func newTestPoller(t *testing.T, backend *fakeBackend) (*Poller, func()) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	api, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := NewPoller(api)
	p.Interval = time.Millisecond
	p.BaseBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	return p, srv.Close
}

func TestPollerWaitsForCompleteBeforeFetching(t *testing.T) {
	backend := &fakeBackend{
		result: "HC",
		statusScript: func(call int) (int, string) {
			if call <= 3 {
				return http.StatusOK, `{"complete":false,"status":"processing"}`
			}
			return http.StatusOK, `{"complete":true,"status":"completed"}`
		},
	}
	poller, closeSrv := newTestPoller(t, backend)
	defer closeSrv()

	result, err := poller.Run(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Label != "HC" {
		t.Fatalf("label = %s, want HC", result.Label)
	}

	statusCalls, fetchCalls := backend.counts()
	if statusCalls != 4 {
		t.Fatalf("status calls = %d, want 4", statusCalls)
	}
	if fetchCalls != 1 {
		t.Fatalf("fetch calls = %d, want exactly 1 after completion", fetchCalls)
	}
}

func TestPollerExhaustsRetriesOnPersistentServerError(t *testing.T) {
	backend := &fakeBackend{
		statusScript: func(call int) (int, string) {
			return http.StatusInternalServerError, `{"status":"error","error":{"code":"internal_error","message":"boom"}}`
		},
	}
	poller, closeSrv := newTestPoller(t, backend)
	defer closeSrv()
	poller.MaxRetries = 3

	_, err := poller.Run(context.Background(), "token-1")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}

	statusCalls, fetchCalls := backend.counts()
	if statusCalls != 4 {
		t.Fatalf("status calls = %d, want initial attempt plus 3 retries", statusCalls)
	}
	if fetchCalls != 0 {
		t.Fatalf("classification fetched despite persistent errors")
	}
}

func TestPollerTransientBudgetResetsOnPendingCheck(t *testing.T) {
	backend := &fakeBackend{
		result: "AD",
		statusScript: func(call int) (int, string) {
			switch call {
			case 1, 2:
				return http.StatusInternalServerError, `{}`
			case 3:
				return http.StatusOK, `{"complete":false,"status":"processing"}`
			case 4, 5:
				return http.StatusInternalServerError, `{}`
			default:
				return http.StatusOK, `{"complete":true,"status":"completed"}`
			}
		},
	}
	poller, closeSrv := newTestPoller(t, backend)
	defer closeSrv()
	poller.MaxRetries = 2

	result, err := poller.Run(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Label != "AD" {
		t.Fatalf("label = %s, want AD", result.Label)
	}
}

func TestPollerStopsOnFatalStatus(t *testing.T) {
	backend := &fakeBackend{
		statusScript: func(call int) (int, string) {
			return http.StatusNotFound, `{"status":"error","error":{"code":"not_found","message":"unknown session token"}}`
		},
	}
	poller, closeSrv := newTestPoller(t, backend)
	defer closeSrv()

	_, err := poller.Run(context.Background(), "bad-token")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.StatusCode)
	}

	statusCalls, _ := backend.counts()
	if statusCalls != 1 {
		t.Fatalf("status calls = %d, fatal errors must not retry", statusCalls)
	}
}

func TestPollerRespectsContextCancellation(t *testing.T) {
	backend := &fakeBackend{
		statusScript: func(call int) (int, string) {
			return http.StatusOK, `{"complete":false,"status":"processing"}`
		},
	}
	poller, closeSrv := newTestPoller(t, backend)
	defer closeSrv()
	poller.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := poller.Run(ctx, "token-1")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
