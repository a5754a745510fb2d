package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestFetcher records sleeps instead of waiting.
func newTestFetcher(cfg Config, client *http.Client) (*Fetcher, *[]time.Duration) {
	f := New(cfg, client)
	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return f, &slept
}

func TestGetSucceedsFirstAttempt(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing accept header")
		}
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer ts.Close()

	f, slept := newTestFetcher(DefaultConfig(), ts.Client())
	body, err := f.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `[1,2,3]` {
		t.Fatalf("unexpected body %q", body)
	}
	if attempts != 1 || len(*slept) != 0 {
		t.Fatalf("expected 1 attempt and no sleep, got %d attempts %d sleeps", attempts, len(*slept))
	}
}

func TestGetRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer ts.Close()

	f, slept := newTestFetcher(Config{Timeout: time.Second, Retries: 3, Delay: 250 * time.Millisecond}, ts.Client())
	body, err := f.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(*slept))
	}
}

func TestGetExhaustsRetryBudget(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := DefaultConfig()
	f, slept := newTestFetcher(cfg, ts.Client())
	_, err := f.Get(context.Background(), ts.URL+"/item/1.json")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
	if len(*slept) != 3 {
		t.Fatalf("expected 3 delays, got %d", len(*slept))
	}
	for _, d := range *slept {
		if d != time.Second {
			t.Fatalf("expected fixed 1s delay, got %s", d)
		}
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	var fe *FailedError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FailedError, got %T", err)
	}
	if fe.URL != ts.URL+"/item/1.json" || fe.Attempts != 4 {
		t.Fatalf("unexpected failure details: %+v", fe)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected last cause to be status 500, got %v", err)
	}
}

func TestGetTimesOutEachAttempt(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	f, _ := newTestFetcher(Config{Timeout: 20 * time.Millisecond, Retries: 1}, ts.Client())
	_, err := f.Get(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestGetStopsWhenCallerCancels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, slept := newTestFetcher(DefaultConfig(), ts.Client())
	_, err := f.Get(ctx, ts.URL)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no retry after cancellation, got %d sleeps", len(*slept))
	}
}

func TestSleepCtxHonoursDelay(t *testing.T) {
	start := time.Now()
	if err := sleepCtx(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("sleep returned early")
	}
}
