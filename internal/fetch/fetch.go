package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hnlingo/internal/logging"
	"hnlingo/internal/metrics"
)

// ErrFetchFailed matches every error returned once the retry budget is spent.
var ErrFetchFailed = errors.New("fetch failed")

// FailedError identifies the URL and the last cause of a failed fetch.
type FailedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FailedError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

// Config holds the per-call timeout and the fixed retry policy.
type Config struct {
	Timeout time.Duration
	Retries int
	Delay   time.Duration
}

// DefaultConfig is 10s per attempt, 3 retries, 1s apart.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, Retries: 3, Delay: time.Second}
}

// Fetcher performs GET requests with a timeout per attempt and a fixed
// delay between attempts. No backoff, no jitter.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Fetcher{cfg: cfg, httpClient: httpClient, sleep: sleepCtx}
}

// Get returns the response body of url, retrying on transport errors,
// timeouts and non-2xx statuses.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	attempts := 1 + f.cfg.Retries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := f.once(ctx, url)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("ok").Inc()
			return body, nil
		}
		metrics.FetchAttempts.WithLabelValues(outcome(err)).Inc()
		lastErr = err
		if ctx.Err() != nil {
			metrics.FetchFailures.Inc()
			return nil, &FailedError{URL: url, Attempts: attempt, Err: lastErr}
		}
		if attempt == attempts {
			break
		}
		logging.Debug("fetch_retry", map[string]any{"url": url, "attempt": attempt, "error": err.Error()})
		if err := f.sleep(ctx, f.cfg.Delay); err != nil {
			metrics.FetchFailures.Inc()
			return nil, &FailedError{URL: url, Attempts: attempt, Err: err}
		}
	}
	metrics.FetchFailures.Inc()
	return nil, &FailedError{URL: url, Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) once(ctx context.Context, url string) ([]byte, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
