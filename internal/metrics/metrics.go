package metrics

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hnlingo/internal/logging"
)

var (
	FetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_fetch_attempts_total",
		Help: "Item API fetch attempts by outcome",
	}, []string{"outcome"})
	FetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hnlingo_fetch_failures_total",
		Help: "Fetches that exhausted the retry budget",
	})
	TranslateCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_translate_calls_total",
		Help: "Upstream translation calls by outcome",
	}, []string{"outcome"})
	SplitFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hnlingo_translate_split_fallbacks_total",
		Help: "Batches re-translated item by item after a delimiter mismatch",
	})
	IngestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_ingest_runs_total",
		Help: "Total listing ingestion runs",
	}, []string{"listing"})
	IngestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_ingest_errors_total",
		Help: "Total listing ingestion errors",
	}, []string{"listing"})
	IngestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hnlingo_ingest_duration_seconds",
		Help:    "Listing ingestion duration seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"listing"})
	ItemsPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_items_persisted_total",
		Help: "Items handed to the store by kind",
	}, []string{"kind"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hnlingo_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		FetchAttempts, FetchFailures,
		TranslateCalls, SplitFallbacks,
		IngestRuns, IngestErrors, IngestDuration,
		ItemsPersisted, CommandRuns, CommandErrors,
	)
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// It returns nil when no address is configured.
func StartServer(addr string) *http.Server {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics_server_failed", map[string]any{"addr": addr, "error": err.Error()})
		}
	}()
	return srv
}

// ObserveIngestDuration records a listing run duration.
func ObserveIngestDuration(listing string, start time.Time) {
	IngestDuration.WithLabelValues(listing).Observe(time.Since(start).Seconds())
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
