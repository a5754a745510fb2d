package jobs

import (
	"context"
	"fmt"
	"time"

	"hnlingo/internal/ingest"
	"hnlingo/internal/logging"
	"hnlingo/internal/model"
	"hnlingo/internal/util"
)

// Runner ingests one listing.
type Runner interface {
	Run(ctx context.Context, l model.Listing) (ingest.Report, error)
}

// Summary is the outcome of one pass over the configured listings.
type Summary struct {
	Success   bool            `json:"success"`
	Duration  util.Seconds    `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
	Errors    []string        `json:"errors,omitempty"`
	Reports   []ingest.Report `json:"reports"`
}

// RunOnce runs every listing in order. A failing listing is recorded and
// the next one still runs.
func RunOnce(ctx context.Context, r Runner, listings []model.Listing) Summary {
	start := time.Now()
	sum := Summary{Success: true, Reports: make([]ingest.Report, 0, len(listings))}
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			sum.Success = false
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", l.Name, err))
			continue
		}
		rep, err := r.Run(ctx, l)
		sum.Reports = append(sum.Reports, rep)
		if err != nil {
			sum.Success = false
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", l.Name, err))
		}
	}
	elapsed := time.Since(start)
	sum.Duration = util.Seconds(elapsed)
	sum.Timestamp = time.Now().UTC()
	logging.Info("ingest_once", map[string]any{"listings": len(listings), "success": sum.Success, "errors": len(sum.Errors), "duration_ms": elapsed.Milliseconds()})
	return sum
}

// RunLoop runs RunOnce immediately and then every interval until ctx is
// cancelled. It backs `serve --interval` when no cron schedule is wanted.
func RunLoop(ctx context.Context, r Runner, listings []model.Listing, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	RunOnce(ctx, r, listings)
	for {
		select {
		case <-ctx.Done():
			logging.Info("ingest_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if sum := RunOnce(ctx, r, listings); !sum.Success {
				logging.Error("ingest_once_error", map[string]any{"errors": sum.Errors})
			}
		}
	}
}
