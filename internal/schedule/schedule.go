// Package schedule triggers ingestion passes on a cron expression.
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hnlingo/internal/logging"
)

// DefaultSpec runs at the top of every hour.
const DefaultSpec = "0 * * * *"

// Scheduler runs one task on a cron spec in a fixed timezone. A run that
// fires while the previous one is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	spec     string
	location *time.Location
}

// New creates a Scheduler in timezone; "" means UTC.
func New(timezone string) (*Scheduler, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{cron: c, location: loc}, nil
}

// Schedule installs task on spec, replacing any previous entry.
func (s *Scheduler) Schedule(spec string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == "" {
		spec = DefaultSpec
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	id, err := s.cron.AddFunc(spec, task)
	if err != nil {
		return fmt.Errorf("schedule: add %q: %w", spec, err)
	}
	s.entryID, s.spec = id, spec
	logging.Info("schedule_installed", map[string]any{"cron": spec, "timezone": s.location.String(), "next": s.next()})
	return nil
}

// Next returns when the installed task fires next, zero if none is
// installed. Before Start it is computed from the spec.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next()
}

func (s *Scheduler) next() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		return next
	}
	next, err := NextRun(s.spec, s.location, time.Now())
	if err != nil {
		return time.Time{}
	}
	return next
}

func (s *Scheduler) Location() *time.Location { return s.location }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and blocks until running tasks finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// LoadLocation resolves a timezone name; "" means UTC.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// NextRun returns the first activation of spec after now in loc.
func NextRun(spec string, loc *time.Location, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: parse %q: %w", spec, err)
	}
	return sched.Next(now.In(loc)), nil
}

// cronLogger routes cron's own messages through the JSON logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	logging.Debug("cron_"+msg, fields(kv))
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	f := fields(kv)
	f["error"] = err.Error()
	logging.Error("cron_"+msg, f)
}

func fields(kv []any) map[string]any {
	f := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
