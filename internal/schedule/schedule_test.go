package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimezone(t *testing.T) {
	s, err := New("Asia/Shanghai")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", s.Location().String())

	s, err = New("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Location())

	_, err = New("Invalid/Zone")
	assert.Error(t, err)
}

func TestScheduleReplacesEntry(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	require.NoError(t, s.Schedule("", func() {}))
	first := s.entryID
	assert.Equal(t, DefaultSpec, s.spec)

	require.NoError(t, s.Schedule("*/5 * * * *", func() {}))
	assert.NotEqual(t, first, s.entryID)
	assert.Len(t, s.cron.Entries(), 1)

	assert.Error(t, s.Schedule("not a spec", func() {}))
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	var runs int32
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Schedule(DefaultSpec, func() {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
	}))
	job := s.cron.Entry(s.entryID).WrappedJob

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-started
	job.Run()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	close(release)
	<-done
	job.Run()
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestPanicInTaskIsRecovered(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	require.NoError(t, s.Schedule(DefaultSpec, func() { panic("boom") }))
	assert.NotPanics(t, func() { s.cron.Entry(s.entryID).WrappedJob.Run() })
}

func TestNextRun(t *testing.T) {
	loc, err := LoadLocation("UTC")
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	next, err := NextRun(DefaultSpec, loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), next)

	_, err = NextRun("61 * * * *", loc, now)
	assert.Error(t, err)
}

func TestNextBeforeStart(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Schedule(DefaultSpec, func() {}))
	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
	assert.LessOrEqual(t, time.Until(next), time.Hour)
}

func TestStartStop(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	require.NoError(t, s.Schedule(DefaultSpec, func() {}))
	s.Start()
	assert.False(t, s.Next().IsZero())
	s.Stop()
}
