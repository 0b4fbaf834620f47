package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/papertree/internal/extraction"
)

func TestWindow_Percentiles(t *testing.T) {
	w := NewWindow(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		w.Record(time.Duration(ms)*time.Millisecond, ms == 500)
	}

	snap := w.Snapshot()
	assert.Equal(t, 5, snap.Count)
	assert.Equal(t, 1, snap.Errors)
	assert.EqualValues(t, 100, snap.MinMs)
	assert.EqualValues(t, 500, snap.MaxMs)
	assert.InDelta(t, 300, snap.AvgMs, 1e-9)
	assert.InDelta(t, 300, snap.P50Ms, 1e-9)
	assert.InDelta(t, 480, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496, snap.P99Ms, 1e-9)
}

func TestWindow_PrunesExpiredSamples(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(time.Minute)
	w.now = func() time.Time { return now }

	w.Record(100*time.Millisecond, false)
	now = now.Add(2 * time.Minute)
	assert.Zero(t, w.Snapshot().Count)

	w.Record(200*time.Millisecond, false)
	snap := w.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.EqualValues(t, 200, snap.MinMs)
}

func TestWindow_ClampsNegativeDuration(t *testing.T) {
	w := NewWindow(time.Hour)
	w.Record(-time.Second, false)
	assert.EqualValues(t, 0, w.Snapshot().MaxMs)
}

func TestStepStats_KeyedByStep(t *testing.T) {
	s := NewStepStats(time.Hour)
	s.ObserveStep(extraction.CharacterExtraction, 30*time.Millisecond, nil)
	s.ObserveStep(extraction.CharacterExtraction, 10*time.Millisecond, errors.New("boom"))
	s.ObserveStep(extraction.CitationPositions, 5*time.Millisecond, nil)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	chars := snap[extraction.CharacterExtraction.String()]
	assert.Equal(t, 2, chars.Count)
	assert.Equal(t, 1, chars.Errors)
	assert.EqualValues(t, 10, chars.MinMs)
	assert.Equal(t, 1, snap[extraction.CitationPositions.String()].Count)
}

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Large buffer and interval so only explicit flushes write.
	s := NewSink(db, slog.New(slog.DiscardHandler), 1000, time.Hour)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSink_ForJobPersistsTimings(t *testing.T) {
	s := newTestSink(t)
	obs := s.ForJob("job-1")
	obs.ObserveStep(extraction.CharacterExtraction, 1500*time.Microsecond, nil)
	obs.ObserveStep(extraction.PageSegmentation, 2*time.Millisecond, errors.New("no pages"))
	s.Flush()

	all, err := s.Query(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, timing := range all {
		assert.Equal(t, "job-1", timing.JobID)
	}

	seg, err := s.Query(context.Background(), extraction.PageSegmentation.String(), 10)
	require.NoError(t, err)
	require.Len(t, seg, 1)
	assert.Equal(t, "no pages", seg[0].Error)
	assert.Equal(t, 2*time.Millisecond, seg[0].Elapsed)

	chars, err := s.Query(context.Background(), extraction.CharacterExtraction.String(), 10)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Empty(t, chars[0].Error)
	assert.Equal(t, 1500*time.Microsecond, chars[0].Elapsed)
}

func TestSink_FlushesWhenBufferFull(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	s := NewSink(db, slog.New(slog.DiscardHandler), 2, time.Hour)
	defer s.Close()

	s.Record(StepTiming{JobID: "a", Step: "CHARACTER_EXTRACTION", Timestamp: time.Now()})
	s.Record(StepTiming{JobID: "a", Step: "PAGE_SEGMENTATION", Timestamp: time.Now()})

	got, err := s.Query(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSink_Cleanup(t *testing.T) {
	s := newTestSink(t)
	s.Record(StepTiming{JobID: "old", Step: "X", Timestamp: time.Now().Add(-48 * time.Hour)})
	s.Record(StepTiming{JobID: "new", Step: "X", Timestamp: time.Now()})
	s.Flush()

	n, err := s.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.Query(context.Background(), "X", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].JobID)
}

func TestSink_CloseFlushesPending(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	s := NewSink(db, slog.New(slog.DiscardHandler), 1000, time.Hour)

	s.Record(StepTiming{JobID: "j", Step: "X", Timestamp: time.Now()})
	require.NoError(t, s.Close())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM step_timings").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := LogObserver(log)

	obs.ObserveStep(extraction.HeaderDetection, time.Millisecond, nil)
	obs.ObserveStep(extraction.ReferenceParsing, time.Millisecond, errors.New("bad"))

	out := buf.String()
	assert.Contains(t, out, "step done")
	assert.Contains(t, out, "step="+extraction.HeaderDetection.String())
	assert.Contains(t, out, "level=WARN")
	assert.True(t, strings.Contains(out, "error=bad"), out)
}
