package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddAndFlushForced(t *testing.T) {
	tr := NewTracker("")
	tr.Add(QueueLength, 7, 3)
	tr.Add(QueueLength, 7, 4)
	tr.Add(SelfTime, 1, 0.5)

	out := tr.Flush(0, true)
	require.Len(t, out[StatKey{QueueLength, 7}], 2)
	require.Equal(t, 3.0, out[StatKey{QueueLength, 7}][0].Value)
	require.Equal(t, 4.0, out[StatKey{QueueLength, 7}][1].Value)
	require.Len(t, out[StatKey{SelfTime, 1}], 1)
}

// TestFlushTruncatesRatherThanCopyingStrayElement guards against
// reproducing the original's one-past-the-end copy: after a flush, the
// series must be empty, and a subsequent Add must start a fresh buffer
// containing only the new sample, never a carried-over value.
func TestFlushTruncatesRatherThanCopyingStrayElement(t *testing.T) {
	tr := NewTracker("")
	tr.Add(ThreadLoopTime, 0, 1)
	tr.Add(ThreadLoopTime, 0, 2)
	tr.Add(ThreadLoopTime, 0, 3)

	_ = tr.Flush(0, true)

	tr.Add(ThreadLoopTime, 0, 42)
	out := tr.Flush(0, true)
	samples := out[StatKey{ThreadLoopTime, 0}]
	require.Len(t, samples, 1)
	require.Equal(t, 42.0, samples[0].Value)
}

func TestFlushSkipsSeriesBelowMinAgeUnlessForced(t *testing.T) {
	tr := NewTracker("")
	tr.Add(SelfTime, 1, 1)

	out := tr.Flush(time.Hour, false)
	require.Empty(t, out)

	out = tr.Flush(time.Hour, true)
	require.Len(t, out[StatKey{SelfTime, 1}], 1)
}

func TestSpanRecordsElapsedTime(t *testing.T) {
	tr := NewTracker("")
	done := tr.Span(FullMSUTime, 5)
	time.Sleep(time.Millisecond)
	done()

	out := tr.Flush(0, true)
	samples := out[StatKey{FullMSUTime, 5}]
	require.Len(t, samples, 1)
	require.Greater(t, samples[0].Value, 0.0)
}

func TestPromExportObservesGaugeValue(t *testing.T) {
	tr := NewTracker("dedos_test")
	tr.Add(QueueLength, 3, 9)

	reg := tr.Registry()
	require.NotNil(t, reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
