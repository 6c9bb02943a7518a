package queue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/xmsg"
)

func TestFIFOPerChannel(t *testing.T) {
	q := New("t", 1024)
	n := 200
	for i := 0; i < n; i++ {
		require.NoError(t, q.PushData(xmsg.NewEnvelope(uint32(i), 0, nil)))
	}
	for i := 0; i < n; i++ {
		e, ok := q.TryPopData()
		require.True(t, ok)
		require.Equal(t, uint32(i), e.DstMSU, "dequeue order must equal enqueue order")
	}
	_, ok := q.TryPopData()
	require.False(t, ok)
}

func TestControlDrainedBeforeData(t *testing.T) {
	q := New("t", 16)
	require.NoError(t, q.PushData(xmsg.NewEnvelope(1, 0, nil)))
	q.PushCtrl("create-msu")

	ctrl := q.DrainCtrl(0)
	require.Equal(t, []any{"create-msu"}, ctrl, "control must be observed before any data enqueued earlier")

	e, ok := q.TryPopData()
	require.True(t, ok)
	require.Equal(t, uint32(1), e.DstMSU)
}

func TestQueueFullDropsAndCounts(t *testing.T) {
	q := New("t", 4)
	for i := 0; i < 4; i++ {
		require.NoError(t, q.PushData(xmsg.NewEnvelope(uint32(i), 0, nil)))
	}
	err := q.PushData(xmsg.NewEnvelope(99, 0, nil))
	require.Error(t, err)
	require.EqualValues(t, 1, q.Dropped())
}

func TestControlNeverDrops(t *testing.T) {
	q := New("t", 0) // zero data capacity
	for i := 0; i < 1000; i++ {
		q.PushCtrl(i)
	}
	drained := q.DrainCtrl(0)
	require.Len(t, drained, 1000)
}

func TestDrainCtrlRespectsCap(t *testing.T) {
	q := New("t", 0)
	for i := 0; i < 100; i++ {
		q.PushCtrl(i)
	}
	first := q.DrainCtrl(64)
	require.Len(t, first, 64)
	require.Equal(t, 0, first[0])
	rest := q.DrainCtrl(64)
	require.Len(t, rest, 36)
}

// randomized single-producer/single-consumer FIFO check (spec.md §8)
func TestRandomizedSPSCOrdering(t *testing.T) {
	q := New("t", 4096)
	var want []uint32
	for i := 0; i < 2000; i++ {
		id := rand.Uint32()
		want = append(want, id)
		require.NoError(t, q.PushData(xmsg.NewEnvelope(id, 0, nil)))
	}
	var got []uint32
	for {
		e, ok := q.TryPopData()
		if !ok {
			break
		}
		got = append(got, e.DstMSU)
	}
	require.Equal(t, want, got)
}
