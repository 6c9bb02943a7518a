package route

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/xmsg"
)

func mkRoute() *Route {
	rt := New(1, 100)
	rt.AddEndpoint(Endpoint{Key: 10, MSUID: 20, Locality: xmsg.Local})
	rt.AddEndpoint(Endpoint{Key: 20, MSUID: 21, Locality: xmsg.Local})
	rt.AddEndpoint(Endpoint{Key: 30, MSUID: 22, Locality: xmsg.Local})
	return rt
}

func TestKeyRangeRouting(t *testing.T) {
	rt := mkRoute()
	cases := map[int32]uint32{
		5: 20, 10: 20, 15: 21, 20: 21, 25: 22, 30: 22, 35: 20,
	}
	for key, want := range cases {
		ep, ok := rt.Lookup(key)
		require.True(t, ok)
		require.Equalf(t, want, ep.MSUID, "key=%d", key)
	}
}

func TestDefaultStrategyMatchesLookup(t *testing.T) {
	rt := mkRoute()
	s := For(StrategyDefault)
	ep, err := s.Select(rt, SelectCtx{Key: 25})
	require.NoError(t, err)
	require.Equal(t, uint32(22), ep.MSUID)
}

func TestShortestQueueStrategy(t *testing.T) {
	rt := New(2, 200)
	rt.AddEndpoint(Endpoint{Key: 0, MSUID: 10, Locality: xmsg.Local})
	rt.AddEndpoint(Endpoint{Key: 0, MSUID: 11, Locality: xmsg.Local})
	rt.AddEndpoint(Endpoint{Key: 0, MSUID: 12, Locality: xmsg.Local})
	lens := map[uint32]int{10: 5, 11: 1, 12: 3}
	s := For(StrategyShortestQueue)
	ep, err := s.Select(rt, SelectCtx{QueueLen: func(id uint32) (int, bool) {
		l, ok := lens[id]
		return l, ok
	}})
	require.NoError(t, err)
	require.Equal(t, uint32(11), ep.MSUID)
}

func TestRouteToIDStrategy(t *testing.T) {
	rt := mkRoute()
	s := For(StrategyRouteToID)
	ep, err := s.Select(rt, SelectCtx{TargetMSUID: 21})
	require.NoError(t, err)
	require.Equal(t, uint32(21), ep.MSUID)

	_, err = s.Select(rt, SelectCtx{TargetMSUID: 999})
	require.Error(t, err)
}

func TestAddRemoveEndpointKeepsKeyOrder(t *testing.T) {
	rt := mkRoute()
	rt.AddEndpoint(Endpoint{Key: 15, MSUID: 99, Locality: xmsg.Local})
	eps := rt.Snapshot()
	for i := 1; i < len(eps); i++ {
		require.LessOrEqual(t, eps[i-1].Key, eps[i].Key)
	}
	require.True(t, rt.RemoveEndpoint(99))
	eps = rt.Snapshot()
	require.Len(t, eps, 3)
}

func TestRouteRefcounting(t *testing.T) {
	rt := New(3, 1)
	rt.AddRef()
	rt.AddRef()
	require.False(t, rt.Release())
	require.True(t, rt.Release())
}
