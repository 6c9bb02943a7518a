package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/ctrl"
	"github.com/sw1001/DeDOS/msu"
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

type countingKind struct {
	msu.BaseKind
	mu  sync.Mutex
	got []int32
}

func (k *countingKind) Receive(_ *msu.Instance, env *xmsg.Envelope) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.got = append(k.got, env.Key)
	return nil
}

func (k *countingKind) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.got)
}

type fakeRoutes struct {
	mu sync.Mutex
	m  map[uint32]*route.Route
}

func newFakeRoutes() *fakeRoutes { return &fakeRoutes{m: map[uint32]*route.Route{}} }

func (f *fakeRoutes) Get(id uint32) (*route.Route, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.m[id]
	return rt, ok
}

func (f *fakeRoutes) Ensure(id, typeID uint32) *route.Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.m[id]; ok {
		return rt
	}
	rt := route.New(id, typeID)
	f.m[id] = rt
	return rt
}

func (f *fakeRoutes) Delete(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, id)
}

type fakeDispatcher struct{}

func (fakeDispatcher) DispatchLocal(uint32, int32, []byte) error         { return nil }
func (fakeDispatcher) DispatchRemote(uint32, uint32, int32, []byte) error { return nil }
func (fakeDispatcher) QueueLenOf(uint32) (int, bool)                     { return 0, false }
func (fakeDispatcher) LocalRuntimeID() uint32                            { return 1 }

type fakeReporter struct {
	mu   sync.Mutex
	acks []error
}

func (r *fakeReporter) Ack(_ *ctrl.Action, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, err)
}

func newTestThread(t *testing.T) (*Thread, *countingKind, *msu.TypeRegistry) {
	types := msu.NewTypeRegistry()
	kind := &countingKind{}
	require.NoError(t, types.Register(&msu.Type{ID: 7, Name: "counter", Kind: kind, DefaultStrategy: route.StrategyDefault}))
	table := msu.NewTable()
	th := New(1, false, 16, types, table, newFakeRoutes(), &fakeReporter{}, fakeDispatcher{})
	return th, kind, types
}

func TestEventLoopCreatesMSUAndDispatchesData(t *testing.T) {
	th, kind, _ := newTestThread(t)
	go th.Run()
	defer func() {
		th.RequestStop()
		<-th.Done()
	}()

	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgCreateMSU, ThreadID: 1, MSUID: 100, MSUType: 7})

	require.Eventually(t, func() bool {
		th.mu.Lock()
		defer th.mu.Unlock()
		_, ok := th.insts[100]
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, th.Queue().PushData(xmsg.NewEnvelope(100, 42, []byte("hi"))))

	require.Eventually(t, func() bool { return kind.count() == 1 }, time.Second, time.Millisecond)
}

func TestEventLoopDeleteMSUTearsDownInstance(t *testing.T) {
	th, _, _ := newTestThread(t)
	go th.Run()
	defer func() {
		th.RequestStop()
		<-th.Done()
	}()

	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgCreateMSU, ThreadID: 1, MSUID: 5, MSUType: 7})
	require.Eventually(t, func() bool {
		th.mu.Lock()
		defer th.mu.Unlock()
		_, ok := th.insts[5]
		return ok
	}, time.Second, time.Millisecond)

	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgDeleteMSU, ThreadID: 1, MSUID: 5})
	require.Eventually(t, func() bool {
		th.mu.Lock()
		defer th.mu.Unlock()
		_, ok := th.insts[5]
		return !ok
	}, time.Second, time.Millisecond)
}

func TestRequestStopExitsCleanly(t *testing.T) {
	th, _, _ := newTestThread(t)
	go th.Run()
	th.RequestStop()
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after RequestStop")
	}
}

// TestDeleteMSUReleasesRouteRefAndDeletesOnZero exercises spec.md §3's
// route reference-counting invariant: an MSU holds a reference by
// attaching a route, and DELETE_MSU must drop it, deleting the route
// from the shared table once the last reference is gone.
func TestDeleteMSUReleasesRouteRefAndDeletesOnZero(t *testing.T) {
	types := msu.NewTypeRegistry()
	require.NoError(t, types.Register(&msu.Type{ID: 7, Name: "counter", Kind: &countingKind{}, DefaultStrategy: route.StrategyDefault}))
	table := msu.NewTable()
	routes := newFakeRoutes()
	th := New(1, false, 16, types, table, routes, &fakeReporter{}, fakeDispatcher{})
	go th.Run()
	defer func() {
		th.RequestStop()
		<-th.Done()
	}()

	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgCreateMSU, ThreadID: 1, MSUID: 5, MSUType: 7})
	require.Eventually(t, func() bool {
		th.mu.Lock()
		defer th.mu.Unlock()
		_, ok := th.insts[5]
		return ok
	}, time.Second, time.Millisecond)

	routes.Ensure(50, 7) // one reference: instance 5 is the only attacher
	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgMSURoutes, ThreadID: 1, MSUID: 5, RouteIDs: []uint32{50}})
	require.Eventually(t, func() bool {
		_, ok := routes.Get(50)
		return ok
	}, time.Second, time.Millisecond)

	th.Queue().PushCtrl(&ctrl.Action{Type: ctrl.MsgDeleteMSU, ThreadID: 1, MSUID: 5})
	require.Eventually(t, func() bool {
		_, ok := routes.Get(50)
		return !ok
	}, time.Second, time.Millisecond)
}
