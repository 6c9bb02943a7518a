package msu

import (
	"sync"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

// Owner is the slice of worker.Thread an Instance needs: its id (for
// "exactly one worker owns the instance" bookkeeping) and a way to learn
// its own approximate queue depth for the shortest-queue strategy. Kept
// as a narrow interface here, rather than importing package worker
// directly, so msu and worker don't form an import cycle.
type Owner interface {
	ID() uint32
	QueueLen() int
}

// Dispatcher is how an Instance's CallType/CallLocal actually get an
// envelope moving: local delivery goes to a worker's queue, remote
// delivery goes to a peer's outgoing queue. Implemented by the top-level
// runtime, which is the only component that can see both the worker
// table and the transport layer.
type Dispatcher interface {
	DispatchLocal(dstMSU uint32, key int32, payload []byte) error
	DispatchRemote(runtimeID, dstMSU uint32, key int32, payload []byte) error
	// QueueLenOf reports a LOCAL msu id's owning worker's approximate
	// queue length, for the shortest-queue strategy; ok is false for
	// unknown or non-local ids.
	QueueLenOf(msuID uint32) (length int, ok bool)
	LocalRuntimeID() uint32
}

// Instance is a running MSU (spec.md §3 "MSU instance"): created by a
// CREATE_MSU control action on its owning worker, destroyed by DELETE_MSU
// on the same worker. State is touched only by that worker; all
// cross-thread interaction goes through enqueued envelopes.
type Instance struct {
	ID    uint32
	Type  *Type
	State any // opaque to the core; populated by Type.Kind.Init

	Owner      Owner
	dispatcher Dispatcher

	mu     sync.Mutex // guards Routes; mutated only during MSU_ROUTES, read during CallType
	Routes []*route.Route
}

// New allocates an instance and runs its type's Init, per spec.md §4.3
// ("allocating state; invoking init; registering..."). Registration in
// the owning worker's map and the process-wide table is the caller's
// responsibility (worker.Thread's createMSU), since New doesn't know about either.
func New(id uint32, typ *Type, owner Owner, dispatcher Dispatcher, initData []byte) (*Instance, error) {
	inst := &Instance{ID: id, Type: typ, Owner: owner, dispatcher: dispatcher}
	if err := typ.Kind.Init(inst, initData); err != nil {
		return nil, &cos.ErrInitFailure{TypeID: typ.ID, Reason: err}
	}
	return inst, nil
}

// Destroy runs the type's Destroy callback; must be called on the owning
// worker only.
func (inst *Instance) Destroy() error {
	return inst.Type.Kind.Destroy(inst)
}

// AttachRoute adds a route reference to this instance's emit set (the
// MSU_ROUTES control action, spec.md §4.6); the route's refcount is
// bumped accordingly.
func (inst *Instance) AttachRoute(rt *route.Route) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.Routes = append(inst.Routes, rt)
	rt.AddRef()
}

// ReleaseRoutes drops this instance's reference to every route it holds
// (spec.md §3 "dropping the last reference destroys the route") and
// returns the subset whose refcount reached zero, so the caller (worker,
// on DELETE_MSU) can remove those from the owning route table. Must be
// called at most once per instance, on DELETE_MSU before or after
// Destroy.
func (inst *Instance) ReleaseRoutes() (drained []*route.Route) {
	inst.mu.Lock()
	routes := inst.Routes
	inst.Routes = nil
	inst.mu.Unlock()
	for _, rt := range routes {
		if rt.Release() {
			drained = append(drained, rt)
		}
	}
	return drained
}

// routeForType finds this instance's route delivering to the given MSU
// type id, if any was attached.
func (inst *Instance) routeForType(targetType uint32) (*route.Route, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, rt := range inst.Routes {
		if rt.TypeID == targetType {
			return rt, true
		}
	}
	return nil, false
}

// CallType emits a message downstream by target MSU *type*: the sending
// instance's route-for-type is located, the type's configured strategy
// (or its Kind.RouteHint override) picks an endpoint, and the envelope is
// handed to the Dispatcher (spec.md §4.4, §6 "call_type").
func (inst *Instance) CallType(targetType uint32, key int32, payload []byte) error {
	rt, ok := inst.routeForType(targetType)
	if !ok {
		return &cos.ErrUnknownRoute{RouteID: 0}
	}

	strategy := route.For(inst.Type.DefaultStrategy)
	ctx := route.SelectCtx{
		Key:            key,
		LocalRuntimeID: inst.dispatcher.LocalRuntimeID(),
		QueueLen:       inst.dispatcher.QueueLenOf,
	}

	var env xmsg.Envelope
	env.Key = key
	if ep, handled, err := inst.Type.Kind.RouteHint(strategy, rt, inst, &env); handled {
		if err != nil {
			return err
		}
		return inst.emit(ep, key, payload)
	}

	ep, err := strategy.Select(rt, ctx)
	if err != nil {
		return err
	}
	return inst.emit(ep, key, payload)
}

// CallLocal bypasses routing entirely and enqueues directly to a named
// local MSU id (spec.md §6 "call_local").
func (inst *Instance) CallLocal(targetMSU uint32, key int32, payload []byte) error {
	return inst.dispatcher.DispatchLocal(targetMSU, key, payload)
}

func (inst *Instance) emit(ep route.Endpoint, key int32, payload []byte) error {
	if ep.Locality == xmsg.Local {
		return inst.dispatcher.DispatchLocal(ep.MSUID, key, payload)
	}
	return inst.dispatcher.DispatchRemote(ep.RuntimeID, ep.MSUID, key, payload)
}

// QueueLen reports this instance's owning worker's approximate queue
// depth, exposed for MSU diagnostics per spec.md §6.
func (inst *Instance) QueueLen() int {
	if inst.Owner == nil {
		return 0
	}
	return inst.Owner.QueueLen()
}
