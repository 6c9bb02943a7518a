// Package runtime wires every other package into one boot-time value: the
// "substitute global mutable state with a value constructed once at boot"
// redesign spec.md §9 calls for in place of the original C runtime's
// process-wide globals (saved_stats[], the worker thread array, the
// connection table). A *Runtime implements the narrow interfaces msu,
// transport and dfg define (Dispatcher, Inbound, ThreadSpawner/
// ActionSink), its routeTable implements worker's and dfg's RouteTable,
// and multiReporter implements worker.Reporter, rather than those
// packages depending on runtime directly, which is what keeps them free
// of import cycles.
package runtime

import (
	"context"
	"fmt"

	"github.com/sw1001/DeDOS/cache"
	"github.com/sw1001/DeDOS/cmn"
	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/ctrl"
	"github.com/sw1001/DeDOS/dfg"
	"github.com/sw1001/DeDOS/msu"
	"github.com/sw1001/DeDOS/stats"
	"github.com/sw1001/DeDOS/transport"
	"github.com/sw1001/DeDOS/worker"
)

// Runtime-internal MSU type id the cache component is always registered
// under; cmn.CacheConfig sets only the write/file-IO types it forwards to.
const (
	defaultCacheMSUType = 10
)

// Runtime is the top-level, per-process value: every subsystem hangs off
// it, and it is constructed exactly once at startup by cmd/msurt.
type Runtime struct {
	cfg *cmn.Config

	types   *msu.TypeRegistry
	insts   *msu.Table
	threads *worker.Table
	routes  *routeTable

	transport *transport.Manager
	ctrlConn  *ctrl.Conn
	acker     *dfg.Acker
	tracker   *stats.Tracker
}

// New constructs a Runtime from cfg but does not yet start listening or
// connect to the controller; call Start for that.
func New(cfg *cmn.Config) *Runtime {
	rt := &Runtime{
		cfg:     cfg,
		types:   msu.NewTypeRegistry(),
		insts:   msu.NewTable(),
		threads: worker.NewTable(),
		routes:  newRouteTable(),
		acker:   dfg.NewAcker(),
		tracker: stats.NewTracker(cfg.Stats.PromNamespace),
	}
	return rt
}

// RegisterType adds an MSU type at startup, before Start is called (spec.md
// §3 "MSU type ... registered at startup").
func (rt *Runtime) RegisterType(t *msu.Type) error {
	return rt.types.Register(t)
}

// registerCacheType wires the cache MSU as a normal registered type, the
// way any other MSU type would be: its Init reads cmn.CacheConfig from
// CREATE_MSU's init_data (falling back to rt.cfg.Cache), and its Kind
// forwards lookups/misses to the configured write/file-IO MSU types.
func (rt *Runtime) registerCacheType() error {
	typeID := uint32(defaultCacheMSUType)
	return rt.types.Register(&msu.Type{
		ID:   typeID,
		Name: "cache",
		Kind: &cache.Kind{
			WriteType:  rt.cfg.Cache.WriteMSUType,
			FileIOType: rt.cfg.Cache.FileIOMSUType,
		},
		DefaultStrategy: 0,
	})
}

// Start brings the runtime fully online: registers the built-in cache
// type, opens the inter-runtime listener, and spawns thread 0 (the
// main/IO thread every runtime has per spec.md §3).
func (rt *Runtime) Start() error {
	cmn.PutGCO(rt.cfg)
	if err := rt.registerCacheType(); err != nil {
		return cos.Wrap(err, "register cache msu type")
	}
	rt.transport = transport.NewManager(rt.cfg.LocalRuntimeID, rt)
	if rt.cfg.ListenAddr != "" {
		if err := rt.transport.Listen(rt.cfg.ListenAddr); err != nil {
			return cos.Wrap(err, "listen")
		}
	}
	rt.EnsureThread(0, false)
	return nil
}

// Shutdown stops every worker thread and tears down transport/controller
// connections. Workers are asked to stop concurrently and Shutdown waits
// for all of them, since a single thread's teardown (destroying its MSUs)
// must not block the others.
func (rt *Runtime) Shutdown() {
	for _, th := range rt.threads.All() {
		th.RequestStop()
	}
	for _, th := range rt.threads.All() {
		<-th.Done()
	}
	if rt.transport != nil {
		rt.transport.Shutdown()
	}
	if rt.ctrlConn != nil {
		_ = rt.ctrlConn.Close()
	}
}

// LocalRuntimeID satisfies msu.Dispatcher.
func (rt *Runtime) LocalRuntimeID() uint32 { return rt.cfg.LocalRuntimeID }

// QueueLenOf satisfies msu.Dispatcher: only meaningful for a LOCAL msu id.
func (rt *Runtime) QueueLenOf(msuID uint32) (int, bool) {
	inst, ok := rt.insts.Get(msuID)
	if !ok {
		return 0, false
	}
	return inst.QueueLen(), true
}

// EnsureThread satisfies dfg.ThreadSpawner: idempotent worker-thread
// creation, used both by CREATE_THREAD control actions and by DFG
// interpretation's step 1.
func (rt *Runtime) EnsureThread(id uint32, pinned bool) {
	if _, ok := rt.threads.Get(id); ok {
		return
	}
	reporter := multiReporter{acker: rt.acker, conn: rt.ctrlConn}
	th := worker.New(id, pinned, rt.cfg.Queue.DataCapacity, rt.types, rt.insts, rt.routes, reporter, rt)
	if err := rt.threads.Register(th); err != nil {
		// lost the race with a concurrent EnsureThread for the same id;
		// the winning registration's thread is the one that runs.
		return
	}
	go th.Run()
	// DELETE_THREAD only sets the stop flag (spec.md §4.6); once the
	// event loop actually returns, unregister it so a later CREATE_THREAD
	// for the same id spawns a fresh worker instead of silently no-oping,
	// and so Dispatch stops routing control actions into a queue nobody
	// drains anymore (spec.md:46 "destroyed by DELETE_THREAD").
	go func() {
		<-th.Done()
		rt.threads.Unregister(id)
	}()
}

// Dispatch satisfies dfg.ActionSink and is also how the controller
// connection forwards a decoded Action to its target thread's control
// queue (spec.md §4.6 closing paragraph: "...so that MSU state is always
// created/destroyed by its owning thread").
func (rt *Runtime) Dispatch(threadID uint32, a *ctrl.Action) {
	th, ok := rt.threads.Get(threadID)
	if !ok {
		nlog.Warningf("runtime: dispatch to unknown thread %d: %v", threadID, &cos.ErrUnknownThread{ThreadID: threadID})
		return
	}
	th.Queue().PushCtrl(a)
}

// multiReporter fans a single worker.Ack callout out to both the local
// DFG-interpretation ack-wait barrier and the controller connection, so
// both "Implement() can stop waiting" and "the controller gets its
// CREATE_MSU_ACK/NACK" happen off one report.
type multiReporter struct {
	acker *dfg.Acker
	conn  *ctrl.Conn
}

func (m multiReporter) Ack(a *ctrl.Action, err error) {
	if m.acker != nil {
		m.acker.Ack(a, err)
	}
	if m.conn != nil {
		m.conn.Ack(a, err)
	}
}

// ImplementDFG runs the DFG interpreter against g for this runtime's own
// id (spec.md §4.7), never the DFG's own notion of "which runtime is
// local" -- closing the get_local_runtime aliasing bug spec.md §9 flags.
func (rt *Runtime) ImplementDFG(ctx context.Context, g *dfg.Graph) error {
	in := &dfg.Interpreter{
		LocalRuntimeID: rt.cfg.LocalRuntimeID,
		Threads:        rt,
		Actions:        rt,
		Routes:         rt.routes,
		Acker:          rt.acker,
	}
	return in.Implement(ctx, g)
}

// ConnectController dials the controller and begins serving its Actions
// on a new goroutine; blocking calls in cmd/msurt happen elsewhere.
func (rt *Runtime) ConnectController(addr string) error {
	conn, err := ctrl.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect controller: %w", err)
	}
	rt.ctrlConn = conn
	go func() {
		if err := conn.Serve(rt); err != nil {
			nlog.Warningf("runtime: controller connection ended: %v", err)
		}
	}()
	return nil
}

// Tracker exposes the stats tracker for diagnostics endpoints / tests.
func (rt *Runtime) Tracker() *stats.Tracker { return rt.tracker }
