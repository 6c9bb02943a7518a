// Package worker implements the worker-thread event loop of spec.md §4.2:
// a cooperative, single-goroutine-per-thread dispatch loop that owns a
// queue and a disjoint set of MSU instances, and executes control actions
// (CREATE_MSU, DELETE_MSU, MSU_ROUTES, MODIFY_ROUTE, DELETE_THREAD) on
// itself so MSU state is always created/destroyed by its owning thread.
package worker

import (
	"strconv"
	"sync"

	"go.uber.org/atomic"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/ctrl"
	"github.com/sw1001/DeDOS/msu"
	"github.com/sw1001/DeDOS/queue"
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

// controlDrainCap bounds how many control actions one event-loop
// iteration executes before looking at data again, per spec.md §4.2 step
// 1 ("bounded by a per-iteration cap of e.g. 64 to avoid starving data").
const controlDrainCap = 64

// Reporter lets a worker answer the controller without holding a direct
// reference to the controller connection (spec.md §4.6: "reports back on
// the same socket... INIT_ACK, CREATE_MSU_ACK/NACK, ...").
type Reporter interface {
	Ack(a *ctrl.Action, err error)
}

// RouteTable resolves route ids to *route.Route for MSU_ROUTES/
// MODIFY_ROUTE actions; owned by the runtime, shared by every worker.
// Delete removes a route once DELETE_MSU has released its last reference
// (spec.md §3 "dropping the last reference destroys the route").
type RouteTable interface {
	Get(id uint32) (*route.Route, bool)
	Ensure(id, typeID uint32) *route.Route
	Delete(id uint32)
}

// Thread is one worker thread (spec.md §3 "Worker thread"). Id 0 is
// reserved for the main/IO thread in the wider runtime; Thread itself
// doesn't special-case id 0, the runtime does.
type Thread struct {
	id     uint32
	pinned bool
	queue  *queue.Queue

	types  *msu.TypeRegistry
	table  *msu.Table // process-wide instance table
	routes RouteTable
	report Reporter

	dispatcher msu.Dispatcher

	mu    sync.Mutex
	insts map[uint32]*msu.Instance // this thread's own MSUs only

	stop atomic.Bool
	done chan struct{}
}

// New constructs a worker thread. dataCap bounds its data queue capacity
// (spec.md §4.1); pinned mirrors the CREATE_THREAD flag.
func New(id uint32, pinned bool, dataCap int, types *msu.TypeRegistry, table *msu.Table,
	routes RouteTable, report Reporter, dispatcher msu.Dispatcher) *Thread {
	return &Thread{
		id:         id,
		pinned:     pinned,
		queue:      queue.New(threadQueueID(id), dataCap),
		types:      types,
		table:      table,
		routes:     routes,
		report:     report,
		dispatcher: dispatcher,
		insts:      make(map[uint32]*msu.Instance),
		done:       make(chan struct{}),
	}
}

func threadQueueID(id uint32) string {
	if id == 0 {
		return "thread-0-io"
	}
	return "thread-" + strconv.FormatUint(uint64(id), 10)
}

// msu.Owner
func (t *Thread) ID() uint32    { return t.id }
func (t *Thread) QueueLen() int { return t.queue.Len() }

func (t *Thread) Pinned() bool { return t.pinned }

// Queue exposes the underlying work queue for the socket monitor / ctrl
// connection / other workers to push onto.
func (t *Thread) Queue() *queue.Queue { return t.queue }

// Done is closed once the event loop has returned from Run.
func (t *Thread) Done() <-chan struct{} { return t.done }

// RequestStop sets the stop flag and closes the queue, so further
// PushData calls fail; the loop keeps executing control and dispatching
// data already queued until both are empty, then drains control once
// more, destroys its MSUs, and exits (spec.md §5 "Cancellation &
// timeouts").
func (t *Thread) RequestStop() {
	t.stop.Store(true)
	t.queue.Close()
}

// Run is the cooperative event loop of spec.md §4.2. It must be run on
// its own goroutine (the "pinned" flag additionally requests OS-thread
// CPU affinity; see affinity_linux.go).
func (t *Thread) Run() {
	defer close(t.done)
	if t.pinned {
		Pin(t.id)
	}
	for {
		ctrlBatch := t.queue.DrainCtrl(controlDrainCap)
		for _, raw := range ctrlBatch {
			t.execControl(raw.(*ctrl.Action))
		}

		env, hasData := t.queue.TryPopData()
		if hasData {
			t.dispatch(env.DstMSU, env)
		}

		if len(ctrlBatch) == 0 && !hasData {
			if t.stop.Load() {
				t.teardown()
				return
			}
			t.queue.Wait()
		}
	}
}

func (t *Thread) teardown() {
	// final drain: control enqueued concurrently with the stop request
	// must still run before MSUs are torn down.
	for _, raw := range t.queue.DrainCtrl(0) {
		t.execControl(raw.(*ctrl.Action))
	}
	t.mu.Lock()
	ids := make([]uint32, 0, len(t.insts))
	for id := range t.insts {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		if err := t.destroyMSU(id); err != nil {
			nlog.Warningf("worker %d: teardown: %v", t.id, err)
		}
	}
}

func (t *Thread) dispatch(dstMSU uint32, env *xmsg.Envelope) {
	t.mu.Lock()
	inst, ok := t.insts[dstMSU]
	t.mu.Unlock()
	if !ok {
		nlog.Warningf("worker %d: %v", t.id, &cos.ErrUnknownMSU{MSUID: dstMSU})
		return
	}
	if err := inst.Type.Kind.Receive(inst, env); err != nil {
		nlog.Warningf("worker %d: %v", t.id, &cos.ErrMSUReceive{MSUID: dstMSU, EnvID: env.ID, Reason: err})
	}
}
