// Package queue implements the bounded, multi-producer/single-consumer
// FIFO every worker thread owns (spec.md §4.1). Each queue has two
// differentiated-priority channels: control (CREATE_MSU, DELETE_MSU,
// ADD_ROUTE, ...) and data (ordinary MSU-to-MSU traffic). Control
// messages are always drained before data on the same tick; pushes come
// from any goroutine, pops only from the owning worker.
package queue

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/xmsg"
)

// Queue is the FIFO described by spec.md §4.1. The control side grows
// unboundedly (control flow rate is bounded by the controller, not by
// MSU traffic); the data side is capacity-bounded and drops on overflow.
type Queue struct {
	id string

	mu   sync.Mutex
	cond *sync.Cond

	ctrl []any // control actions (see package ctrl); heterogeneous by design
	data []*xmsg.Envelope

	dataCap int
	closed  bool

	dropped atomic.Uint64 // count of PushData rejections (QueueFull policy: drop + count)
	dataLen atomic.Int64  // approximate, for the shortest-queue strategy's Len()
}

// New constructs a queue for the given owner id (used only in error
// messages/metrics) with a bounded data-channel capacity.
func New(id string, dataCap int) *Queue {
	q := &Queue{id: id, dataCap: dataCap}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// PushData enqueues a data-channel envelope. It never blocks: if the
// queue is at capacity it returns *cos.ErrQueueFull and the caller's
// policy decides whether to drop (default) or retry.
func (q *Queue) PushData(e *xmsg.Envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return &cos.ErrQueueFull{QueueID: q.id, Len: len(q.data)}
	}
	if len(q.data) >= q.dataCap {
		n := len(q.data)
		q.mu.Unlock()
		q.dropped.Inc()
		return &cos.ErrQueueFull{QueueID: q.id, Len: n}
	}
	q.data = append(q.data, e)
	q.dataLen.Store(int64(len(q.data)))
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// PushCtrl enqueues a control action. It never drops: control traffic is
// rate-limited upstream by the controller, not by queue capacity.
func (q *Queue) PushCtrl(action any) {
	q.mu.Lock()
	q.ctrl = append(q.ctrl, action)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryPopData returns the next data-channel envelope without blocking.
// Callers drain control (DrainCtrl) first, per spec.md §4.2's priority
// rule; TryPopData never looks at the control side.
func (q *Queue) TryPopData() (*xmsg.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil, false
	}
	e := q.data[0]
	q.data = q.data[1:]
	q.dataLen.Store(int64(len(q.data)))
	return e, true
}

// DrainCtrl pops up to max control actions in FIFO order, for the
// worker loop's per-iteration drain (spec.md §4.2 step 1: bounded to
// avoid starving data when control traffic is a flood). max<=0 drains
// everything currently queued.
func (q *Queue) DrainCtrl(max int) []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max > len(q.ctrl) {
		max = len(q.ctrl)
	}
	out := q.ctrl[:max]
	q.ctrl = q.ctrl[max:]
	return out
}

// Wait blocks until at least one envelope (control or data) is available,
// the queue is closed, or returns immediately if one already is -
// the condition-variable park of spec.md §4.2 step 3.
func (q *Queue) Wait() {
	q.mu.Lock()
	for len(q.ctrl) == 0 && len(q.data) == 0 && !q.closed {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Len returns the approximate data-channel length; may be stale by the
// time a caller (e.g. the shortest-queue routing strategy) reads it.
func (q *Queue) Len() int { return int(q.dataLen.Load()) }

// Dropped returns the number of data envelopes rejected by PushData.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Close marks the queue closed: further PushData calls fail, PushCtrl
// still succeeds (draining control during DELETE_THREAD teardown still
// works), and any parked Wait() wakes up.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
