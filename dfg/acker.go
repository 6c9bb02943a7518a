package dfg

import (
	"sync"

	"github.com/sw1001/DeDOS/ctrl"
)

// Acker implements worker.Reporter, tracking pending CREATE_MSU acks so
// the interpreter's settling barrier between creating MSUs and attaching
// routes (spec.md §4.7 steps 3/4) can wait for them instead of sleeping —
// the redesign spec.md §9 calls for in place of the original's fixed
// sleep(5).
type Acker struct {
	mu      sync.Mutex
	waiters map[uint32]chan error // msu id -> waiter
}

// NewAcker returns an empty Acker.
func NewAcker() *Acker { return &Acker{waiters: make(map[uint32]chan error)} }

// Ack satisfies worker.Reporter. Actions other than CREATE_MSU, or a
// CREATE_MSU nobody registered a waiter for, are ignored here — a fuller
// runtime would still forward every ack to the controller socket via a
// second Reporter in front of or behind this one.
func (a *Acker) Ack(act *ctrl.Action, err error) {
	if act.Type != ctrl.MsgCreateMSU {
		return
	}
	a.mu.Lock()
	ch, ok := a.waiters[act.MSUID]
	if ok {
		delete(a.waiters, act.MSUID)
	}
	a.mu.Unlock()
	if ok {
		ch <- err
		close(ch)
	}
}

// await registers a waiter for msuID's CREATE_MSU ack. Must be called
// before the corresponding action is dispatched so the ack can never
// race ahead of registration.
func (a *Acker) await(msuID uint32) <-chan error {
	ch := make(chan error, 1)
	a.mu.Lock()
	a.waiters[msuID] = ch
	a.mu.Unlock()
	return ch
}
