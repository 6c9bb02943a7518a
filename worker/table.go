package worker

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sw1001/DeDOS/cmn/cos"
)

// Table is the process-wide thread table: append-mostly (threads are
// created far more often than deleted), so reads after publication never
// take the lock, matching the atomic-snapshot pattern msu.TypeRegistry
// already uses for its type map.
type Table struct {
	mu   sync.Mutex
	snap atomic.Value // map[uint32]*Thread
}

// NewTable returns an empty thread table.
func NewTable() *Table {
	tb := &Table{}
	tb.snap.Store(map[uint32]*Thread{})
	return tb
}

// Register adds t to the table. Duplicate ids are rejected since
// CREATE_THREAD for an already-live thread id is a controller bug.
func (tb *Table) Register(t *Thread) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	cur := tb.snap.Load().(map[uint32]*Thread)
	if _, exists := cur[t.id]; exists {
		return &cos.ErrInitFailure{TypeID: t.id, Reason: errors.New("duplicate thread id")}
	}
	next := make(map[uint32]*Thread, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[t.id] = t
	tb.snap.Store(next)
	return nil
}

// Unregister removes id from the table; a no-op if absent.
func (tb *Table) Unregister(id uint32) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	cur := tb.snap.Load().(map[uint32]*Thread)
	if _, exists := cur[id]; !exists {
		return
	}
	next := make(map[uint32]*Thread, len(cur))
	for k, v := range cur {
		if k != id {
			next[k] = v
		}
	}
	tb.snap.Store(next)
}

// Get returns the thread for id, lock-free.
func (tb *Table) Get(id uint32) (*Thread, bool) {
	cur := tb.snap.Load().(map[uint32]*Thread)
	t, ok := cur[id]
	return t, ok
}

// All returns a point-in-time snapshot of every registered thread.
func (tb *Table) All() []*Thread {
	cur := tb.snap.Load().(map[uint32]*Thread)
	out := make([]*Thread, 0, len(cur))
	for _, t := range cur {
		out = append(out, t)
	}
	return out
}
