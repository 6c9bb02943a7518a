package msu

import (
	"sync"
	"sync/atomic"

	"github.com/sw1001/DeDOS/cmn/cos"
)

// TypeRegistry is the process-wide MSU type registry (spec.md §3 "MSU
// type", "registered at startup"). Mutation is guarded by a coarse lock;
// reads after publication go through an atomic snapshot so the hot
// dispatch path never takes a lock to resolve envelope -> type -> Kind.
type TypeRegistry struct {
	mu   sync.Mutex
	snap atomic.Value // map[uint32]*Type
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{}
	r.snap.Store(map[uint32]*Type{})
	return r
}

// Register adds a type at startup. Re-registering the same id is
// rejected: ids are stable identifiers used in wire formats and must not
// silently change meaning mid-run.
func (r *TypeRegistry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.snap.Load().(map[uint32]*Type)
	if _, exists := cur[t.ID]; exists {
		return errDupTypeID(t.ID)
	}
	next := make(map[uint32]*Type, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[t.ID] = t
	r.snap.Store(next)
	return nil
}

// Get resolves a type id without taking a lock.
func (r *TypeRegistry) Get(id uint32) (*Type, bool) {
	m := r.snap.Load().(map[uint32]*Type)
	t, ok := m[id]
	return t, ok
}

// Table is the process-wide MSU instance table (spec.md §4.3: "registering
// the instance ... in a process-wide instance table used by routing and
// controller replies"). Guarded by a coarse lock for mutation; an MSU id
// appears at most once (spec.md §4.3 invariant).
type Table struct {
	mu  sync.RWMutex
	byID map[uint32]*Instance
}

func NewTable() *Table {
	return &Table{byID: make(map[uint32]*Instance)}
}

// Register adds an instance, failing if its id is already present
// (spec.md §4.3 invariant: "An MSU id appears at most once in the
// process").
func (t *Table) Register(inst *Instance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byID[inst.ID]; exists {
		return &cos.ErrInitFailure{TypeID: inst.Type.ID, Reason: errDupMSUID(inst.ID)}
	}
	t.byID[inst.ID] = inst
	return nil
}

func (t *Table) Unregister(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}

func (t *Table) Get(id uint32) (*Instance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.byID[id]
	return inst, ok
}

// errDupMSUID and errDupTypeID are their own tiny error types rather than
// fmt.Errorf so a duplicate-id registration is distinguishable via
// errors.As if a caller needs to act on it specifically.
type errDupMSUID uint32

func (id errDupMSUID) Error() string { return "duplicate msu id registration" }

type errDupTypeID uint32

func (id errDupTypeID) Error() string { return "duplicate msu type id registration" }
