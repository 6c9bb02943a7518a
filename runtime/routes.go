package runtime

import (
	"sync"

	"github.com/sw1001/DeDOS/route"
)

// routeTable is the process-wide route registry (spec.md §3 "Route"):
// satisfies both worker.RouteTable (Get/Ensure/Delete, for MSU_ROUTES/
// MODIFY_ROUTE execution and refcount-zero cleanup on DELETE_MSU) and
// dfg.RouteTable (Ensure, for DFG interpretation). Mutation is rare enough
// (route creation/attachment/deletion, not per-message traffic) that one
// mutex is plenty.
type routeTable struct {
	mu sync.RWMutex
	m  map[uint32]*route.Route
}

func newRouteTable() *routeTable {
	return &routeTable{m: make(map[uint32]*route.Route)}
}

func (rt *routeTable) Get(id uint32) (*route.Route, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	r, ok := rt.m[id]
	return r, ok
}

// Ensure returns the existing route for id, or creates one for typeID if
// absent.
func (rt *routeTable) Ensure(id, typeID uint32) *route.Route {
	rt.mu.RLock()
	r, ok := rt.m[id]
	rt.mu.RUnlock()
	if ok {
		return r
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if r, ok = rt.m[id]; ok {
		return r
	}
	r = route.New(id, typeID)
	rt.m[id] = r
	return r
}

// Delete removes a route once its refcount reaches zero (Route.Release
// reporting true); the caller does that check, routeTable just removes.
func (rt *routeTable) Delete(id uint32) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.m, id)
}
