// Package route implements the routing subsystem (spec.md §4.4): routes
// are ordered, keyed endpoint lists an MSU instance may emit to; endpoint
// selection is delegated to one of four pluggable strategies.
package route

import (
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/sw1001/DeDOS/xmsg"
)

// Endpoint is one entry in a Route: a key, the target MSU, and its
// locality (spec.md §3 "Route").
type Endpoint struct {
	Key       int32
	MSUID     uint32
	Locality  xmsg.Locality
	RuntimeID uint32 // only meaningful when Locality == xmsg.Remote
}

// Route is reference-counted: an MSU instance holds a reference by
// appending the Route to its Routes list; when the last reference drops,
// the caller (msu package, on DELETE_MSU/MSU_ROUTES mutation) calls
// Release and the runtime's route table removes it on refcount zero.
type Route struct {
	ID     uint32
	TypeID uint32

	mu        sync.RWMutex // serializes structural mutation; readers snapshot under the same lock
	endpoints []Endpoint   // invariant: non-decreasing Key; equal keys keep insertion order

	refs atomic.Int32
}

// New constructs an empty route for the given (runtime-local) id and
// destination MSU type.
func New(id, typeID uint32) *Route {
	return &Route{ID: id, TypeID: typeID}
}

// AddRef/Release implement the reference-counting described in spec.md §3.
// The caller (not Route itself) is responsible for deleting the route
// from its owning table once Release reports the count reached zero.
func (r *Route) AddRef()            { r.refs.Inc() }
func (r *Route) Release() (zero bool) { return r.refs.Dec() == 0 }

// AddEndpoint inserts an endpoint keeping the key-ascending invariant.
// Ties on Key preserve insertion order per spec.md §3 ("ties broken by
// insertion order"), so a duplicate key is appended after its equals.
func (r *Route) AddEndpoint(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := sort.Search(len(r.endpoints), func(i int) bool { return r.endpoints[i].Key > ep.Key })
	r.endpoints = append(r.endpoints, Endpoint{})
	copy(r.endpoints[i+1:], r.endpoints[i:])
	r.endpoints[i] = ep
}

// RemoveEndpoint deletes the first endpoint whose MSUID matches, if any.
func (r *Route) RemoveEndpoint(msuID uint32) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ep := range r.endpoints {
		if ep.MSUID == msuID {
			r.endpoints = append(r.endpoints[:i], r.endpoints[i+1:]...)
			return true
		}
	}
	return false
}

// ModifyEndpoint replaces the first endpoint whose MSUID matches
// ep.MSUID, preserving the key-order invariant (implemented as remove+add).
func (r *Route) ModifyEndpoint(ep Endpoint) (found bool) {
	if r.RemoveEndpoint(ep.MSUID) {
		r.AddEndpoint(ep)
		return true
	}
	return false
}

// Snapshot returns a read-only copy of the current endpoint list, taken
// under the same lock structural mutations use, so a reader always sees
// a consistent list (spec.md §4.4).
func (r *Route) Snapshot() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Lookup implements default_routing (spec.md §4.4/§8): the endpoint with
// the smallest key >= k; wraps to the first endpoint if k exceeds every
// key. Returns ok=false only when the route has no endpoints at all.
func (r *Route) Lookup(k int32) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.endpoints) == 0 {
		return Endpoint{}, false
	}
	i := sort.Search(len(r.endpoints), func(i int) bool { return r.endpoints[i].Key >= k })
	if i == len(r.endpoints) {
		i = 0
	}
	return r.endpoints[i], true
}

// ByMSUID returns the endpoint addressing a specific MSU id, if present
// in this route (used by the route-to-id strategy).
func (r *Route) ByMSUID(id uint32) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ep := range r.endpoints {
		if ep.MSUID == id {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// ByRuntime returns the first local-to-that-runtime endpoint (used by the
// route-to-origin-runtime strategy); for Locality == xmsg.Local matches,
// rtID should be this process's own runtime id.
func (r *Route) ByRuntime(rtID uint32, localRTID uint32) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ep := range r.endpoints {
		if ep.Locality == xmsg.Remote && ep.RuntimeID == rtID {
			return ep, true
		}
		if ep.Locality == xmsg.Local && rtID == localRTID {
			return ep, true
		}
	}
	return Endpoint{}, false
}
