package route

import (
	"github.com/OneOfOne/xxhash"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/xmsg"
)

// StrategyKind names the four pluggable strategies of spec.md §4.4.
type StrategyKind int

const (
	StrategyDefault StrategyKind = iota
	StrategyShortestQueue
	StrategyRouteToID
	StrategyRouteToOriginRuntime
)

// SelectCtx bundles everything a Strategy might need to pick an endpoint.
// Not every field is meaningful for every strategy: QueueLen is only
// consulted by shortest-queue, TargetMSUID only by route-to-id,
// OriginRuntimeID/LocalRuntimeID only by route-to-origin-runtime.
type SelectCtx struct {
	Key             int32
	TargetMSUID     uint32
	OriginRuntimeID uint32
	LocalRuntimeID  uint32
	// QueueLen returns the approximate data-queue length of the worker
	// owning a LOCAL msu id. ok is false for unknown/remote ids.
	QueueLen func(msuID uint32) (length int, ok bool)
}

// Strategy selects one endpoint from a Route given a SelectCtx.
type Strategy interface {
	Select(rt *Route, ctx SelectCtx) (Endpoint, error)
}

// HashKey folds a string routing key into the int32 key space that
// default_routing operates over, using xxhash the way the teacher uses it
// for consistent-hash shard/checksum computation elsewhere in the stack.
// Available to an MSU that derives its routing key from a string rather
// than an integer field; the cache MSU does not call it and routes on the
// envelope's own key.
func HashKey(s string) int32 {
	h := xxhash.ChecksumString64(s)
	return int32(h & 0x7fffffff)
}

// defaultStrategy is default_routing: key-based lookup (spec.md §4.4, §8).
type defaultStrategy struct{}

func (defaultStrategy) Select(rt *Route, ctx SelectCtx) (Endpoint, error) {
	ep, ok := rt.Lookup(ctx.Key)
	if !ok {
		return Endpoint{}, &cos.ErrEndpointNotFound{RouteID: rt.ID, Key: ctx.Key}
	}
	return ep, nil
}

// shortestQueueStrategy picks, among LOCAL endpoints only, the one whose
// owning worker reports the smallest approximate queue length; ties
// broken by MSU id (spec.md §4.4).
type shortestQueueStrategy struct{}

func (shortestQueueStrategy) Select(rt *Route, ctx SelectCtx) (Endpoint, error) {
	eps := rt.Snapshot()
	var best Endpoint
	bestLen := -1
	found := false
	for _, ep := range eps {
		if ep.Locality != xmsg.Local {
			continue
		}
		l, ok := ctx.QueueLen(ep.MSUID)
		if !ok {
			continue
		}
		switch {
		case !found:
			best, bestLen, found = ep, l, true
		case l < bestLen, l == bestLen && ep.MSUID < best.MSUID:
			best, bestLen = ep, l
		}
	}
	if !found {
		return Endpoint{}, &cos.ErrEndpointNotFound{RouteID: rt.ID, Key: ctx.Key}
	}
	return best, nil
}

// routeToIDStrategy: the caller names a target MSU id explicitly; the
// endpoint is returned iff present in the route (spec.md §4.4).
type routeToIDStrategy struct{}

func (routeToIDStrategy) Select(rt *Route, ctx SelectCtx) (Endpoint, error) {
	ep, ok := rt.ByMSUID(ctx.TargetMSUID)
	if !ok {
		return Endpoint{}, &cos.ErrEndpointNotFound{RouteID: rt.ID, Key: ctx.Key}
	}
	return ep, nil
}

// routeToOriginRuntimeStrategy picks the endpoint located on the runtime
// recorded in the envelope's origin field (spec.md §4.4).
type routeToOriginRuntimeStrategy struct{}

func (routeToOriginRuntimeStrategy) Select(rt *Route, ctx SelectCtx) (Endpoint, error) {
	ep, ok := rt.ByRuntime(ctx.OriginRuntimeID, ctx.LocalRuntimeID)
	if !ok {
		return Endpoint{}, &cos.ErrEndpointNotFound{RouteID: rt.ID, Key: ctx.Key}
	}
	return ep, nil
}

// Strategies, keyed by kind, for per-MSU-type selection.
var strategies = map[StrategyKind]Strategy{
	StrategyDefault:              defaultStrategy{},
	StrategyShortestQueue:        shortestQueueStrategy{},
	StrategyRouteToID:            routeToIDStrategy{},
	StrategyRouteToOriginRuntime: routeToOriginRuntimeStrategy{},
}

// For selects the Strategy implementing a given kind.
func For(kind StrategyKind) Strategy { return strategies[kind] }
