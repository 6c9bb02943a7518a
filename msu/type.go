// Package msu defines the MSU ("minimum schedulable unit") type registry
// and per-instance state (spec.md §4.3). A type is described abstractly by
// four capabilities -- init, destroy, receive, route -- any of which may be
// absent. Rather than a C-style function-pointer vtable, the core accepts
// the Kind interface (spec.md §9 "capability trait/interface" redesign);
// BaseKind supplies no-op defaults so a concrete type only overrides what
// it needs, the same way grpc-go's Unimplemented*Server embeds do.
package msu

import (
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

// Kind is the capability set an MSU type implements. Receive is the only
// capability every real type needs; Init/Destroy/RouteHint may be left as
// BaseKind's no-ops.
type Kind interface {
	// Init allocates/populates the instance's opaque state from the
	// CREATE_MSU init_data payload. A non-nil error aborts creation
	// (spec.md §7 InitFailure); the instance is never registered.
	Init(inst *Instance, initData []byte) error

	// Destroy releases the instance's state. Called on the owning worker
	// only, by a DELETE_MSU control action.
	Destroy(inst *Instance) error

	// Receive handles one dispatched envelope. A non-nil return is logged
	// with the MSU id and envelope id (spec.md §7 MSUReceiveError); the
	// worker does not abort.
	Receive(inst *Instance, env *xmsg.Envelope) error

	// RouteHint lets a type override default_routing for a given target
	// type/sender/envelope. ok=false means "defer to the type's configured
	// Strategy"; this is how route-to-id and route-to-origin-runtime are
	// plugged in per MSU type (see route.Strategy).
	RouteHint(strategy route.Strategy, rt *route.Route, sender *Instance, env *xmsg.Envelope) (route.Endpoint, bool, error)
}

// BaseKind implements Kind with no-ops/defaults; embed it in a concrete
// MSU type to opt out of capabilities the type doesn't need.
type BaseKind struct{}

func (BaseKind) Init(*Instance, []byte) error     { return nil }
func (BaseKind) Destroy(*Instance) error          { return nil }
func (BaseKind) Receive(*Instance, *xmsg.Envelope) error {
	return nil
}
func (BaseKind) RouteHint(route.Strategy, *route.Route, *Instance, *xmsg.Envelope) (route.Endpoint, bool, error) {
	return route.Endpoint{}, false, nil
}

// Type is the static, process-wide-registered description of an MSU kind
// (spec.md §3 "MSU type"). IDs are stable identifiers used in wire
// formats (CREATE_MSU's type_id): never reassign one to a different Kind.
type Type struct {
	ID              uint32
	Name            string
	Kind            Kind
	DefaultStrategy route.StrategyKind
	Cloneable       bool
	ColocationGroup uint32
}
