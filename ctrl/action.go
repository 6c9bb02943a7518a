// Package ctrl implements the controller communication protocol of
// spec.md §4.6: a single framed TCP connection to the controller carrying
// control messages, decoded into Actions and dispatched to the right
// worker's queue. Message type codes are numbered from 1 in the order
// declared below; they do not reuse the DeDOS original's
// (control_protocol.h) names or numeric values.
package ctrl

import "github.com/sw1001/DeDOS/route"

// MsgType enumerates the controller-to-runtime request types of spec.md
// §4.6's table, plus the runtime-to-controller reply space it references
// (INIT_ACK, CREATE_MSU_ACK/NACK, STATS_UPDATE, ...).
type MsgType uint32

const (
	// requests (controller -> runtime)
	MsgAddRuntime MsgType = iota + 1
	MsgCreateThread
	MsgDeleteThread
	MsgCreateMSU
	MsgDeleteMSU
	MsgMSURoutes
	MsgModifyRoute

	// replies (runtime -> controller)
	MsgInitAck
	MsgCreateMSUAck
	MsgCreateMSUNack
	MsgDeleteMSUAck
	MsgStatsUpdate
	MsgNack // generic NACK carrying an error kind, for Unknown{MSU,Thread,Route}
)

// MsgKind preserves the DeDOS original's REQUEST/RESPONSE/ACTION
// three-way discriminant (control_protocol.h), which the distilled
// spec.md table collapses: an ACTION-kind message (e.g. ADD_RUNTIME) is
// fire-and-forget and never produces a matching reply, unlike a REQUEST.
type MsgKind uint8

const (
	MsgKindRequest MsgKind = iota + 1
	MsgKindResponse
	MsgKindAction
)

func (t MsgType) Kind() MsgKind {
	switch t {
	case MsgAddRuntime, MsgCreateThread, MsgDeleteThread:
		return MsgKindAction
	case MsgCreateMSU, MsgDeleteMSU, MsgMSURoutes, MsgModifyRoute:
		return MsgKindRequest
	default:
		return MsgKindResponse
	}
}

// RouteOp names the three MODIFY_ROUTE operations of spec.md §4.6.
type RouteOp uint8

const (
	RouteOpAddEndpoint RouteOp = iota + 1
	RouteOpDelEndpoint
	RouteOpModEndpoint
)

// Action is the decoded, in-process form of one controller control
// message, enqueued on the target worker's control channel and executed
// there so that MSU state is always created/destroyed by its owning
// thread (spec.md §4.6 closing paragraph).
type Action struct {
	Type     MsgType
	ThreadID uint32 // spec.md §4.6 frame field; which worker's control queue this targets

	// ADD_RUNTIME
	RuntimeID   uint32
	RuntimeIP   string
	RuntimePort uint16

	// CREATE_THREAD
	Pinned bool

	// CREATE_MSU / DELETE_MSU
	MSUID    uint32
	MSUType  uint32
	InitData []byte

	// MSU_ROUTES
	RouteIDs []uint32

	// MODIFY_ROUTE
	RouteID  uint32
	Op       RouteOp
	Endpoint route.Endpoint

	// copied from a request into its reply Action by Conn.Ack; nothing in
	// this package assigns it, and the wire frame does not encode it
	ReqID uint64
}
