package runtime

import (
	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/xmsg"
)

// DispatchLocal satisfies msu.Dispatcher: envelopes addressed to a LOCAL
// msu id are pushed straight onto that msu's owning worker's data queue.
func (rt *Runtime) DispatchLocal(dstMSU uint32, key int32, payload []byte) error {
	inst, ok := rt.insts.Get(dstMSU)
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: dstMSU}
	}
	th, ok := rt.threads.Get(inst.Owner.ID())
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: dstMSU}
	}
	return th.Queue().PushData(xmsg.NewEnvelope(dstMSU, key, payload))
}

// DispatchRemote satisfies msu.Dispatcher: envelopes addressed to a
// REMOTE runtime are handed to the transport layer's per-peer outgoing
// queue.
func (rt *Runtime) DispatchRemote(runtimeID, dstMSU uint32, key int32, payload []byte) error {
	return rt.transport.SendTo(runtimeID, xmsg.NewEnvelope(dstMSU, key, payload))
}

// DeliverRemote satisfies transport.Inbound: a frame that just arrived
// from a peer is dispatched exactly like a DispatchLocal call, since by
// construction its DstMSU always names a LOCAL instance (spec.md §4.5).
func (rt *Runtime) DeliverRemote(env *xmsg.Envelope) error {
	inst, ok := rt.insts.Get(env.DstMSU)
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: env.DstMSU}
	}
	th, ok := rt.threads.Get(inst.Owner.ID())
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: env.DstMSU}
	}
	return th.Queue().PushData(env)
}
