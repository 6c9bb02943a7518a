package worker

import (
	"errors"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/ctrl"
	"github.com/sw1001/DeDOS/msu"
)

// execControl runs one control action against this thread's local state,
// mirroring spec.md §4.6's "executed there so that MSU state is always
// created/destroyed by its owning thread". Acks/nacks go back through
// Reporter so the caller never blocks the event loop on the controller
// socket.
func (t *Thread) execControl(a *ctrl.Action) {
	switch a.Type {
	case ctrl.MsgCreateMSU:
		err := t.createMSU(a)
		t.ack(a, err)
	case ctrl.MsgDeleteMSU:
		err := t.destroyMSU(a.MSUID)
		t.ack(a, err)
	case ctrl.MsgMSURoutes:
		err := t.attachRoutes(a)
		t.ack(a, err)
	case ctrl.MsgModifyRoute:
		err := t.modifyRoute(a)
		t.ack(a, err)
	case ctrl.MsgDeleteThread:
		t.RequestStop()
	default:
		nlog.Warningf("worker %d: unhandled control action %v", t.id, a.Type)
	}
}

func (t *Thread) ack(a *ctrl.Action, err error) {
	if t.report != nil {
		t.report.Ack(a, err)
	}
	if err != nil {
		nlog.Warningf("worker %d: action %v failed: %v", t.id, a.Type, err)
	}
}

func (t *Thread) createMSU(a *ctrl.Action) error {
	typ, ok := t.types.Get(a.MSUType)
	if !ok {
		return &cos.ErrInitFailure{TypeID: a.MSUType, Reason: errors.New("unknown MSU type")}
	}
	inst, err := msu.New(a.MSUID, typ, t, t.dispatcher, a.InitData)
	if err != nil {
		return err
	}
	if err := t.table.Register(inst); err != nil {
		_ = inst.Destroy()
		return err
	}
	t.mu.Lock()
	t.insts[a.MSUID] = inst
	t.mu.Unlock()
	return nil
}

func (t *Thread) destroyMSU(id uint32) error {
	t.mu.Lock()
	inst, ok := t.insts[id]
	if ok {
		delete(t.insts, id)
	}
	t.mu.Unlock()
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: id}
	}
	t.table.Unregister(id)
	// drop this instance's route references before destroying it; any
	// route whose refcount reaches zero is removed from the shared table
	// (spec.md §3 "dropping the last reference destroys the route").
	for _, rt := range inst.ReleaseRoutes() {
		t.routes.Delete(rt.ID)
	}
	return inst.Destroy()
}

func (t *Thread) attachRoutes(a *ctrl.Action) error {
	t.mu.Lock()
	inst, ok := t.insts[a.MSUID]
	t.mu.Unlock()
	if !ok {
		return &cos.ErrUnknownMSU{MSUID: a.MSUID}
	}
	for _, rid := range a.RouteIDs {
		rt, ok := t.routes.Get(rid)
		if !ok {
			return &cos.ErrUnknownRoute{RouteID: rid}
		}
		inst.AttachRoute(rt)
	}
	return nil
}

func (t *Thread) modifyRoute(a *ctrl.Action) error {
	rt, ok := t.routes.Get(a.RouteID)
	if !ok {
		return &cos.ErrUnknownRoute{RouteID: a.RouteID}
	}
	switch a.Op {
	case ctrl.RouteOpAddEndpoint:
		rt.AddEndpoint(a.Endpoint)
	case ctrl.RouteOpDelEndpoint:
		if !rt.RemoveEndpoint(a.Endpoint.MSUID) {
			return &cos.ErrEndpointNotFound{RouteID: a.RouteID, Key: a.Endpoint.Key}
		}
	case ctrl.RouteOpModEndpoint:
		if !rt.ModifyEndpoint(a.Endpoint) {
			return &cos.ErrEndpointNotFound{RouteID: a.RouteID, Key: a.Endpoint.Key}
		}
	default:
		return &cos.ErrMalformedControlMsg{Type: "MODIFY_ROUTE.op", Want: -1, Got: int(a.Op)}
	}
	return nil
}
