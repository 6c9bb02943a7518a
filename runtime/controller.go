package runtime

import (
	"fmt"

	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/ctrl"
)

// Handle satisfies ctrl.Handler: ADD_RUNTIME and CREATE_THREAD are
// runtime-level concerns (no owning worker exists yet to execute them on);
// every other request type is forwarded to its named thread's control
// queue and executed there, per spec.md §4.6's closing paragraph.
func (rt *Runtime) Handle(a *ctrl.Action) {
	switch a.Type {
	case ctrl.MsgAddRuntime:
		addr := fmt.Sprintf("%s:%d", a.RuntimeIP, a.RuntimePort)
		if err := rt.transport.AddRuntime(a.RuntimeID, addr); err != nil {
			nlog.Warningf("runtime: add runtime %d (%s): %v", a.RuntimeID, addr, err)
		}
	case ctrl.MsgCreateThread:
		rt.EnsureThread(a.ThreadID, a.Pinned)
	default:
		rt.Dispatch(a.ThreadID, a)
	}
}
