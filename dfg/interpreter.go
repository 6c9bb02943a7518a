package dfg

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/ctrl"
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

// ThreadSpawner creates a worker thread on demand (step 1: "spawn any
// missing worker threads referenced by these vertices").
type ThreadSpawner interface {
	EnsureThread(threadID uint32, pinned bool)
}

// ActionSink delivers a control action to the worker owning threadID
// (steps 3 and 5: CREATE_MSU, MSU_ROUTES).
type ActionSink interface {
	Dispatch(threadID uint32, a *ctrl.Action)
}

// RouteTable creates/looks up the shared routes this runtime owns
// (steps 2 and 4).
type RouteTable interface {
	Ensure(id, typeID uint32) *route.Route
}

// Interpreter turns a parsed Graph into local control actions for one
// runtime id (spec.md §4.7). LocalRuntimeID always comes from this
// struct's construction — the process's own configured id — never parsed
// out of the Graph itself: this closes the get_local_runtime aliasing bug
// spec.md §9 flags, where a stale vertex.scheduling.runtime id could be
// compared against instead of the caller's actual identity.
type Interpreter struct {
	LocalRuntimeID uint32
	Threads        ThreadSpawner
	Actions        ActionSink
	Routes         RouteTable
	Acker          *Acker
}

// Implement runs the five-step sequence of spec.md §4.7 against the
// subset of g's vertices scheduled onto this runtime. Step 3 (create
// MSUs) and step 4 (attach endpoints to routes) are separated by a
// settling barrier that waits for every dispatched CREATE_MSU's ack
// (via errgroup), not a fixed sleep.
func (in *Interpreter) Implement(ctx context.Context, g *Graph) error {
	local := localVertices(g, in.LocalRuntimeID)
	rt := in.localRuntimeDesc(g)
	owners := msuOwners(g)

	in.spawnThreads(local, rt)
	in.createRoutes(rt)

	if err := in.createMSUs(ctx, local); err != nil {
		return err
	}

	in.attachEndpoints(rt, owners)
	in.attachRoutesToMSUs(local)
	return nil
}

func localVertices(g *Graph, runtimeID uint32) []MSUDesc {
	var out []MSUDesc
	for _, m := range g.MSUs {
		if m.Scheduling.Runtime == runtimeID {
			out = append(out, m)
		}
	}
	return out
}

func (in *Interpreter) localRuntimeDesc(g *Graph) *RuntimeDesc {
	for i := range g.Runtimes {
		if g.Runtimes[i].ID == in.LocalRuntimeID {
			return &g.Runtimes[i]
		}
	}
	return nil
}

// msuOwners maps every MSU id in the graph to its owning runtime id, so
// attachEndpoints can tell a Local endpoint from a Remote one.
func msuOwners(g *Graph) map[uint32]uint32 {
	owners := make(map[uint32]uint32, len(g.MSUs))
	for _, m := range g.MSUs {
		owners[m.ID] = m.Scheduling.Runtime
	}
	return owners
}

func (in *Interpreter) spawnThreads(local []MSUDesc, rt *RuntimeDesc) {
	seen := make(map[uint32]bool)
	for _, m := range local {
		tid := m.Scheduling.ThreadID
		if seen[tid] {
			continue
		}
		seen[tid] = true
		pinned := rt != nil && tid < uint32(rt.NPinnedThreads)
		in.Threads.EnsureThread(tid, pinned)
	}
}

func (in *Interpreter) createRoutes(rt *RuntimeDesc) {
	if rt == nil {
		return
	}
	for _, rd := range rt.Routes {
		in.Routes.Ensure(rd.ID, rd.Type)
	}
}

// createMSUs dispatches CREATE_MSU for every local vertex and waits for
// all of their acks before returning, via errgroup.Group — the mandatory
// redesign of spec.md §9 in place of the original's sleep(5) between
// MSU creation and route attachment.
func (in *Interpreter) createMSUs(ctx context.Context, local []MSUDesc) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range local {
		m := m
		wait := in.Acker.await(m.ID)
		in.Actions.Dispatch(m.Scheduling.ThreadID, &ctrl.Action{
			Type:     ctrl.MsgCreateMSU,
			ThreadID: m.Scheduling.ThreadID,
			MSUID:    m.ID,
			MSUType:  m.Type,
			InitData: []byte(m.InitData),
		})
		g.Go(func() error {
			select {
			case err := <-wait:
				if err != nil {
					// a single MSU's creation failure doesn't abort the
					// whole DFG implementation; the controller sees a
					// NACK independently via Reporter.
					nlog.Warningf("dfg: msu %d create failed: %v", m.ID, err)
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

func (in *Interpreter) attachEndpoints(rt *RuntimeDesc, owners map[uint32]uint32) {
	if rt == nil {
		return
	}
	for _, rd := range rt.Routes {
		r := in.Routes.Ensure(rd.ID, rd.Type)
		for _, ep := range rd.Endpoints {
			loc := xmsg.Remote
			ownerRT := owners[ep.MSU]
			if ownerRT == in.LocalRuntimeID {
				loc = xmsg.Local
			}
			r.AddEndpoint(route.Endpoint{Key: ep.Key, MSUID: ep.MSU, Locality: loc, RuntimeID: ownerRT})
		}
	}
}

func (in *Interpreter) attachRoutesToMSUs(local []MSUDesc) {
	for _, m := range local {
		if len(m.Scheduling.Routes) == 0 {
			continue
		}
		in.Actions.Dispatch(m.Scheduling.ThreadID, &ctrl.Action{
			Type:     ctrl.MsgMSURoutes,
			ThreadID: m.Scheduling.ThreadID,
			MSUID:    m.ID,
			RouteIDs: m.Scheduling.Routes,
		})
	}
}
