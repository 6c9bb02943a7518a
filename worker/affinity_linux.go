// Package worker: CPU-affinity pinning for threads whose CREATE_THREAD
// action set Pinned=true (spec.md §3 "pinned vs unpinned"). Go doesn't
// expose POSIX sched_setaffinity directly, so this reaches for
// golang.org/x/sys/unix the way the rest of the corpus does for raw
// syscalls the standard library leaves out.
package worker

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/sw1001/DeDOS/cmn/nlog"
)

// Pin locks the calling goroutine to its current OS thread and restricts
// that thread's scheduling to a single CPU, chosen round-robin by thread
// id. Must be called from the goroutine that will run Thread.Run, before
// the event loop starts, since sched_setaffinity applies to the calling
// thread.
func Pin(id uint32) {
	runtime.LockOSThread()
	ncpu := runtime.NumCPU()
	if ncpu == 0 {
		return
	}
	cpu := int(id) % ncpu
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		nlog.Warningf("worker %d: sched_setaffinity(cpu=%d) failed: %v", id, cpu, err)
	}
}
