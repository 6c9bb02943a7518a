//go:build !linux

package worker

// Pin is a no-op on platforms without sched_setaffinity; pinned threads
// just run as ordinary goroutines.
func Pin(uint32) {}
