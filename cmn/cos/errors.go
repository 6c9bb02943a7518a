// Package cos ("common") holds small, widely shared types and the typed
// error zoo the runtime's components raise: every §7 error kind of the
// specification gets its own type here so callers can dispatch on it with
// errors.As instead of string-matching.
package cos

import (
	"fmt"

	"github.com/pkg/errors"
)

type (
	// ErrQueueFull is returned by a bounded push when the data channel of a
	// work queue is at capacity. The caller's policy (default: drop and
	// count) decides what happens next; the queue itself never blocks.
	ErrQueueFull struct {
		QueueID string
		Len     int
	}

	// ErrMalformedControlMsg is raised when a controller frame's declared
	// payload_size doesn't match the expected size for its type, or the
	// type is unknown. The controller connection is kept open.
	ErrMalformedControlMsg struct {
		Type string
		Want int
		Got  int
	}

	// ErrMalformedPeerFrame is raised on an implausible payload length or a
	// partial close mid-frame on a peer connection.
	ErrMalformedPeerFrame struct {
		RuntimeID uint32
		Reason    string
	}

	// ErrUnknownMSU names an MSU id not present in the process-wide
	// instance table.
	ErrUnknownMSU struct{ MSUID uint32 }

	// ErrUnknownThread names a worker id not present in the thread table.
	ErrUnknownThread struct{ ThreadID uint32 }

	// ErrUnknownRoute names a route id not present in this runtime.
	ErrUnknownRoute struct{ RouteID uint32 }

	// ErrEndpointNotFound is a routing-strategy failure: no endpoint could
	// be produced for the given key/target.
	ErrEndpointNotFound struct {
		RouteID uint32
		Key     int32
	}

	// ErrMSUReceive wraps a non-zero return from an MSU's receive callback.
	ErrMSUReceive struct {
		MSUID  uint32
		EnvID  uint64
		Reason error
	}

	// ErrInitFailure wraps a non-zero return from an MSU's init callback;
	// the instance is never registered.
	ErrInitFailure struct {
		TypeID uint32
		Reason error
	}

	// ErrFatalConfig signals a startup condition the process cannot
	// recover from (e.g. no controller connection).
	ErrFatalConfig struct{ Reason string }
)

func (e *ErrQueueFull) Error() string {
	return fmt.Sprintf("queue %s full (len=%d)", e.QueueID, e.Len)
}

func (e *ErrMalformedControlMsg) Error() string {
	return fmt.Sprintf("malformed control message %s: want payload_size=%d, got %d", e.Type, e.Want, e.Got)
}

func (e *ErrMalformedPeerFrame) Error() string {
	return fmt.Sprintf("malformed frame from runtime %d: %s", e.RuntimeID, e.Reason)
}

func (e *ErrUnknownMSU) Error() string    { return fmt.Sprintf("unknown msu %d", e.MSUID) }
func (e *ErrUnknownThread) Error() string { return fmt.Sprintf("unknown thread %d", e.ThreadID) }
func (e *ErrUnknownRoute) Error() string  { return fmt.Sprintf("unknown route %d", e.RouteID) }

func (e *ErrEndpointNotFound) Error() string {
	return fmt.Sprintf("no endpoint for route %d key %d", e.RouteID, e.Key)
}

func (e *ErrMSUReceive) Error() string {
	return fmt.Sprintf("msu %d: receive(envelope %d) failed: %v", e.MSUID, e.EnvID, e.Reason)
}

func (e *ErrInitFailure) Error() string {
	return fmt.Sprintf("msu type %d: init failed: %v", e.TypeID, e.Reason)
}

func (e *ErrFatalConfig) Error() string { return "fatal config: " + e.Reason }

// Wrap adds a stack-trace-carrying cause via github.com/pkg/errors, the way
// the teacher wraps internal errors for its logs and NACK payloads.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
