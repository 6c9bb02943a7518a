// Package xmsg defines the in-memory message envelope and its wire framing,
// shared by the work queue, the worker dispatch loop, and both the
// inter-runtime and controller transports (spec.md §3 "Message envelope",
// §4.5, §4.6).
package xmsg

import (
	"sync/atomic"
)

// Locality names whether an endpoint (and by extension, the envelope
// destined for it) resolves to this process or a remote runtime.
type Locality int

const (
	Local Locality = iota
	Remote
)

var nextEnvID atomic.Uint64

// NextEnvID returns a process-wide unique envelope id, used for logging
// and §7 MSUReceiveError reporting ("logged with the MSU id and envelope
// id").
func NextEnvID() uint64 { return nextEnvID.Add(1) }

// Envelope is the in-flight message: destination MSU id, an
// application-defined routing key, and an owned payload buffer. The peer
// wire frame (frame.go) carries only payload length, destination and key;
// ReadFrame fills OriginRT from the id of the peer connection the frame
// arrived on. No type tag is sent.
type Envelope struct {
	ID       uint64 // process-local, for logs/diagnostics only; never on the wire
	DstMSU   uint32
	Key      int32
	Payload  []byte
	OriginRT uint32 // source runtime id; 0 means "originated locally"
}

// NewEnvelope allocates an envelope with a fresh diagnostic id.
func NewEnvelope(dst uint32, key int32, payload []byte) *Envelope {
	return &Envelope{ID: NextEnvID(), DstMSU: dst, Key: key, Payload: payload}
}

// Size returns the payload length in bytes (spec.md §3 "payload length").
func (e *Envelope) Size() int { return len(e.Payload) }
