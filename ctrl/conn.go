package ctrl

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
)

// Handler receives one decoded Action read off the controller connection.
// Implemented by the runtime: ADD_RUNTIME and CREATE_THREAD are handled
// in-process; every other message, DELETE_THREAD included, is forwarded to
// the named thread's control queue.
type Handler interface {
	Handle(a *Action)
}

// Conn is the runtime's single connection to the controller (spec.md
// §4.6: "a single framed TCP connection to the controller"). Reads run on
// their own goroutine via Serve; writes (replies sent through Ack, or any
// other Write) are serialized by mu since several worker goroutines may
// reply concurrently.
type Conn struct {
	conn net.Conn
	mu   sync.Mutex
}

// Dial connects to the controller at addr.
func Dial(addr string) (*Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c}, nil
}

// NewConn wraps an already-established connection (e.g. one accepted by a
// test harness standing in for the controller).
func NewConn(conn net.Conn) *Conn { return &Conn{conn: conn} }

// Serve reads Actions off the connection until it closes or ReadAction
// fails, handing each to handler. A malformed single frame
// (*cos.ErrMalformedControlMsg) does not end the loop, per spec.md §7/§8
// scenario 5 -- only a transport-level error (EOF, reset) does.
func (c *Conn) Serve(handler Handler) error {
	for {
		a, err := ReadAction(c.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			var malformed *cos.ErrMalformedControlMsg
			if errors.As(err, &malformed) {
				nlog.Warningf("ctrl: dropping malformed frame: %v", err)
				continue
			}
			return err
		}
		handler.Handle(a)
	}
}

// Write serializes one Action to the controller, e.g. a reply or a
// STATS_UPDATE push. Safe for concurrent use.
func (c *Conn) Write(a *Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteAction(c.conn, a)
}

// Ack implements worker.Reporter: CREATE_MSU is answered with
// CREATE_MSU_ACK or CREATE_MSU_NACK, DELETE_MSU with DELETE_MSU_ACK or a
// generic NACK on failure, and any other action only when it failed, with
// a generic NACK (spec.md §4.6 "at-most-once per request, best-effort").
// The reply frame carries the reply type and the request's ThreadID;
// EncodePayload has no layout for reply types, so the MSUID and ReqID
// copied into the reply Action are not transmitted.
func (c *Conn) Ack(a *Action, err error) {
	reply := &Action{ThreadID: a.ThreadID, MSUID: a.MSUID, ReqID: a.ReqID}
	switch a.Type {
	case MsgCreateMSU:
		if err != nil {
			reply.Type = MsgCreateMSUNack
		} else {
			reply.Type = MsgCreateMSUAck
		}
	case MsgDeleteMSU:
		if err != nil {
			reply.Type = MsgNack
		} else {
			reply.Type = MsgDeleteMSUAck
		}
	default:
		if err == nil {
			return
		}
		reply.Type = MsgNack
	}
	if werr := c.Write(reply); werr != nil {
		nlog.Warningf("ctrl: failed to reply to msu %d action: %v", a.MSUID, werr)
	}
}

// Close shuts down the controller connection.
func (c *Conn) Close() error { return c.conn.Close() }
