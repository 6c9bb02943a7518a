// Package transport implements inter-runtime communication (spec.md
// §4.5): one long-lived TCP connection per remote runtime, an outgoing
// queue per peer serialized by a single sender goroutine, and a socket
// monitor fanning out readable events. Go's netpoller already multiplexes
// socket readiness under the hood, so the idiomatic substitute for a
// process-wide epoll loop is one goroutine per connection rather than a
// hand-rolled reactor — each such goroutine IS the "readable event"
// handler the spec describes.
package transport

import (
	"net"
	"sync"
	"time"

	"github.com/teris-io/shortid"
	"go.uber.org/atomic"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/xmsg"
)

// outQueueCap bounds a peer's outgoing queue; a full queue drops the
// envelope and counts it, the same QueueFull policy package queue uses
// for a worker's data channel (spec.md §7).
const outQueueCap = 4096

// sessionIDAlphabet mirrors the teacher's own shortid alphabet choice
// for generated ids (cmn/cos/uuid.go's uuidABC): letters/digits plus
// '-'/'_', safe to drop straight into a log line unquoted.
const sessionIDAlphabet = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

// sessionIDGen mints per-attach() session ids for log correlation across
// reconnects; worker id 1 is arbitrary since this process only ever runs
// one generator (mirrors the teacher's own package-private *shortid.Shortid
// in cmn/cos/uuid.go, initialized once rather than per call).
var sessionIDGen = shortid.MustNew(1, sessionIDAlphabet, uint64(time.Now().UnixNano()))

// Inbound is how an arrived peer envelope gets to its destination MSU's
// worker queue; implemented by the runtime, which owns the worker table.
type Inbound interface {
	DeliverRemote(env *xmsg.Envelope) error
}

// Peer is a registered remote runtime endpoint (spec.md §3 "Runtime
// endpoint"): one TCP connection, one outgoing queue, one sender
// goroutine. The connection is replaced atomically on reconnect so
// concurrent Send callers never observe a half-torn-down fd.
type Peer struct {
	RuntimeID uint32
	Addr      string

	mu        sync.Mutex
	conn      net.Conn // nil while disconnected
	out       chan *xmsg.Envelope
	closing   bool
	sessionID string // identifies the current attach(), for reconnect log correlation

	dropped atomic.Uint64
	sent    atomic.Uint64

	inbound Inbound
}

func newPeer(runtimeID uint32, addr string, inbound Inbound) *Peer {
	return &Peer{
		RuntimeID: runtimeID,
		Addr:      addr,
		inbound:   inbound,
	}
}

// Send enqueues env for delivery to this peer; never blocks. Returns
// *cos.ErrQueueFull if the outgoing queue is saturated or no connection
// is currently attached, in which case the caller's policy (default:
// drop and count) applies.
func (p *Peer) Send(env *xmsg.Envelope) error {
	p.mu.Lock()
	ch, conn := p.out, p.conn
	p.mu.Unlock()
	if ch == nil || conn == nil {
		p.dropped.Inc()
		return &cos.ErrQueueFull{QueueID: peerQueueID(p.RuntimeID), Len: 0}
	}
	select {
	case ch <- env:
		return nil
	default:
		p.dropped.Inc()
		return &cos.ErrQueueFull{QueueID: peerQueueID(p.RuntimeID), Len: len(ch)}
	}
}

func peerQueueID(runtimeID uint32) string {
	return "peer-out-" + uitoa(runtimeID)
}

// connected reports whether this peer currently has a live socket.
func (p *Peer) connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// attach installs conn as this peer's active socket, closing any prior
// one first, and starts the reader/sender goroutines for it. Idempotent
// ADD_RUNTIME for an already-connected peer (spec.md §8 scenario,
// "leaves the peer table unchanged") is handled by the caller (Manager)
// not reattaching when connected() is already true.
//
// The outgoing channel is recreated on every attach rather than shared
// across reconnects: a stale sender goroutine from a torn-down
// connection must stop pulling work meant for the new one, and the only
// way to guarantee that without a second stale write silently eating an
// envelope is for it to own a channel nobody else ever writes to again.
func (p *Peer) attach(conn net.Conn) {
	session, err := sessionIDGen.Generate()
	if err != nil {
		// shortid's only failure mode is its internal entropy worker
		// falling behind; a missing id just degrades log correlation.
		nlog.Warningf("peer %d: generate session id: %v", p.RuntimeID, err)
	}
	p.mu.Lock()
	oldConn, oldOut, oldSession := p.conn, p.out, p.sessionID
	newOut := make(chan *xmsg.Envelope, outQueueCap)
	p.conn, p.out, p.sessionID = conn, newOut, session
	p.mu.Unlock()
	if oldConn != nil {
		_ = oldConn.Close()
	}
	if oldOut != nil {
		close(oldOut)
	}
	nlog.Infof("peer %d: attached session %s (replacing %s)", p.RuntimeID, session, oldSession)
	go p.readLoop(conn)
	go p.sendLoop(conn, newOut)
}

// SessionID identifies the peer's current connection attempt, letting log
// lines from readLoop/sendLoop across a reconnect be told apart without
// changing the wire handshake itself.
func (p *Peer) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// detach drops the current connection if it is still c, so a stale
// reader/sender pair racing a newer attach() doesn't tear down the fresh
// socket (spec.md §8 scenario 6: reconnect replaces, doesn't corrupt), and
// closes the fd so its counterpart goroutine unblocks on its next I/O.
func (p *Peer) detach(c net.Conn) {
	p.mu.Lock()
	if p.conn == c {
		p.conn = nil
	}
	p.mu.Unlock()
	_ = c.Close()
}

// Close tears this peer down for good (process shutdown, or a DELETE of
// the runtime entry): no further reconnect is expected after this.
func (p *Peer) Close() {
	p.mu.Lock()
	p.closing = true
	conn, out := p.conn, p.out
	p.conn, p.out = nil, nil
	p.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	if out != nil {
		close(out)
	}
}

func (p *Peer) readLoop(conn net.Conn) {
	session := p.SessionID()
	for {
		env, err := xmsg.ReadFrame(conn, p.RuntimeID)
		if err != nil {
			nlog.Warningf("peer %d: read (session %s): %v", p.RuntimeID, session, err)
			p.detach(conn)
			return
		}
		if err := p.inbound.DeliverRemote(env); err != nil {
			nlog.Warningf("peer %d: deliver envelope %d: %v", p.RuntimeID, env.ID, err)
		}
	}
}

// sendLoop drains ch, the specific channel attach() minted for conn.
// ch being closed (by a later attach superseding this connection) ends
// the loop without touching the new connection or channel at all.
func (p *Peer) sendLoop(conn net.Conn, ch chan *xmsg.Envelope) {
	session := p.SessionID()
	for env := range ch {
		if err := xmsg.WriteFrame(conn, env); err != nil {
			nlog.Warningf("peer %d: write (session %s): %v", p.RuntimeID, session, err)
			p.detach(conn)
			return
		}
		p.sent.Inc()
	}
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
