package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/xmsg"
)

// ErrUnknownPeer names a runtime id with no registered peer connection.
type ErrUnknownPeer struct{ RuntimeID uint32 }

func (e *ErrUnknownPeer) Error() string {
	return fmt.Sprintf("unknown peer runtime %d", e.RuntimeID)
}

// Manager is the process-wide peer table and listener of spec.md §4.5:
// it owns one *Peer per remote runtime, dials out on ADD_RUNTIME, accepts
// inbound connections from peers dialing us, and runs the handshake that
// identifies an inbound socket by the remote's local_runtime_id.
type Manager struct {
	localRuntimeID uint32 // always the configured id, never peer-derived
	inbound        Inbound

	mu    sync.RWMutex
	peers map[uint32]*Peer

	ln net.Listener
}

// NewManager constructs a manager bound to localRuntimeID — taken from
// the process's own configuration, never from a DFG or a handshake
// payload (the redesign spec.md §9 mandates for local-id derivation
// applies here too: a peer's handshake tells us ITS id, never ours).
func NewManager(localRuntimeID uint32, inbound Inbound) *Manager {
	return &Manager{
		localRuntimeID: localRuntimeID,
		inbound:        inbound,
		peers:          make(map[uint32]*Peer),
	}
}

// Listen starts accepting inbound peer connections on addr. Each accepted
// socket is handshaked to learn the remote's runtime id, then attached to
// that id's Peer (creating one if ADD_RUNTIME hasn't arrived yet locally —
// the controller is expected to converge both ends eventually).
func (m *Manager) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.ln = ln
	go m.acceptLoop(ln)
	return nil
}

func (m *Manager) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return // listener closed at shutdown
		}
		go m.handleAccept(conn)
	}
}

func (m *Manager) handleAccept(conn net.Conn) {
	remoteID, err := readHandshake(conn)
	if err != nil {
		nlog.Warningf("transport: inbound handshake: %v", err)
		_ = conn.Close()
		return
	}
	if err := writeHandshake(conn, m.localRuntimeID); err != nil {
		nlog.Warningf("transport: inbound handshake reply to runtime %d: %v", remoteID, err)
		_ = conn.Close()
		return
	}
	p := m.ensurePeer(remoteID, conn.RemoteAddr().String())
	p.attach(conn)
}

// AddRuntime implements the ADD_RUNTIME control action (spec.md §4.5,
// §4.6 table): idempotent for an already-connected peer id.
func (m *Manager) AddRuntime(runtimeID uint32, addr string) error {
	p := m.ensurePeer(runtimeID, addr)
	if p.connected() {
		return nil // idempotent: spec.md §8 "leaves the peer table unchanged"
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	if err := writeHandshake(conn, m.localRuntimeID); err != nil {
		_ = conn.Close()
		return err
	}
	gotID, err := readHandshake(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if gotID != runtimeID {
		_ = conn.Close()
		return &cos.ErrMalformedPeerFrame{RuntimeID: runtimeID, Reason: "handshake id mismatch"}
	}
	p.attach(conn)
	return nil
}

func (m *Manager) ensurePeer(runtimeID uint32, addr string) *Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.peers[runtimeID]; ok {
		return p
	}
	p := newPeer(runtimeID, addr, m.inbound)
	m.peers[runtimeID] = p
	return p
}

// Peer returns the registered peer for a runtime id, if any.
func (m *Manager) Peer(runtimeID uint32) (*Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.peers[runtimeID]
	return p, ok
}

// SendTo is the Dispatcher-facing entry point for remote delivery:
// resolve the destination runtime's peer and hand it the envelope.
func (m *Manager) SendTo(runtimeID uint32, env *xmsg.Envelope) error {
	p, ok := m.Peer(runtimeID)
	if !ok {
		return &ErrUnknownPeer{RuntimeID: runtimeID}
	}
	return p.Send(env)
}

// DeleteRuntime closes and forgets a peer, e.g. a runtime permanently
// leaving the DFG. No control message in package ctrl maps to it.
func (m *Manager) DeleteRuntime(runtimeID uint32) {
	m.mu.Lock()
	p, ok := m.peers[runtimeID]
	if ok {
		delete(m.peers, runtimeID)
	}
	m.mu.Unlock()
	if ok {
		p.Close()
	}
}

// Shutdown closes the listener and every peer connection.
func (m *Manager) Shutdown() {
	if m.ln != nil {
		_ = m.ln.Close()
	}
	m.mu.Lock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()
	for _, p := range peers {
		p.Close()
	}
}

// handshake wire format: a bare 4-byte little-endian runtime id, sent by
// both sides right after connect (spec.md §4.5 "exchanges a handshake
// carrying local_runtime_id").
func writeHandshake(w io.Writer, localRuntimeID uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], localRuntimeID)
	_, err := w.Write(b[:])
	return err
}

func readHandshake(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
