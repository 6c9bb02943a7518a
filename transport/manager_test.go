package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/xmsg"
)

type collectingInbound struct {
	mu  sync.Mutex
	got []*xmsg.Envelope
}

func (c *collectingInbound) DeliverRemote(env *xmsg.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, env)
	return nil
}

func (c *collectingInbound) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestAddRuntimeHandshakeAndDelivery(t *testing.T) {
	serverInbound := &collectingInbound{}
	server := NewManager(2, serverInbound)
	require.NoError(t, server.Listen("127.0.0.1:0"))
	addr := server.ln.Addr().String()

	clientInbound := &collectingInbound{}
	client := NewManager(1, clientInbound)
	require.NoError(t, client.AddRuntime(2, addr))

	require.Eventually(t, func() bool {
		_, ok := server.Peer(1)
		return ok
	}, time.Second, time.Millisecond)

	env := xmsg.NewEnvelope(42, 7, []byte("payload"))
	require.NoError(t, client.SendTo(2, env))

	require.Eventually(t, func() bool { return serverInbound.count() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, uint32(42), serverInbound.got[0].DstMSU)
	require.Equal(t, int32(7), serverInbound.got[0].Key)

	client.Shutdown()
	server.Shutdown()
}

func TestAddRuntimeIdempotentForConnectedPeer(t *testing.T) {
	serverInbound := &collectingInbound{}
	server := NewManager(2, serverInbound)
	require.NoError(t, server.Listen("127.0.0.1:0"))
	addr := server.ln.Addr().String()

	client := NewManager(1, &collectingInbound{})
	require.NoError(t, client.AddRuntime(2, addr))
	p1, _ := client.Peer(2)

	require.NoError(t, client.AddRuntime(2, addr))
	p2, _ := client.Peer(2)
	require.Same(t, p1, p2)

	client.Shutdown()
	server.Shutdown()
}

func TestPeerReconnectDropsPartialFrame(t *testing.T) {
	serverInbound := &collectingInbound{}
	server := NewManager(2, serverInbound)
	require.NoError(t, server.Listen("127.0.0.1:0"))
	addr := server.ln.Addr().String()

	client := NewManager(1, &collectingInbound{})
	require.NoError(t, client.AddRuntime(2, addr))

	require.Eventually(t, func() bool {
		_, ok := server.Peer(1)
		return ok
	}, time.Second, time.Millisecond)

	p, _ := client.Peer(2)
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	// send only part of a frame header, then drop the connection mid-frame.
	_, err := conn.Write([]byte{5, 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return !p.connected() }, time.Second, time.Millisecond)

	require.NoError(t, client.AddRuntime(2, addr))
	require.Eventually(t, func() bool { return p.connected() }, time.Second, time.Millisecond)

	// the partial frame from before the drop is never delivered.
	require.Equal(t, 0, serverInbound.count())

	client.Shutdown()
	server.Shutdown()
}
