package basichost

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/host/eventbus"
	"github.com/stephanfeb/p2p-core/p2p/muxer/yamux"
	"github.com/stephanfeb/p2p-core/p2p/net/swarm"
	"github.com/stephanfeb/p2p-core/p2p/net/upgrader"
	"github.com/stephanfeb/p2p-core/p2p/peerstore/pstoremem"
	"github.com/stephanfeb/p2p-core/p2p/security/noise"
	"github.com/stephanfeb/p2p-core/p2p/transport/tcp"
)

// newTestHost builds a fully wired BasicHost (real swarm, noise, yamux, tcp)
// listening on loopback, the way swarm_test.go builds bare swarms.
func newTestHost(t *testing.T) *BasicHost {
	t.Helper()

	priv, pub, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)

	ps := pstoremem.NewPeerstore()
	require.NoError(t, ps.AddPrivKey(id, priv))
	require.NoError(t, ps.AddPubKey(id, pub))

	up := upgrader.New(noise.NewTransport(id, priv), yamux.New())
	sw := swarm.New(id, ps, up, nil)
	sw.AddTransport(tcp.New())

	addr, err := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
	require.NoError(t, err)
	require.NoError(t, sw.Listen(addr))

	h, err := New(priv, ps, eventbus.NewBus(), sw)
	require.NoError(t, err)
	h.Start()
	t.Cleanup(func() { h.Close() })
	return h
}

const testEchoProto protocol.ID = "/test/echo/1.0.0"

func echoHandler(st network.Stream) {
	defer st.Close()
	buf := make([]byte, 5)
	if _, err := io.ReadFull(st, buf); err != nil {
		return
	}
	st.Write(buf)
}

func TestConnectAndNewStreamRoundTrip(t *testing.T) {
	dialer := newTestHost(t)
	listener := newTestHost(t)

	listener.SetStreamHandler(testEchoProto, echoHandler)

	bound := listener.Network().ListenAddresses()
	require.Len(t, bound, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := dialer.Connect(ctx, peer.AddrInfo{ID: listener.ID(), Addrs: bound})
	require.NoError(t, err)
	require.Equal(t, network.Connected, dialer.Network().Connectedness(listener.ID()))

	st, err := dialer.NewStream(ctx, listener.ID(), testEchoProto)
	require.NoError(t, err)
	defer st.Close()
	require.Equal(t, testEchoProto, st.Protocol())

	_, err = st.Write([]byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(st, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))

	protos, err := dialer.Peerstore().GetProtocols(listener.ID())
	require.NoError(t, err)
	require.Contains(t, protos, testEchoProto)
}

func TestSetStreamHandlerEmitsLocalProtocolsUpdated(t *testing.T) {
	h := newTestHost(t)

	sub, err := h.EventBus().Subscribe(&event.EvtLocalProtocolsUpdated{})
	require.NoError(t, err)
	defer sub.Close()

	h.SetStreamHandler(testEchoProto, echoHandler)

	select {
	case evt := <-sub.Out():
		e := evt.(event.EvtLocalProtocolsUpdated)
		require.Contains(t, e.Added, testEchoProto)
	case <-time.After(time.Second):
		t.Fatal("expected a local-protocols-updated event")
	}

	require.Contains(t, h.Mux().Protocols(), testEchoProto)

	h.RemoveStreamHandler(testEchoProto)
	require.NotContains(t, h.Mux().Protocols(), testEchoProto)
}

func TestConnectIsIdempotentWhenAlreadyConnected(t *testing.T) {
	dialer := newTestHost(t)
	listener := newTestHost(t)

	bound := listener.Network().ListenAddresses()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, dialer.Connect(ctx, peer.AddrInfo{ID: listener.ID(), Addrs: bound}))
	require.NoError(t, dialer.Connect(ctx, peer.AddrInfo{ID: listener.ID()}))
}
