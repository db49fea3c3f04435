package swarm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/muxer/yamux"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
	"github.com/stephanfeb/p2p-core/p2p/net/upgrader"
	"github.com/stephanfeb/p2p-core/p2p/peerstore/pstoremem"
	"github.com/stephanfeb/p2p-core/p2p/security/noise"
	"github.com/stephanfeb/p2p-core/p2p/transport/tcp"
)

func newTestIdentity(t *testing.T) (crypto.PrivKey, peer.ID) {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)
	return priv, id
}

func newTestSwarm(t *testing.T, priv crypto.PrivKey, id peer.ID) *Swarm {
	t.Helper()
	ps := pstoremem.NewPeerstore()
	require.NoError(t, ps.AddPrivKey(id, priv))
	up := upgrader.New(noise.NewTransport(id, priv), yamux.New())
	s := New(id, ps, up, nil)
	s.AddTransport(tcp.New())
	t.Cleanup(func() { s.Close() })
	return s
}

// dialablePair builds a dialer and a listener swarm and registers the
// listener's bound loopback address in the dialer's peerstore.
func dialablePair(t *testing.T) (dialerSwarm, listenerSwarm *Swarm, listenerID peer.ID) {
	t.Helper()

	dialerPriv, dialerID := newTestIdentity(t)
	dialerSwarm = newTestSwarm(t, dialerPriv, dialerID)

	listenerPriv, lid := newTestIdentity(t)
	listenerSwarm = newTestSwarm(t, listenerPriv, lid)

	addr, err := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
	require.NoError(t, err)
	require.NoError(t, listenerSwarm.Listen(addr))

	bound := listenerSwarm.ListenAddresses()
	require.Len(t, bound, 1)

	dialerSwarm.peerstore.AddAddr(lid, bound[0], time.Hour)

	return dialerSwarm, listenerSwarm, lid
}

func TestDialPeerRejectsSelfDial(t *testing.T) {
	priv, id := newTestIdentity(t)
	s := newTestSwarm(t, priv, id)
	_, err := s.DialPeer(context.Background(), id)
	require.ErrorIs(t, err, network.ErrSelfDial)
}

func TestDialPeerNoAddressesFails(t *testing.T) {
	priv, id := newTestIdentity(t)
	s := newTestSwarm(t, priv, id)
	_, otherID := newTestIdentity(t)

	_, err := s.DialPeer(context.Background(), otherID)
	require.Error(t, err)
	require.True(t, errors.Is(err, network.ErrNoAddresses))
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

func TestDialAndEchoStreamRoundTrip(t *testing.T) {
	dialerSwarm, listenerSwarm, lid := dialablePair(t)

	listenerSwarm.SetStreamHandlerMatch(testEchoProto, func(id protocol.ID) bool { return id == testEchoProto }, echoHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := dialerSwarm.DialPeer(ctx, lid)
	require.NoError(t, err)
	require.Equal(t, lid, conn.RemotePeer())
	require.Equal(t, network.Connected, dialerSwarm.Connectedness(lid))

	st, err := conn.NewStream(ctx)
	require.NoError(t, err)
	defer st.Close()

	negotiated, r, err := multistream.SelectOneOf(st, []protocol.ID{testEchoProto})
	require.NoError(t, err)
	require.Equal(t, testEchoProto, negotiated)
	st = network.WrapStreamReader(st, r)

	_, err = st.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(st, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
}
