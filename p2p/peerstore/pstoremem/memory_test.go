package pstoremem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func testPeer(t *testing.T) peer.ID {
	t.Helper()
	_, pk, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pk)
	require.NoError(t, err)
	return id
}

func TestAddrBookExpiry(t *testing.T) {
	ps := NewPeerstore()
	p := testPeer(t)
	addr, err := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)

	ps.AddAddr(p, addr, time.Millisecond)
	require.Len(t, ps.Addrs(p), 1)

	time.Sleep(5 * time.Millisecond)
	require.Empty(t, ps.Addrs(p))
}

func TestSetAddrsReplacesTTL(t *testing.T) {
	ps := NewPeerstore()
	p := testPeer(t)
	addr, err := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)

	ps.AddAddr(p, addr, time.Hour)
	ps.SetAddrs(p, []ma.Multiaddr{addr}, 0)
	require.Empty(t, ps.Addrs(p))
}

func TestProtoBookSupports(t *testing.T) {
	ps := NewPeerstore()
	p := testPeer(t)
	require.NoError(t, ps.AddProtocols(p, "/test/1.0.0", "/test/2.0.0"))

	supported, err := ps.SupportsProtocols(p, "/test/1.0.0", "/other/1.0.0")
	require.NoError(t, err)
	require.Equal(t, []string{"/test/1.0.0"}, toStrings(supported))
}

func toStrings(ids []protocol.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func TestMetadataGetPutRoundTrip(t *testing.T) {
	ps := NewPeerstore()
	p := testPeer(t)

	_, err := ps.Get(p, "AgentVersion")
	require.ErrorIs(t, err, peerstore.ErrNotFound)

	require.NoError(t, ps.Put(p, "AgentVersion", "test/0.1"))
	v, err := ps.Get(p, "AgentVersion")
	require.NoError(t, err)
	require.Equal(t, "test/0.1", v)
}

func TestPeersAggregatesAcrossBooks(t *testing.T) {
	ps := NewPeerstore()
	p1 := testPeer(t)

	addr, err := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	require.NoError(t, err)
	ps.AddAddr(p1, addr, time.Hour)

	sk, pk, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	p2, err := peer.IDFromPublicKey(pk)
	require.NoError(t, err)
	require.NoError(t, ps.AddPubKey(p2, pk))
	require.NoError(t, ps.AddPrivKey(p2, sk))

	peers := ps.Peers()
	require.ElementsMatch(t, []peer.ID{p1, p2}, peers)
}
