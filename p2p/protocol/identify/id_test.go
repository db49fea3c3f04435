package identify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func TestDiffProtocolsReportsAddedAndRemoved(t *testing.T) {
	existing := []protocol.ID{"/a/1.0.0", "/b/1.0.0"}
	received := []protocol.ID{"/b/1.0.0", "/c/1.0.0"}
	added, removed := diffProtocols(existing, received)
	require.ElementsMatch(t, []protocol.ID{"/c/1.0.0"}, added)
	require.ElementsMatch(t, []protocol.ID{"/a/1.0.0"}, removed)
}

func TestFilterAddrsByRemoteClassLoopbackKeepsAll(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustMA(t, "/ip4/127.0.0.1/tcp/4001"),
		mustMA(t, "/ip4/8.8.8.8/tcp/4001"),
	}
	remote := mustMA(t, "/ip4/127.0.0.1/tcp/9999")
	out := filterAddrsByRemoteClass(addrs, remote)
	require.Len(t, out, 2)
}

func TestFilterAddrsByRemoteClassPublicKeepsOnlyPublic(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustMA(t, "/ip4/127.0.0.1/tcp/4001"),
		mustMA(t, "/ip4/192.168.1.1/tcp/4001"),
		mustMA(t, "/ip4/8.8.8.8/tcp/4001"),
	}
	remote := mustMA(t, "/ip4/9.9.9.9/tcp/9999")
	out := filterAddrsByRemoteClass(addrs, remote)
	require.Len(t, out, 1)
	require.True(t, out[0].Equal(mustMA(t, "/ip4/8.8.8.8/tcp/4001")))
}

func TestFilterAddrsByRemoteClassPrivateDropsLoopback(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustMA(t, "/ip4/127.0.0.1/tcp/4001"),
		mustMA(t, "/ip4/192.168.1.1/tcp/4001"),
	}
	remote := mustMA(t, "/ip4/192.168.1.2/tcp/9999")
	out := filterAddrsByRemoteClass(addrs, remote)
	require.Len(t, out, 1)
	require.True(t, out[0].Equal(mustMA(t, "/ip4/192.168.1.1/tcp/4001")))
}

func TestNeedsChunkingBoundaryAt4096Bytes(t *testing.T) {
	under := make([]byte, chunkThreshold)
	require.False(t, needsChunking(under, []byte("signed")))

	over := make([]byte, chunkThreshold+1)
	require.True(t, needsChunking(over, []byte("signed")))
}

func TestNeedsChunkingFalseWithoutSignedRecord(t *testing.T) {
	over := make([]byte, chunkThreshold+1)
	require.False(t, needsChunking(over, nil))
}

func TestTTLForConnectedness(t *testing.T) {
	require.Equal(t, ttlForConnectedness(network.Connected), ttlForConnectedness(network.Connected))
	require.NotEqual(t, ttlForConnectedness(network.Connected), ttlForConnectedness(network.NotConnected))
}
