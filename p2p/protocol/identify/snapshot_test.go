package identify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func TestSortProtocolsIsLexicographic(t *testing.T) {
	in := []protocol.ID{"/z/1.0.0", "/a/1.0.0", "/m/1.0.0"}
	out := sortProtocols(in)
	require.Equal(t, []protocol.ID{"/a/1.0.0", "/m/1.0.0", "/z/1.0.0"}, out)
}

func TestAddrPriorityScorePublicBeatsPrivateBeatsLoopback(t *testing.T) {
	pub := addrPriorityScore(mustMA(t, "/ip4/8.8.8.8/tcp/4001"))
	priv := addrPriorityScore(mustMA(t, "/ip4/192.168.1.1/tcp/4001"))
	loop := addrPriorityScore(mustMA(t, "/ip4/127.0.0.1/tcp/4001"))
	require.Greater(t, pub, priv)
	require.Greater(t, priv, loop)
}

func TestAddrPriorityScoreP2PSuffixWins(t *testing.T) {
	withSuffix := addrPriorityScore(mustMA(t, "/ip4/127.0.0.1/tcp/4001/p2p/QmPeer"))
	public := addrPriorityScore(mustMA(t, "/ip4/8.8.8.8/tcp/4001"))
	require.Greater(t, withSuffix, public)
}

func TestTrimAddrsToBudgetReturnsLexicographicOrder(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustMA(t, "/ip4/8.8.8.8/tcp/4001"),
		mustMA(t, "/ip4/1.2.3.4/tcp/4001"),
		mustMA(t, "/ip4/9.9.9.9/tcp/4001"),
	}

	out := trimAddrsToBudget(addrs)
	require.Equal(t, sortAddrs(addrs), out, "trimming must not undo sortAddrs's byte-lexicographic order")
}

func TestTrimAddrsToBudgetDropsLowestPriorityFirst(t *testing.T) {
	var addrs []ma.Multiaddr
	for i := 0; i < 500; i++ {
		addrs = append(addrs, mustMA(t, "/ip4/192.168.1.1/tcp/4001"))
	}
	pub := mustMA(t, "/ip4/8.8.8.8/tcp/4001")
	addrs = append(addrs, pub)

	out := trimAddrsToBudget(addrs)
	found := false
	for _, a := range out {
		if a.Equal(pub) {
			found = true
		}
	}
	require.True(t, found, "higher-priority public addr should survive trimming")

	total := 0
	for _, a := range out {
		total += len(a.Bytes())
	}
	require.LessOrEqual(t, total, snapshotAddrBudget)
}
