package swarm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func mustAddr(t *testing.T, s string) ma.Multiaddr {
	t.Helper()
	a, err := ma.NewMultiaddr(s)
	require.NoError(t, err)
	return a
}

func TestFilterDialableDropsLinkLocalAndWildcard(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip4/169.254.1.1/tcp/4001"),
		mustAddr(t, "/ip4/0.0.0.0/tcp/4001"),
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001"),
	}
	out := filterDialable(addrs, peer.ID("local"), capDualStack)
	require.Len(t, out, 1)
	require.Equal(t, "/ip4/1.2.3.4/tcp/4001", out[0].String())
}

func TestFilterDialableDropsBareAndSelfHopCircuit(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/p2p-circuit"),
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001/p2p/local/p2p-circuit"),
	}
	out := filterDialable(addrs, peer.ID("local"), capDualStack)
	require.Empty(t, out)
}

func TestFilterDialableDedupesIPv6Prefix64(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip6/2001:db8::1/tcp/4001"),
		mustAddr(t, "/ip6/2001:db8::2/tcp/4001"),
	}
	out := filterDialable(addrs, peer.ID("local"), capDualStack)
	require.Len(t, out, 1)
}

func TestRankAddrsOrdersPublicIPv6BeforeIPv4BeforePrivate(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip4/192.168.1.1/tcp/4001"),
		mustAddr(t, "/ip4/8.8.8.8/tcp/4001"),
		mustAddr(t, "/ip6/2607:f8b0::1/tcp/4001"),
	}
	ranked := rankAddrs(addrs)
	require.Len(t, ranked, 3)
	require.Equal(t, "/ip6/2607:f8b0::1/tcp/4001", ranked[0].addr.String())
	require.Equal(t, "/ip4/8.8.8.8/tcp/4001", ranked[1].addr.String())
	require.Equal(t, "/ip4/192.168.1.1/tcp/4001", ranked[2].addr.String())
}

func TestFilterDialableDropsV6UnderIPv4OnlyCapability(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001"),
		mustAddr(t, "/ip6/2001:db8::1/tcp/4001"),
	}
	out := filterDialable(addrs, peer.ID("local"), capIPv4Only)
	require.Len(t, out, 1)
	require.Equal(t, "/ip4/1.2.3.4/tcp/4001", out[0].String())
}

func TestFilterDialableDropsV4UnderIPv6OnlyCapability(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001"),
		mustAddr(t, "/ip6/2001:db8::1/tcp/4001"),
	}
	out := filterDialable(addrs, peer.ID("local"), capIPv6Only)
	require.Len(t, out, 1)
	require.Equal(t, "/ip6/2001:db8::1/tcp/4001", out[0].String())
}

func TestFilterDialableKeepsOnlyCircuitAddrsUnderRelayOnlyCapability(t *testing.T) {
	addrs := []ma.Multiaddr{
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001"),
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit"),
	}
	out := filterDialable(addrs, peer.ID("local"), capRelayOnly)
	require.Len(t, out, 1)
	require.True(t, out[0].IsRelayCircuit())
}

func TestRankAddrsAssignsRelayTimeout(t *testing.T) {
	ranked := rankAddrs([]ma.Multiaddr{
		mustAddr(t, "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit"),
	})
	require.Len(t, ranked, 1)
	require.Equal(t, relayDialTimeout, ranked[0].timeout)
}
