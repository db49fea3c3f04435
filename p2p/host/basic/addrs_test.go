package basichost

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/event"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func mustMA(t *testing.T, s string) ma.Multiaddr {
	t.Helper()
	a, err := ma.NewMultiaddr(s)
	require.NoError(t, err)
	return a
}

func TestDedupAddrsDropsDuplicatesByString(t *testing.T) {
	in := []ma.Multiaddr{
		mustMA(t, "/ip4/1.2.3.4/tcp/4001"),
		mustMA(t, "/ip4/1.2.3.4/tcp/4001"),
		mustMA(t, "/ip4/1.2.3.5/tcp/4001"),
	}
	out := dedupAddrs(in)
	require.Len(t, out, 2)
}

func TestDefaultAddrsFactoryDropsLoopbackAndWildcard(t *testing.T) {
	in := []ma.Multiaddr{
		mustMA(t, "/ip4/127.0.0.1/tcp/4001"),
		mustMA(t, "/ip4/0.0.0.0/tcp/4001"),
		mustMA(t, "/ip4/9.9.9.9/tcp/4001"),
	}
	out := DefaultAddrsFactory(in)
	require.Len(t, out, 1)
	require.True(t, out[0].Equal(mustMA(t, "/ip4/9.9.9.9/tcp/4001")))
}

func TestExpandWildcardPreservesTrailingComponents(t *testing.T) {
	wildcard := mustMA(t, "/ip4/0.0.0.0/tcp/4001")
	out := expandWildcard(wildcard)
	// Without control over the test host's interfaces, we can only assert
	// the invariant that every result keeps the wildcard's non-IP suffix,
	// or that enumeration legitimately found nothing.
	for _, addr := range out {
		port, err := addr.ValueForProtocol(ma.P_TCP)
		require.NoError(t, err)
		require.Equal(t, "4001", port)
	}
}

func TestDiffAddrsReportsAddedAndMaintained(t *testing.T) {
	prev := []ma.Multiaddr{mustMA(t, "/ip4/1.2.3.4/tcp/4001")}
	cur := []ma.Multiaddr{
		mustMA(t, "/ip4/1.2.3.4/tcp/4001"),
		mustMA(t, "/ip4/5.6.7.8/tcp/4001"),
	}
	diffs, changed := diffAddrs(prev, cur)
	require.True(t, changed)
	require.Len(t, diffs, 2)

	byAddr := make(map[string]event.AddrAction, len(diffs))
	for _, d := range diffs {
		byAddr[d.Address.String()] = d.Action
	}
	require.Equal(t, event.AddrMaintained, byAddr["/ip4/1.2.3.4/tcp/4001"])
	require.Equal(t, event.AddrAdded, byAddr["/ip4/5.6.7.8/tcp/4001"])
}

func TestDiffAddrsNoChangeWhenSetIsIdentical(t *testing.T) {
	addrs := []ma.Multiaddr{mustMA(t, "/ip4/1.2.3.4/tcp/4001")}
	_, changed := diffAddrs(addrs, addrs)
	require.False(t, changed)
}

func TestDiffAddrsDetectsRemoval(t *testing.T) {
	prev := []ma.Multiaddr{
		mustMA(t, "/ip4/1.2.3.4/tcp/4001"),
		mustMA(t, "/ip4/5.6.7.8/tcp/4001"),
	}
	cur := []ma.Multiaddr{mustMA(t, "/ip4/1.2.3.4/tcp/4001")}
	_, changed := diffAddrs(prev, cur)
	require.True(t, changed)
}
