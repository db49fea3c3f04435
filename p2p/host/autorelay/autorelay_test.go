package autorelay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func TestConsiderCandidateIgnoresPeersWithoutHopProtocol(t *testing.T) {
	m := &Manager{candidates: make(map[string]ma.Multiaddr), updateCh: make(chan struct{}, 1)}
	m.considerCandidate("peerA", []protocol.ID{"/some/other/1.0.0"}, []ma.Multiaddr{mustMA(t, "/ip4/9.9.9.9/tcp/4001")})
	require.Empty(t, m.candidates)
}

func TestConsiderCandidateIgnoresHopPeersWithoutPublicAddr(t *testing.T) {
	m := &Manager{candidates: make(map[string]ma.Multiaddr), updateCh: make(chan struct{}, 1)}
	m.considerCandidate("peerA", []protocol.ID{HopProtocol}, []ma.Multiaddr{mustMA(t, "/ip4/192.168.1.1/tcp/4001")})
	require.Empty(t, m.candidates)
}

func TestConsiderCandidateRecordsHopPeerWithPublicAddr(t *testing.T) {
	m := &Manager{candidates: make(map[string]ma.Multiaddr), updateCh: make(chan struct{}, 1)}
	m.considerCandidate("peerA", []protocol.ID{HopProtocol}, []ma.Multiaddr{mustMA(t, "/ip4/9.9.9.9/tcp/4001")})
	require.Len(t, m.candidates, 1)
	require.Contains(t, m.candidates, "peerA")
}

func TestAddrsEmptyWhenPublic(t *testing.T) {
	m := &Manager{
		candidates: map[string]ma.Multiaddr{"relay1": mustMA(t, "/ip4/9.9.9.9/tcp/4001")},
		public:     true,
	}
	require.Empty(t, m.Addrs())
}

func TestAddrsBuildsCircuitThroughCandidatesWhenNotPublic(t *testing.T) {
	m := &Manager{
		candidates: map[string]ma.Multiaddr{"relay1": mustMA(t, "/ip4/9.9.9.9/tcp/4001")},
		public:     false,
	}
	addrs := m.Addrs()
	require.Len(t, addrs, 1)
	require.True(t, addrs[0].IsRelayCircuit())
	require.Equal(t, "relay1", addrs[0].RelayHop())
}

func TestHandleEventRepublishesOnReachabilityChange(t *testing.T) {
	m := &Manager{candidates: make(map[string]ma.Multiaddr), updateCh: make(chan struct{}, 1)}
	m.handleEvent(event.EvtLocalReachabilityChanged{Reachability: event.ReachabilityPublic})
	require.True(t, m.public)

	select {
	case <-m.Updates():
	case <-time.After(time.Second):
		t.Fatal("expected an update signal after reachability change")
	}
}

func mustMA(t *testing.T, s string) ma.Multiaddr {
	t.Helper()
	a, err := ma.NewMultiaddr(s)
	require.NoError(t, err)
	return a
}
