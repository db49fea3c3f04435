// Package host defines the top-level Host capability (§4.6): the
// composition surface applications program against.
package host

import (
	"context"
	"io"

	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// StreamMatch is a predicate-based protocol match, used by SetStreamHandlerMatch.
type StreamMatch func(protocol.ID) bool

// Host is the orchestrator: it owns the Swarm, identify, the event bus, and
// the protocol router, and exposes connect/new_stream/set_stream_handler/addrs (§4.6).
type Host interface {
	ID() peer.ID
	Peerstore() peerstore.Peerstore
	Addrs() []ma.Multiaddr
	Network() network.Network
	Mux() protocol.Switch
	EventBus() event.Bus

	Connect(ctx context.Context, pi peer.AddrInfo) error

	SetStreamHandler(pid protocol.ID, handler network.StreamHandler)
	SetStreamHandlerMatch(pid protocol.ID, match StreamMatch, handler network.StreamHandler)
	RemoveStreamHandler(pid protocol.ID)

	NewStream(ctx context.Context, p peer.ID, pids ...protocol.ID) (network.Stream, error)

	io.Closer
}
