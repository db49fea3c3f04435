package network

import (
	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// ReservationPriority influences whether a scope grants a reservation under
// memory pressure. Only ReservationPriorityAlways is used by this module's
// protocols today (identify's fixed-size read buffer).
type ReservationPriority uint8

const (
	ReservationPriorityLow ReservationPriority = iota
	ReservationPriorityDefault
	ReservationPriorityAlways ReservationPriority = 255
)

// ResourceScope is the accounting unit the spec's §3/§9 describe as a tree
// rooted at the resource manager (system -> service -> peer -> conn -> stream).
// The core treats it as an external collaborator (§1); p2p/host/resourcemanager
// ships a permissive no-op realization so every call site here has something
// concrete to drive end to end.
type ResourceScope interface {
	ReserveMemory(size int, prio ReservationPriority) error
	ReleaseMemory(size int)
	// Done is idempotent: calling it more than once must not double-release.
	Done()
}

// ServiceScope additionally allows tagging a conn/stream scope with the
// named service that owns it (e.g. "libp2p.identify"), for accounting.
type ServiceScope interface {
	ResourceScope
	SetService(name string) error
}

// ConnScope is the per-connection resource scope.
type ConnScope interface {
	ResourceScope
}

// StreamScope is the per-stream resource scope.
type StreamScope interface {
	ServiceScope
}

// ResourceManager is the root of the scope tree (system -> service -> peer ->
// conn -> stream). The swarm opens a ConnScope before completing an upgrade
// and a StreamScope before handing a stream to a protocol handler; both must
// be closed exactly once via Done(). p2p/host/resourcemanager ships the one
// concrete realization this module carries (a permissive no-op), per §4.9.
type ResourceManager interface {
	OpenConnection(dir Direction, usefd bool, remote ma.Multiaddr) (ConnManagementScope, error)
	OpenStream(p peer.ID, dir Direction) (StreamManagementScope, error)

	ViewSystem(func(ResourceScope) error) error
	ViewPeer(p peer.ID, f func(ResourceScope) error) error

	Close() error
}

// ConnManagementScope is the scope returned to the swarm for a single conn,
// letting it attach the peer once identified (PeerScope is set post-handshake,
// mirroring §4.3's security-upgrade-then-identify ordering).
type ConnManagementScope interface {
	ConnScope
	SetPeer(peer.ID) error
}

// StreamManagementScope is the scope returned to the swarm for a single
// stream, letting it attach the peer once known. It has no method for
// recording the negotiated protocol.
type StreamManagementScope interface {
	StreamScope
	SetPeer(peer.ID) error
}
