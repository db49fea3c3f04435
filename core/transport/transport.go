// Package transport defines the Transport capability (§1): the external
// collaborator that dials and listens for raw, framed, bidirectional byte
// streams. Concrete transports (TCP here; QUIC/WebSocket/etc. are out of
// scope) implement this interface; the core only ever consumes it.
package transport

import (
	"context"
	"net"

	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// CapableConn is the RawConn capability from §1: a framed bidirectional byte
// stream the upgrader secures and multiplexes. It embeds net.Conn since every
// transport in this module is stream-oriented (no datagram transports are in scope).
type CapableConn interface {
	net.Conn
	LocalMultiaddr() ma.Multiaddr
	RemoteMultiaddr() ma.Multiaddr
}

// Listener accepts inbound CapableConns on a bound local address.
type Listener interface {
	Accept() (CapableConn, error)
	Close() error
	Multiaddr() ma.Multiaddr
}

// Transport is the dial/listen capability the Swarm consumes, keyed by the
// address protocols it knows how to speak (e.g. /ip4/.../tcp/...).
type Transport interface {
	CanDial(addr ma.Multiaddr) bool
	CanListen(addr ma.Multiaddr) bool
	Dial(ctx context.Context, addr ma.Multiaddr, p peer.ID) (CapableConn, error)
	Listen(addr ma.Multiaddr) (Listener, error)
	Protocols() []int
}
