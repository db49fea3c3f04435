// Package network defines the Conn/Stream/Notifiee contracts the swarm
// implements and the rest of the core consumes, per §3 and §4.4 of the spec.
package network

import (
	"context"
	"io"
	"time"

	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// Direction records which side of a Conn or Stream initiated it.
type Direction int

const (
	DirUnknown Direction = iota
	DirInbound
	DirOutbound
)

func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// Connectedness is the coarse reachability state Swarm.Connectedness reports.
type Connectedness int

const (
	NotConnected Connectedness = iota
	Connected
	CanConnect
	CannotConnect
	Limited
)

// ConnState captures the negotiated security/muxer/transport of a Conn,
// set once at upgrade completion (§3).
type ConnState struct {
	Security                 string
	Muxer                    string
	Transport                string
	UsedEarlyMuxerNegotiation bool
}

// Stream is a single multiplexed lane inside a Conn.
type Stream interface {
	ID() string
	Protocol() protocol.ID
	SetProtocol(protocol.ID) error
	Conn() Conn
	Direction() Direction
	Stat() Stats

	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	CloseRead() error
	CloseWrite() error
	Close() error
	Reset() error

	SetDeadline(time.Time) error
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error

	Scope() StreamScope
}

// Stats records when and in which direction a Conn or Stream was established.
type Stats struct {
	Direction Direction
	Opened    time.Time
}

// Conn represents one established, authenticated, multiplexed connection (§3).
type Conn interface {
	ID() string
	Close() error
	IsClosed() bool

	NewStream(ctx context.Context) (Stream, error)
	GetStreams() []Stream

	Stat() Stats
	ConnState() ConnState

	LocalPeer() peer.ID
	RemotePeer() peer.ID
	LocalMultiaddr() ma.Multiaddr
	RemoteMultiaddr() ma.Multiaddr

	Scope() ConnScope
}

// StreamHandler is invoked with a freshly negotiated inbound stream.
type StreamHandler func(Stream)

// rebufferedStream overrides Read to pull from r first, so bytes a protocol
// negotiator buffered past the line it was looking for (e.g. a bufio.Reader
// that over-read into application data on a coalesced transport read)
// aren't lost to the rest of the stream's lifetime.
type rebufferedStream struct {
	Stream
	r io.Reader
}

func (s *rebufferedStream) Read(p []byte) (int, error) { return s.r.Read(p) }

// WrapStreamReader returns s with its Read calls routed through r instead of
// s's own Read. Used after multistream negotiation to hand callers a stream
// that still sees every byte the peer wrote, including whatever the
// negotiator's buffered reader already pulled off the wire.
func WrapStreamReader(s Stream, r io.Reader) Stream {
	return &rebufferedStream{Stream: s, r: r}
}

// Notifiee receives lifecycle events from a Network. Dispatch order and
// happens-before guarantees are specified in §5.
type Notifiee interface {
	Listen(Network, ma.Multiaddr)
	ListenClose(Network, ma.Multiaddr)
	Connected(Network, Conn)
	Disconnected(Network, Conn)
}

// NoopNotifiee can be embedded to satisfy Notifiee without implementing
// every method, matching the teacher's convention for partial notifiees.
type NoopNotifiee struct{}

func (NoopNotifiee) Listen(Network, ma.Multiaddr)      {}
func (NoopNotifiee) ListenClose(Network, ma.Multiaddr) {}
func (NoopNotifiee) Connected(Network, Conn)           {}
func (NoopNotifiee) Disconnected(Network, Conn)        {}

// Network is the capability surface the Host composes: dial, listen,
// the per-peer connection map, and notifiee dispatch.
type Network interface {
	DialPeer(ctx context.Context, p peer.ID) (Conn, error)
	ClosePeer(p peer.ID) error
	Connectedness(p peer.ID) Connectedness
	Peers() []peer.ID
	ConnsToPeer(p peer.ID) []Conn
	Conns() []Conn

	NewStream(ctx context.Context, p peer.ID) (Stream, error)

	Listen(...ma.Multiaddr) error
	ListenAddresses() []ma.Multiaddr
	InterfaceListenAddresses() ([]ma.Multiaddr, error)

	SetStreamHandler(StreamHandler)
	SetConnHandler(func(Conn))

	Notify(Notifiee)
	StopNotify(Notifiee)

	LocalPeer() peer.ID

	Close() error
}
