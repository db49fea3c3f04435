// Package muxer defines the MuxedConn capability (§1): a session that can
// open and accept independently flow-controlled streams over a single
// underlying connection. The concrete multiplexer (Yamux) lives at
// p2p/muxer/yamux and is an external collaborator to the core per §1.
package muxer

import (
	"context"
	"net"
)

// MuxedStream is one substream of a MuxedConn.
type MuxedStream interface {
	net.Conn
	CloseRead() error
	CloseWrite() error
	Reset() error
}

// MuxedConn multiplexes many MuxedStreams over one net.Conn.
type MuxedConn interface {
	Close() error
	IsClosed() bool
	OpenStream(ctx context.Context) (MuxedStream, error)
	AcceptStream() (MuxedStream, error)
}

// Multiplexer instantiates a MuxedConn over an already-secured net.Conn,
// with the given initiator role (some multiplexers, like Yamux, need to
// know which side is the "client" for stream-id parity).
type Multiplexer interface {
	NewConn(c net.Conn, isServer bool) (MuxedConn, error)
}
