// Package sec defines the capability a security transport (Noise XX here)
// must provide the connection upgrader: mutually authenticate a raw
// connection and hand back a framed, encrypted net.Conn plus the verified
// remote peer identity.
package sec

import (
	"context"
	"io"
	"net"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
)

// SecureConn is a net.Conn augmented with the identity/state the handshake produced.
type SecureConn interface {
	net.Conn
	LocalPeer() peer.ID
	RemotePeer() peer.ID
	RemotePublicKey() crypto.PubKey
	ConnState() network.ConnState
}

// SecureTransport upgrades a raw net.Conn to a SecureConn. expectedRemote is
// empty for inbound connections (the remote identity isn't known yet).
type SecureTransport interface {
	SecureInbound(ctx context.Context, insecure net.Conn) (SecureConn, error)
	SecureOutbound(ctx context.Context, insecure net.Conn, expectedRemote peer.ID) (SecureConn, error)
}

// rebufferedConn overrides Read to pull from r first; see
// network.WrapStreamReader for why this matters after a multistream
// negotiation run directly on a SecureConn.
type rebufferedConn struct {
	SecureConn
	r io.Reader
}

func (c *rebufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

// WrapConnReader returns c with its Read calls routed through r instead of
// c's own Read.
func WrapConnReader(c SecureConn, r io.Reader) SecureConn {
	return &rebufferedConn{SecureConn: c, r: r}
}
