// Package tcp implements the one concrete transport.Transport this module
// keeps in scope (SPEC_FULL §4.10): a thin adapter over net.Dial/net.Listen,
// dialing and listening through go-reuseport. Dials do not bind the local
// side to a listen port, so outbound connections use an ephemeral source
// port. CanDial/CanListen are a structural check only (does addr parse
// as a TCP multiaddr); this transport does no route-table or interface
// enumeration.
package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/libp2p/go-reuseport"

	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/transport"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// Transport is the TCP transport.Transport implementation.
type Transport struct{}

var _ transport.Transport = (*Transport)(nil)

// New builds a TCP transport.
func New() *Transport { return &Transport{} }

// Protocols reports the address-component codes this transport recognizes.
func (t *Transport) Protocols() []int { return []int{ma.P_TCP} }

// CanDial reports whether addr is a /ip4|ip6/.../tcp/... address.
func (t *Transport) CanDial(addr ma.Multiaddr) bool {
	_, err := ma.ToTCPAddr(addr)
	return err == nil
}

// CanListen is the same structural check as CanDial for this transport.
func (t *Transport) CanListen(addr ma.Multiaddr) bool { return t.CanDial(addr) }

// Dial opens a TCP connection to addr through go-reuseport's dialer. No local
// address is set, so the connection uses an ephemeral source port rather than
// a listen port.
func (t *Transport) Dial(ctx context.Context, addr ma.Multiaddr, p peer.ID) (transport.CapableConn, error) {
	tcpAddr, err := ma.ToTCPAddr(addr)
	if err != nil {
		return nil, err
	}
	d := reuseport.Dialer{D: net.Dialer{}}
	conn, err := d.DialContext(ctx, "tcp", tcpAddr.String())
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	return newCapableConn(conn)
}

// Listen binds addr and returns a Listener that reports the actual bound
// address, which may differ from the request (e.g. port 0), per §4.4 "listen".
func (t *Transport) Listen(addr ma.Multiaddr) (transport.Listener, error) {
	tcpAddr, err := ma.ToTCPAddr(addr)
	if err != nil {
		return nil, err
	}
	ln, err := reuseport.Listen("tcp", tcpAddr.String())
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", addr, err)
	}
	boundAddr, err := ma.FromNetAddr(ln.Addr())
	if err != nil {
		ln.Close()
		return nil, err
	}
	return &listener{ln: ln, addr: boundAddr}, nil
}

type listener struct {
	ln   net.Listener
	addr ma.Multiaddr
}

func (l *listener) Accept() (transport.CapableConn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newCapableConn(conn)
}

func (l *listener) Close() error            { return l.ln.Close() }
func (l *listener) Multiaddr() ma.Multiaddr { return l.addr }

// capableConn adapts a net.Conn to transport.CapableConn, reporting its
// endpoints as multiaddrs.
type capableConn struct {
	net.Conn
	local, remote ma.Multiaddr
}

func newCapableConn(conn net.Conn) (*capableConn, error) {
	local, err := ma.FromNetAddr(conn.LocalAddr())
	if err != nil {
		conn.Close()
		return nil, err
	}
	remote, err := ma.FromNetAddr(conn.RemoteAddr())
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &capableConn{Conn: conn, local: local, remote: remote}, nil
}

func (c *capableConn) LocalMultiaddr() ma.Multiaddr  { return c.local }
func (c *capableConn) RemoteMultiaddr() ma.Multiaddr { return c.remote }
