// Package yamux adapts github.com/libp2p/go-yamux/v4 to this repo's
// core/muxer.Multiplexer/MuxedConn/MuxedStream contracts. Yamux is one of
// spec.md §1's named external collaborators (the stream multiplexer); this
// package is the thin seam between its real session/stream types and ours.
package yamux

import (
	"context"
	"net"

	goyamux "github.com/libp2p/go-yamux/v4"

	"github.com/stephanfeb/p2p-core/core/muxer"
)

// Transport is the core/muxer.Multiplexer backed by go-yamux.
type Transport struct {
	config *goyamux.Config
}

var _ muxer.Multiplexer = (*Transport)(nil)

// New builds a Yamux multiplexer with go-yamux's defaults.
func New() *Transport {
	return &Transport{config: goyamux.DefaultConfig()}
}

// NewConn opens a Yamux session over c, client-side if isServer is false.
func (t *Transport) NewConn(c net.Conn, isServer bool) (muxer.MuxedConn, error) {
	var (
		sess *goyamux.Session
		err  error
	)
	if isServer {
		sess, err = goyamux.Server(c, t.config, nil)
	} else {
		sess, err = goyamux.Client(c, t.config, nil)
	}
	if err != nil {
		return nil, err
	}
	return &muxedConn{sess: sess}, nil
}

// muxedConn adapts *goyamux.Session to muxer.MuxedConn.
type muxedConn struct {
	sess *goyamux.Session
}

var _ muxer.MuxedConn = (*muxedConn)(nil)

func (c *muxedConn) Close() error    { return c.sess.Close() }
func (c *muxedConn) IsClosed() bool  { return c.sess.IsClosed() }

func (c *muxedConn) OpenStream(ctx context.Context) (muxer.MuxedStream, error) {
	s, err := c.sess.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return &muxedStream{s}, nil
}

func (c *muxedConn) AcceptStream() (muxer.MuxedStream, error) {
	s, err := c.sess.AcceptStream()
	if err != nil {
		return nil, err
	}
	return &muxedStream{s}, nil
}

// muxedStream adapts *goyamux.Stream to muxer.MuxedStream; go-yamux's
// Stream already implements net.Conn plus CloseWrite/Reset, so this is a
// thin rename rather than a reimplementation.
type muxedStream struct {
	*goyamux.Stream
}

var _ muxer.MuxedStream = (*muxedStream)(nil)

func (s *muxedStream) CloseRead() error {
	// go-yamux has no half-close-for-reading primitive distinct from Close;
	// the stream's read side is implicitly done once the peer half-closes
	// or resets, so there is nothing additional to signal here.
	return nil
}
