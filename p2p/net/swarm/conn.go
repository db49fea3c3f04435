package swarm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/stephanfeb/p2p-core/core/muxer"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/net/upgrader"
)

// Conn is the Swarm's network.Conn realization: an UpgradedConn plus the
// stream registry, stats, resource scope, and health tracker §4.4/§4.7 add
// on top of the upgrade result.
type Conn struct {
	id         string
	swarm      *Swarm
	up         *upgrader.UpgradedConn
	remotePeer peer.ID
	stat       network.Stats
	scope      network.ConnManagementScope

	streamsMu sync.Mutex
	streams   map[*Stream]struct{}

	closeOnce sync.Once
	closed    chan struct{}

	health *connHealth
}

var _ network.Conn = (*Conn)(nil)

func newConn(s *Swarm, up *upgrader.UpgradedConn, dir network.Direction) *Conn {
	scope, err := s.resourceManager().OpenConnection(dir, true, up.RemoteAddr)
	if err != nil {
		// The shipped ResourceManager never errors; a real limiter's refusal
		// would be surfaced by the caller before newConn is reached.
		scope, _ = s.resourceManager().OpenConnection(dir, false, up.RemoteAddr)
	}
	scope.SetPeer(up.RemotePeer)

	c := &Conn{
		id:         randConnID(),
		swarm:      s,
		up:         up,
		remotePeer: up.RemotePeer,
		stat:       network.Stats{Direction: dir, Opened: time.Now()},
		scope:      scope,
		streams:    make(map[*Stream]struct{}),
		closed:     make(chan struct{}),
	}
	c.health = newConnHealth(c)
	return c
}

func randConnID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (c *Conn) ID() string                    { return c.id }
func (c *Conn) Stat() network.Stats           { return c.stat }
func (c *Conn) ConnState() network.ConnState  { return c.up.State }
func (c *Conn) LocalPeer() peer.ID            { return c.swarm.local }
func (c *Conn) RemotePeer() peer.ID           { return c.remotePeer }
func (c *Conn) LocalMultiaddr() ma.Multiaddr  { return c.up.LocalAddr }
func (c *Conn) RemoteMultiaddr() ma.Multiaddr { return c.up.RemoteAddr }
func (c *Conn) Scope() network.ConnScope      { return c.scope }

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// NewStream opens an outbound multiplexed stream, registering it in this
// conn's stream set (§4.4 new_stream, minus protocol negotiation which is
// the caller's job per the spec).
func (c *Conn) NewStream(ctx context.Context) (network.Stream, error) {
	if c.IsClosed() {
		return nil, network.ErrConnClosed
	}
	ms, err := c.up.Muxed.OpenStream(ctx)
	if err != nil {
		c.health.onConnError()
		return nil, err
	}
	st := newStream(c, ms, network.DirOutbound)
	c.registerStream(st)
	c.health.onStreamOpened()
	return st, nil
}

// GetStreams returns every stream currently open on this connection.
func (c *Conn) GetStreams() []network.Stream {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	out := make([]network.Stream, 0, len(c.streams))
	for st := range c.streams {
		out = append(out, st)
	}
	return out
}

func (c *Conn) registerStream(st *Stream) {
	c.streamsMu.Lock()
	c.streams[st] = struct{}{}
	c.streamsMu.Unlock()
}

func (c *Conn) removeStream(st *Stream) {
	c.streamsMu.Lock()
	delete(c.streams, st)
	c.streamsMu.Unlock()
}

// Close tears the underlying muxed session down and removes the conn from
// the swarm's map. Idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.up.Muxed.Close()
		c.scope.Done()
		go c.swarm.removeConn(c)
	})
	return err
}

// Stream wraps a muxer.MuxedStream with the protocol/direction/scope
// bookkeeping network.Stream requires.
type Stream struct {
	id    string
	conn  *Conn
	muxed muxer.MuxedStream
	dir   network.Direction
	stat  network.Stats
	scope network.StreamManagementScope

	protoMu sync.Mutex
	proto   string
}

var _ network.Stream = (*Stream)(nil)

func newStream(c *Conn, ms muxer.MuxedStream, dir network.Direction) *Stream {
	scope, _ := c.swarm.resourceManager().OpenStream(c.remotePeer, dir)
	return &Stream{
		id:    randConnID(),
		conn:  c,
		muxed: ms,
		dir:   dir,
		stat:  network.Stats{Direction: dir, Opened: time.Now()},
		scope: scope,
	}
}

func (st *Stream) ID() string                   { return st.id }
func (st *Stream) Conn() network.Conn           { return st.conn }
func (st *Stream) Direction() network.Direction { return st.dir }
func (st *Stream) Stat() network.Stats          { return st.stat }
func (st *Stream) Scope() network.StreamScope   { return st.scope }

func (st *Stream) Protocol() protocol.ID {
	st.protoMu.Lock()
	defer st.protoMu.Unlock()
	return protocol.ID(st.proto)
}

func (st *Stream) SetProtocol(id protocol.ID) error {
	st.protoMu.Lock()
	st.proto = string(id)
	st.protoMu.Unlock()
	return st.scope.SetService(string(id))
}

func (st *Stream) Read(p []byte) (int, error) {
	n, err := st.muxed.Read(p)
	if err != nil {
		st.conn.health.onStreamError()
	}
	return n, err
}

func (st *Stream) Write(p []byte) (int, error) {
	n, err := st.muxed.Write(p)
	if err != nil {
		st.conn.health.onStreamError()
	}
	return n, err
}

func (st *Stream) CloseRead() error  { return st.muxed.CloseRead() }
func (st *Stream) CloseWrite() error { return st.muxed.CloseWrite() }

func (st *Stream) Close() error {
	err := st.muxed.Close()
	st.scope.Done()
	st.conn.removeStream(st)
	return err
}

func (st *Stream) Reset() error {
	err := st.muxed.Reset()
	st.scope.Done()
	st.conn.removeStream(st)
	return err
}

func (st *Stream) SetDeadline(t time.Time) error      { return st.muxed.SetDeadline(t) }
func (st *Stream) SetReadDeadline(t time.Time) error  { return st.muxed.SetReadDeadline(t) }
func (st *Stream) SetWriteDeadline(t time.Time) error { return st.muxed.SetWriteDeadline(t) }
