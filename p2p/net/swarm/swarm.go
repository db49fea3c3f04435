// Package swarm implements the Swarm (§4.4): the dial/listen/conn-map
// coordinator the Host composes into a network.Network. It owns the set of
// transports, the active listeners, the per-peer connection map, the
// notifiee list, and the inbound protocol-handler table.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
	"github.com/stephanfeb/p2p-core/core/transport"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/host/resourcemanager"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
	"github.com/stephanfeb/p2p-core/p2p/net/upgrader"
)

var log = logging.Logger("swarm")

// ErrSwarmClosed is returned by any operation attempted after Close.
var ErrSwarmClosed = errors.New("swarm: closed")

// Swarm is the connection muxer described by §4.4. Lock order, where more
// than one mutex is held: closedMu -> connsMu -> notifeesMu -> transportsMu.
type Swarm struct {
	ctx       context.Context
	cancel    context.CancelFunc
	local     peer.ID
	peerstore peerstore.Peerstore
	upgrader  *upgrader.Upgrader

	transportsMu sync.RWMutex
	transports   []transport.Transport

	listenersMu sync.Mutex
	listeners   []transport.Listener

	connsMu sync.Mutex
	conns   map[peer.ID][]*Conn

	notifeesMu sync.RWMutex
	notifees   map[network.Notifiee]struct{}

	handlersMu sync.RWMutex
	handlers   []registeredHandler

	dialSync *dialSync
	rcmgr    network.ResourceManager

	closedMu sync.Mutex
	closed   bool

	wg sync.WaitGroup
}

// Option configures a Swarm at construction time.
type Option func(*Swarm)

// WithResourceManager overrides the default NullResourceManager.
func WithResourceManager(rm network.ResourceManager) Option {
	return func(s *Swarm) { s.rcmgr = rm }
}

func (s *Swarm) resourceManager() network.ResourceManager { return s.rcmgr }

type registeredHandler struct {
	id      protocol.ID
	match   func(protocol.ID) bool
	handler network.StreamHandler
}

var _ network.Network = (*Swarm)(nil)
var _ protocol.Switch = (*Swarm)(nil)

// New builds a Swarm for the given local identity, backed by the supplied
// peerstore, transports, and upgrader (§4.4).
func New(local peer.ID, ps peerstore.Peerstore, up *upgrader.Upgrader, transports []transport.Transport, opts ...Option) *Swarm {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		ctx:        ctx,
		cancel:     cancel,
		local:      local,
		peerstore:  ps,
		upgrader:   up,
		transports: append([]transport.Transport(nil), transports...),
		conns:      make(map[peer.ID][]*Conn),
		notifees:   make(map[network.Notifiee]struct{}),
		rcmgr:      resourcemanager.NewNullResourceManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dialSync = newDialSync(s.dialPeerLocked)
	return s
}

// AddTransport registers an additional transport (e.g. for a second
// listen protocol) after construction.
func (s *Swarm) AddTransport(t transport.Transport) {
	s.transportsMu.Lock()
	s.transports = append(s.transports, t)
	s.transportsMu.Unlock()
}

func (s *Swarm) transportFor(addr ma.Multiaddr, forListen bool) transport.Transport {
	s.transportsMu.RLock()
	defer s.transportsMu.RUnlock()
	for _, t := range s.transports {
		if forListen && t.CanListen(addr) {
			return t
		}
		if !forListen && t.CanDial(addr) {
			return t
		}
	}
	return nil
}

// Listen binds a listener for each dialable address, skipping (and logging)
// any address no registered transport can listen on (§4.4 listen).
func (s *Swarm) Listen(addrs ...ma.Multiaddr) error {
	for _, addr := range addrs {
		t := s.transportFor(addr, true)
		if t == nil {
			log.Warnw("no transport can listen on address, skipping", "addr", addr)
			continue
		}
		ln, err := t.Listen(addr)
		if err != nil {
			log.Warnw("listen failed, skipping", "addr", addr, "error", err)
			continue
		}
		s.listenersMu.Lock()
		s.listeners = append(s.listeners, ln)
		s.listenersMu.Unlock()

		s.notifyAll(func(n network.Notifiee) { n.Listen(s, ln.Multiaddr()) })

		s.wg.Add(1)
		go s.acceptLoop(ln)
	}
	return nil
}

// ListenAddresses returns the bound address of every active listener.
func (s *Swarm) ListenAddresses() []ma.Multiaddr {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	out := make([]ma.Multiaddr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		out = append(out, ln.Multiaddr())
	}
	return out
}

// InterfaceListenAddresses expands any wildcard listen address against the
// host's network interfaces; with only TCP in scope and no wildcard
// resolution library wired, it degrades to returning the bound addresses
// verbatim (callers needing wildcard expansion use host.Addrs' fuller logic).
func (s *Swarm) InterfaceListenAddresses() ([]ma.Multiaddr, error) {
	return s.ListenAddresses(), nil
}

// LocalPeer returns the identity this Swarm dials and listens as.
func (s *Swarm) LocalPeer() peer.ID { return s.local }

// SetStreamHandler installs the default (catch-all) protocol handler.
func (s *Swarm) SetStreamHandler(handler network.StreamHandler) {
	s.SetStreamHandlerMatch("", func(protocol.ID) bool { return true }, handler)
}

// SetStreamHandlerMatch installs handler for every negotiated protocol id
// matching match, tried in registration order (matches multistream.Negotiate's contract).
func (s *Swarm) SetStreamHandlerMatch(id protocol.ID, match func(protocol.ID) bool, handler network.StreamHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, registeredHandler{id: id, match: match, handler: handler})
}

// RemoveStreamHandler drops every handler registered for the exact id.
func (s *Swarm) RemoveStreamHandler(id protocol.ID) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	kept := s.handlers[:0]
	for _, h := range s.handlers {
		if h.id != id {
			kept = append(kept, h)
		}
	}
	s.handlers = kept
}

func (s *Swarm) negotiateHandlers() []multistream.Handler {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]multistream.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		match := h.match
		out = append(out, multistream.Handler{Match: match, ID: h.id})
	}
	return out
}

func (s *Swarm) handlerFor(id protocol.ID) network.StreamHandler {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	for _, h := range s.handlers {
		if h.match(id) {
			return h.handler
		}
	}
	return nil
}

// Protocols lists every exact (non-empty) protocol ID currently registered,
// in registration order; this is the read side the Host's protocol.Switch
// (Mux()) exposes to the identify snapshot engine (§4.5 "protocols").
func (s *Swarm) Protocols() []protocol.ID {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]protocol.ID, 0, len(s.handlers))
	for _, h := range s.handlers {
		if h.id != "" {
			out = append(out, h.id)
		}
	}
	return out
}

// SetConnHandler is accepted for interface parity with the teacher's split
// conn/stream handler API; this module dispatches new conns only through
// Notify(Connected), so a dedicated conn handler has no distinct role here.
func (s *Swarm) SetConnHandler(func(network.Conn)) {}

// Notify registers f to receive Listen/ListenClose/Connected/Disconnected events.
func (s *Swarm) Notify(f network.Notifiee) {
	s.notifeesMu.Lock()
	s.notifees[f] = struct{}{}
	s.notifeesMu.Unlock()
}

// StopNotify unregisters f.
func (s *Swarm) StopNotify(f network.Notifiee) {
	s.notifeesMu.Lock()
	delete(s.notifees, f)
	s.notifeesMu.Unlock()
}

func (s *Swarm) notifyAll(notify func(network.Notifiee)) {
	s.notifeesMu.RLock()
	fs := make([]network.Notifiee, 0, len(s.notifees))
	for f := range s.notifees {
		fs = append(fs, f)
	}
	s.notifeesMu.RUnlock()
	for _, f := range fs {
		notify(f)
	}
}

// Peers returns the set of peers with at least one live connection.
func (s *Swarm) Peers() []peer.ID {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	out := make([]peer.ID, 0, len(s.conns))
	for p, cs := range s.conns {
		if len(cs) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Conns returns every live connection across all peers.
func (s *Swarm) Conns() []network.Conn {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	var out []network.Conn
	for _, cs := range s.conns {
		for _, c := range cs {
			out = append(out, c)
		}
	}
	return out
}

// ConnsToPeer returns the live connections to a single peer.
func (s *Swarm) ConnsToPeer(p peer.ID) []network.Conn {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	cs := s.conns[p]
	out := make([]network.Conn, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

// Connectedness reports the coarse reachability of p (§4.4).
func (s *Swarm) Connectedness(p peer.ID) network.Connectedness {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for _, c := range s.conns[p] {
		if !c.IsClosed() {
			return network.Connected
		}
	}
	return network.NotConnected
}

// ClosePeer removes and closes every connection to p.
func (s *Swarm) ClosePeer(p peer.ID) error {
	s.connsMu.Lock()
	cs := s.conns[p]
	delete(s.conns, p)
	s.connsMu.Unlock()

	for _, c := range cs {
		c.Close()
	}
	return nil
}

func (s *Swarm) addConn(c *Conn) {
	s.connsMu.Lock()
	s.conns[c.remotePeer] = append(s.conns[c.remotePeer], c)
	s.connsMu.Unlock()

	s.notifyAll(func(n network.Notifiee) { n.Connected(s, c) })

	s.wg.Add(1)
	go s.acceptStreamLoop(c)
}

// removeConn drops c from the map; called once the connection has
// transitioned to failed (health.go) or been explicitly closed.
func (s *Swarm) removeConn(c *Conn) {
	s.connsMu.Lock()
	cs := s.conns[c.remotePeer]
	for i, existing := range cs {
		if existing == c {
			cs = append(cs[:i], cs[i+1:]...)
			break
		}
	}
	if len(cs) == 0 {
		delete(s.conns, c.remotePeer)
	} else {
		s.conns[c.remotePeer] = cs
	}
	s.connsMu.Unlock()

	s.notifyAll(func(n network.Notifiee) { n.Disconnected(s, c) })
}

// NewStream dials p if needed and opens a bare muxed stream; protocol
// negotiation is left to the caller (§4.4 new_stream).
func (s *Swarm) NewStream(ctx context.Context, p peer.ID) (network.Stream, error) {
	c, err := s.DialPeer(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.NewStream(ctx)
}

// DialPeer implements §4.4's dial_peer contract: self-dial rejection,
// healthy-connection reuse, address lookup/filter/rank, and a
// Happy-Eyeballs race across the ranked candidates.
func (s *Swarm) DialPeer(ctx context.Context, p peer.ID) (network.Conn, error) {
	if p == s.local {
		return nil, network.ErrSelfDial
	}
	if s.isClosed() {
		return nil, ErrSwarmClosed
	}
	if c := s.bestHealthyConn(ctx, p); c != nil {
		return c, nil
	}
	return s.dialSync.dial(ctx, p)
}

func (s *Swarm) bestHealthyConn(ctx context.Context, p peer.ID) *Conn {
	s.connsMu.Lock()
	cs := append([]*Conn(nil), s.conns[p]...)
	s.connsMu.Unlock()

	var stale []*Conn
	var best *Conn
	for _, c := range cs {
		if c.IsClosed() {
			stale = append(stale, c)
			continue
		}
		if c.health.isHealthy(ctx) {
			best = c
			break
		}
	}
	for _, c := range stale {
		go s.removeConn(c)
	}
	return best
}

// dialPeerLocked is the single-flight body dialSync serializes per peer: it
// performs the address lookup, ranking, and Happy-Eyeballs race.
func (s *Swarm) dialPeerLocked(ctx context.Context, p peer.ID) (*Conn, error) {
	addrs := s.peerstore.Addrs(p)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", network.ErrNoAddresses, p)
	}

	candidates := rankAddrs(filterDialable(addrs, s.local, determineOutboundCapability()))
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", network.ErrNoGoodAddresses, p)
	}

	raw, err := happyEyeballsDial(ctx, s, p, candidates)
	if err != nil {
		return nil, err
	}

	up, err := s.upgrader.UpgradeOutbound(ctx, raw, p)
	if err != nil {
		raw.Close()
		return nil, err
	}

	c := newConn(s, up, network.DirOutbound)
	s.addConn(c)
	return c, nil
}

func (s *Swarm) isClosed() bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return s.closed
}

// Close shuts the Swarm down: stop accepting, close every listener, close
// every connection. Idempotent (§5 shutdown order).
func (s *Swarm) Close() error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	s.closedMu.Unlock()

	s.cancel()

	s.listenersMu.Lock()
	listeners := s.listeners
	s.listeners = nil
	s.listenersMu.Unlock()
	for _, ln := range listeners {
		ln.Close()
		s.notifyAll(func(n network.Notifiee) { n.ListenClose(s, ln.Multiaddr()) })
	}

	s.connsMu.Lock()
	var all []*Conn
	for _, cs := range s.conns {
		all = append(all, cs...)
	}
	s.conns = make(map[peer.ID][]*Conn)
	s.connsMu.Unlock()
	for _, c := range all {
		c.Close()
	}

	s.wg.Wait()
	return nil
}
