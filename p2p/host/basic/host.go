// Package basichost implements the Host composition layer (§4.6): the
// orchestrator applications program against, composing a Network, the
// identify service, the event bus, and the address publisher into the
// core/host.Host capability.
package basichost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/host"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/host/autorelay"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
	"github.com/stephanfeb/p2p-core/p2p/protocol/identify"
)

var log = logging.Logger("basichost")

// negotiationTimeout bounds a single new_stream multistream-select round
// (§5 "Negotiation (multistream): 10 s").
const negotiationTimeout = 10 * time.Second

// ErrIdentifyTimeout is returned by Connect/NewStream when the context
// expires while waiting for identify to finish on a fresh connection
// (§4.6 "await identify (propagate identify-timeout as a distinct error kind)").
var ErrIdentifyTimeout = errors.New("basichost: timed out waiting for identify")

// swarmNetwork is the subset of *swarm.Swarm this package depends on beyond
// core/network.Network: exact-protocol registration/removal and the read
// side of the protocol table (core/protocol.Switch, i.e. Mux()).
type swarmNetwork interface {
	network.Network
	protocol.Switch
	SetStreamHandlerMatch(id protocol.ID, match func(protocol.ID) bool, handler network.StreamHandler)
	RemoveStreamHandler(id protocol.ID)
}

// BasicHost is the core/host.Host realization (§4.6).
type BasicHost struct {
	id      peer.ID
	signKey crypto.PrivKey
	ps      peerstore.Peerstore
	bus     event.Bus
	network swarmNetwork
	ids     *identify.IDService

	addrsFactory AddrsFactory
	natmgr       *natManager
	autorelay    *autorelay.Manager
	clock        clock.Clock

	addrsMu   sync.Mutex
	lastAddrs []ma.Multiaddr

	emitters struct {
		localProtocolsUpdated event.Emitter
		localAddrsUpdated     event.Emitter
	}

	ctx      context.Context
	cancel   context.CancelFunc
	refCount sync.WaitGroup
}

// New composes a BasicHost over an already-constructed Swarm. Call Start
// once the host is otherwise fully wired (registers the identify
// notifiee and starts the background loops); Close tears everything down.
func New(sk crypto.PrivKey, ps peerstore.Peerstore, bus event.Bus, sw swarmNetwork, opts ...Option) (*BasicHost, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &BasicHost{
		id:           sw.LocalPeer(),
		signKey:      sk,
		ps:           ps,
		bus:          bus,
		network:      sw,
		addrsFactory: cfg.addrsFactory,
		clock:        cfg.clock,
		ctx:          ctx,
		cancel:       cancel,
	}

	var err error
	if h.emitters.localProtocolsUpdated, err = bus.Emitter(&event.EvtLocalProtocolsUpdated{}); err != nil {
		log.Warnf("basichost not emitting protocol updates: %s", err)
	}
	if h.emitters.localAddrsUpdated, err = bus.Emitter(&event.EvtLocalAddressesUpdated{}); err != nil {
		log.Warnf("basichost not emitting address updates: %s", err)
	}

	ids, err := identify.NewIDService(h)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("basichost: failed to build identify service: %w", err)
	}
	h.ids = ids

	if cfg.enableNAT {
		h.natmgr = newNATManager()
	}
	if cfg.enableRelay {
		if h.autorelay, err = autorelay.NewManager(h); err != nil {
			log.Warnf("basichost not running autorelay: %s", err)
		}
	}

	return h, nil
}

// Start activates identify and the address-monitor loop. Must be called
// once, after New.
func (h *BasicHost) Start() {
	h.ids.Start()
	h.refCount.Add(1)
	go h.addrsMonitorLoop()
}

func (h *BasicHost) ID() peer.ID                    { return h.id }
func (h *BasicHost) Peerstore() peerstore.Peerstore { return h.ps }
func (h *BasicHost) Network() network.Network       { return h.network }
func (h *BasicHost) Mux() protocol.Switch           { return h.network }
func (h *BasicHost) EventBus() event.Bus            { return h.bus }

// Connect ensures a connection to pi's peer, dialing if necessary, and
// waits for identify to complete on it (§4.6 "connect").
func (h *BasicHost) Connect(ctx context.Context, pi peer.AddrInfo) error {
	if len(pi.Addrs) > 0 {
		h.ps.AddAddrs(pi.ID, pi.Addrs, peerstore.ConnectTTL)
	}

	if h.network.Connectedness(pi.ID) == network.Connected {
		return nil
	}

	c, err := h.network.DialPeer(ctx, pi.ID)
	if err != nil {
		return fmt.Errorf("basichost: dial %s: %w", pi.ID, err)
	}

	if c.RemoteMultiaddr().IsRelayCircuit() {
		return nil // relay connections skip identify (§5 ordering guarantee)
	}
	return h.awaitIdentify(ctx, c)
}

func (h *BasicHost) awaitIdentify(ctx context.Context, c network.Conn) error {
	select {
	case <-h.ids.IdentifyWait(c):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", ErrIdentifyTimeout, ctx.Err())
	}
}

// NewStream connects if necessary, opens a muxed stream, awaits identify on
// non-relay connections, negotiates a protocol from pids, and records it in
// the peer's proto book (§4.6 "new_stream").
func (h *BasicHost) NewStream(ctx context.Context, p peer.ID, pids ...protocol.ID) (network.Stream, error) {
	if h.network.Connectedness(p) != network.Connected {
		if err := h.Connect(ctx, peer.AddrInfo{ID: p}); err != nil {
			return nil, err
		}
	}

	s, err := h.network.NewStream(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("basichost: open stream to %s: %w", p, err)
	}

	if !s.Conn().RemoteMultiaddr().IsRelayCircuit() {
		if err := h.awaitIdentify(ctx, s.Conn()); err != nil {
			s.Reset()
			return nil, err
		}
	}

	_ = s.SetDeadline(time.Now().Add(negotiationTimeout))
	negotiated, r, err := multistream.SelectOneOf(s, pids)
	_ = s.SetDeadline(time.Time{})
	if err != nil {
		s.Reset()
		return nil, fmt.Errorf("basichost: negotiate protocol with %s: %w", p, err)
	}
	s = network.WrapStreamReader(s, r)
	if err := s.SetProtocol(negotiated); err != nil {
		s.Reset()
		return nil, err
	}

	_ = h.ps.AddProtocols(p, negotiated)
	return s, nil
}

// SetStreamHandler registers handler for the exact protocol pid (§4.6).
func (h *BasicHost) SetStreamHandler(pid protocol.ID, handler network.StreamHandler) {
	h.network.SetStreamHandlerMatch(pid, func(p protocol.ID) bool { return p == pid }, handler)
	h.emitProtocolsUpdated([]protocol.ID{pid}, nil)
}

// SetStreamHandlerMatch registers handler for every protocol match accepts,
// reported under pid for diffing purposes (§4.6).
func (h *BasicHost) SetStreamHandlerMatch(pid protocol.ID, match host.StreamMatch, handler network.StreamHandler) {
	h.network.SetStreamHandlerMatch(pid, match, handler)
	h.emitProtocolsUpdated([]protocol.ID{pid}, nil)
}

// RemoveStreamHandler drops every handler registered under pid (§4.6).
func (h *BasicHost) RemoveStreamHandler(pid protocol.ID) {
	h.network.RemoveStreamHandler(pid)
	h.emitProtocolsUpdated(nil, []protocol.ID{pid})
}

func (h *BasicHost) emitProtocolsUpdated(added, removed []protocol.ID) {
	if h.emitters.localProtocolsUpdated == nil {
		return
	}
	if err := h.emitters.localProtocolsUpdated.Emit(event.EvtLocalProtocolsUpdated{Added: added, Removed: removed}); err != nil {
		log.Debugf("basichost: failed to emit protocol update: %s", err)
	}
}

// Close is idempotent and tears the host down in the order §5 "Shutdown"
// specifies: identify's background loop first (so no new PUSH operations
// start), then the relay/NAT glue, then the network (closes listeners then
// all connections), then the peerstore.
func (h *BasicHost) Close() error {
	if h.ctx.Err() != nil {
		return nil // already closed: h.cancel is only called here
	}
	h.cancel()
	h.refCount.Wait()

	_ = h.ids.Close()
	if h.autorelay != nil {
		_ = h.autorelay.Close()
	}
	if h.natmgr != nil {
		_ = h.natmgr.Close()
	}
	if h.emitters.localProtocolsUpdated != nil {
		h.emitters.localProtocolsUpdated.Close()
	}
	if h.emitters.localAddrsUpdated != nil {
		h.emitters.localAddrsUpdated.Close()
	}
	if err := h.network.Close(); err != nil {
		log.Warnf("basichost: error closing network: %s", err)
	}
	return h.ps.Close()
}
