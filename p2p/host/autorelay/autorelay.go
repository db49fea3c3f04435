// Package autorelay implements the AutoRelay glue (§4.6 step 6, module
// table "AutoRelay glue / holepunch glue"): consumes identification and
// reachability events, maintains the set of identified peers known to speak
// the relay/hop protocol (a peer is added when identify reports it and is not
// removed when it disconnects), and publishes circuit-relay addresses
// through those candidates whenever local reachability is not public. It
// does not implement the relay transport itself (dialing through a
// /p2p-circuit address) — that capability boundary is out of scope (§1,
// "concrete wire transports").
package autorelay

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/host"
	"github.com/stephanfeb/p2p-core/core/protocol"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

var log = logging.Logger("autorelay")

// HopProtocol is the relay/hop protocol ID a peer must support to be
// considered a relay candidate.
const HopProtocol protocol.ID = "/libp2p/circuit/relay/0.2.0/hop"

// Manager watches EvtPeerIdentificationCompleted/EvtLocalReachabilityChanged
// and republishes advertisable circuit-relay addresses on change.
type Manager struct {
	mu         sync.Mutex
	candidates map[string]ma.Multiaddr // peer id string -> a public addr of that relay
	public     bool

	updateCh chan struct{}
	emitter  event.Emitter

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewManager builds and starts the AutoRelay glue for h. Call Close to stop.
func NewManager(h host.Host) (*Manager, error) {
	m := &Manager{
		candidates: make(map[string]ma.Multiaddr),
		updateCh:   make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}

	emitter, err := h.EventBus().Emitter(&event.EvtAutoRelayAddrsUpdated{})
	if err != nil {
		return nil, err
	}
	m.emitter = emitter

	sub, err := h.EventBus().Subscribe([]any{
		&event.EvtPeerIdentificationCompleted{},
		&event.EvtLocalReachabilityChanged{},
	})
	if err != nil {
		emitter.Close()
		return nil, err
	}

	m.wg.Add(1)
	go m.loop(sub)
	return m, nil
}

func (m *Manager) loop(sub event.Subscription) {
	defer m.wg.Done()
	defer sub.Close()

	for {
		select {
		case evt, ok := <-sub.Out():
			if !ok {
				return
			}
			m.handleEvent(evt)
		case <-m.closeCh:
			return
		}
	}
}

func (m *Manager) handleEvent(evt any) {
	switch e := evt.(type) {
	case event.EvtPeerIdentificationCompleted:
		m.considerCandidate(e.Peer.String(), e.Protocols, e.ListenAddrs)
	case event.EvtLocalReachabilityChanged:
		m.mu.Lock()
		m.public = e.Reachability == event.ReachabilityPublic
		m.mu.Unlock()
		m.republish()
	}
}

func (m *Manager) considerCandidate(peerID string, protos []protocol.ID, addrs []ma.Multiaddr) {
	supportsHop := false
	for _, p := range protos {
		if p == HopProtocol {
			supportsHop = true
			break
		}
	}
	if !supportsHop {
		return
	}

	var publicAddr ma.Multiaddr
	for _, a := range addrs {
		if a.IsPublic() {
			publicAddr = a
			break
		}
	}
	if publicAddr.Empty() {
		return
	}

	m.mu.Lock()
	m.candidates[peerID] = publicAddr
	m.mu.Unlock()
	m.republish()
}

func (m *Manager) republish() {
	select {
	case m.updateCh <- struct{}{}:
	default:
	}

	addrs := m.Addrs()
	if m.emitter != nil {
		if err := m.emitter.Emit(event.EvtAutoRelayAddrsUpdated{AdvertisableAddrs: addrs}); err != nil {
			log.Debugf("autorelay: failed to emit address update: %s", err)
		}
	}
}

// Addrs returns the currently advertisable /p2p-circuit addresses: one per
// known relay candidate (`/<relay-addr>/p2p/<relay>/p2p-circuit`, the same
// shape RelayHop/IsRelayCircuit parse), surfaced only while we believe we
// are not publicly reachable.
func (m *Manager) Addrs() []ma.Multiaddr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.public {
		return nil
	}

	out := make([]ma.Multiaddr, 0, len(m.candidates))
	for relayID, relayAddr := range m.candidates {
		circuit, err := ma.NewMultiaddr(relayAddr.String() + "/p2p/" + relayID + "/p2p-circuit")
		if err != nil {
			continue
		}
		out = append(out, circuit)
	}
	return out
}

// Updates returns a channel that receives (coalesced) notifications whenever
// Addrs() may have changed, for the address publisher's monitor loop.
func (m *Manager) Updates() <-chan struct{} { return m.updateCh }

// Close stops the event loop.
func (m *Manager) Close() error {
	close(m.closeCh)
	m.wg.Wait()
	if m.emitter != nil {
		m.emitter.Close()
	}
	return nil
}
