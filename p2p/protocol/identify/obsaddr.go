package identify

import (
	"context"
	"sync"
	"time"

	"github.com/stephanfeb/p2p-core/core/host"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// minDistinctObservers is how many distinct remote peers must report the
// same observed address, for the same local address, before we trust it
// enough to hand it back from Addrs(). A single peer's word is not enough
// to change what we advertise (§9 design notes on the "testing fallback").
const minDistinctObservers = 2

const pruneInterval = 1 * time.Second

type observerSet struct {
	// observer -> last time it reported this address
	lastSeen map[peer.ID]time.Time
}

// ObservedAddrManager tracks, per local multiaddr, which external addresses
// peers say they saw us dial from (§4.5 step 2). It is the collaborator the
// address publisher (§4.6 step 1) reads from.
type ObservedAddrManager struct {
	mu  sync.Mutex
	ttl time.Duration
	// localKey -> observedKey -> observerSet
	byLocal map[string]map[string]*observerSet
	addrByKey map[string]ma.Multiaddr

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewObservedAddrManager starts the background pruning loop for h's lifetime.
func NewObservedAddrManager(h host.Host) (*ObservedAddrManager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &ObservedAddrManager{
		ttl:       peerstore.OwnObservedAddrTTL,
		byLocal:   make(map[string]map[string]*observerSet),
		addrByKey: make(map[string]ma.Multiaddr),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.wg.Add(1)
	go m.pruneLoop()
	return m, nil
}

func (m *ObservedAddrManager) pruneLoop() {
	defer m.wg.Done()
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			m.prune()
		}
	}
}

func (m *ObservedAddrManager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-m.ttl)
	for localKey, group := range m.byLocal {
		for observedKey, set := range group {
			for observer, seen := range set.lastSeen {
				if seen.Before(cutoff) {
					delete(set.lastSeen, observer)
				}
			}
			if len(set.lastSeen) == 0 {
				delete(group, observedKey)
			}
		}
		if len(group) == 0 {
			delete(m.byLocal, localKey)
		}
	}
}

// Record registers that c's remote peer reported seeing us as observed,
// keyed by c's local multiaddr (§4.5 step 2).
func (m *ObservedAddrManager) Record(c network.Conn, observed ma.Multiaddr) {
	if observed.Empty() {
		return
	}
	local := c.LocalMultiaddr()
	observer := c.RemotePeer()

	localKey := local.String()
	observedKey := observed.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.byLocal[localKey]
	if !ok {
		group = make(map[string]*observerSet)
		m.byLocal[localKey] = group
	}
	set, ok := group[observedKey]
	if !ok {
		set = &observerSet{lastSeen: make(map[peer.ID]time.Time)}
		group[observedKey] = set
	}
	set.lastSeen[observer] = time.Now()
	m.addrByKey[observedKey] = observed
}

// SetTTL changes how long an observation remains valid. Exposed mainly for
// tests that want a short TTL instead of sleeping for OwnObservedAddrTTL.
func (m *ObservedAddrManager) SetTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttl = ttl
}

// Addrs returns every observed address currently reported by at least
// minDistinctObservers distinct peers, across all local addresses.
func (m *ObservedAddrManager) Addrs() []ma.Multiaddr {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []ma.Multiaddr
	for _, group := range m.byLocal {
		for observedKey, set := range group {
			if len(set.lastSeen) < minDistinctObservers {
				continue
			}
			if _, ok := seen[observedKey]; ok {
				continue
			}
			seen[observedKey] = struct{}{}
			out = append(out, m.addrByKey[observedKey])
		}
	}
	return out
}

// AddrsFor returns the observed addresses reported for a specific local
// multiaddr only. IDService.ObservedAddrsFor exposes it; the snapshot engine
// does not call it (the snapshot is shared across peers).
func (m *ObservedAddrManager) AddrsFor(local ma.Multiaddr) []ma.Multiaddr {
	if local.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.byLocal[local.String()]
	if !ok {
		return nil
	}
	var out []ma.Multiaddr
	for observedKey, set := range group {
		if len(set.lastSeen) < minDistinctObservers {
			continue
		}
		out = append(out, m.addrByKey[observedKey])
	}
	return out
}

// Close stops the pruning loop.
func (m *ObservedAddrManager) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
