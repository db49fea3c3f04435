package basichost

import (
	"context"
	"strconv"
	"sync"
	"time"

	nat "github.com/libp2p/go-nat"

	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// mappingTTL is the lifetime requested for each port mapping. Mappings are
// not renewed when it runs out.
const mappingTTL = 1 * time.Hour

// natManager discovers a NAT gateway in the background and holds the port
// mappings requested through EnsureMapping (§4.6 step 4: "Apply
// NAT-manager mappings where available"). Nothing in this package calls
// EnsureMapping, so MappedAddrFor finds no mapping and Addrs publishes
// listen addresses unmapped.
type natManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	gw       nat.NAT
	mappings map[int]int // internal port -> external port
	extIP    ma.Multiaddr
}

// newNATManager spawns gateway discovery; callers should treat the manager
// as unusable (MappedAddrFor always returns false, not found) until
// discovery completes.
func newNATManager() *natManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &natManager{ctx: ctx, cancel: cancel, mappings: make(map[int]int)}
	m.wg.Add(1)
	go m.discoverLoop()
	return m
}

func (m *natManager) discoverLoop() {
	defer m.wg.Done()

	discoverCtx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()
	gw, err := nat.DiscoverGateway(discoverCtx)
	if err != nil {
		log.Debugf("nat manager: no gateway discovered: %s", err)
		return
	}

	m.mu.Lock()
	m.gw = gw
	m.mu.Unlock()
}

// EnsureMapping requests an external mapping for the TCP port internalPort
// in the background and records it for MappedAddrFor once the gateway has
// granted it. It does nothing until gateway discovery has completed.
func (m *natManager) EnsureMapping(internalPort int) {
	m.mu.Lock()
	gw := m.gw
	m.mu.Unlock()
	if gw == nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()

		ext, err := gw.AddPortMapping(ctx, "tcp", internalPort, "p2p-core", mappingTTL)
		if err != nil {
			log.Debugf("nat manager: port mapping for %d failed: %s", internalPort, err)
			return
		}
		extIP, err := gw.GetExternalAddress()
		if err != nil {
			log.Debugf("nat manager: could not read external address: %s", err)
			return
		}
		extAddr, err := ma.NewMultiaddr("/ip4/" + extIP.String())
		if err != nil {
			return
		}

		m.mu.Lock()
		m.mappings[internalPort] = ext
		m.extIP = extAddr
		m.mu.Unlock()
	}()
}

// MappedAddrFor substitutes listen's port with this manager's external
// mapping and IP component if one exists for listen's port (§4.6 step 4).
// Unmapped addresses are returned unchanged by the caller (addrs.go).
func (m *natManager) MappedAddrFor(listen ma.Multiaddr) (ma.Multiaddr, bool) {
	port, err := listen.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return ma.Multiaddr{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extIP.Empty() {
		return ma.Multiaddr{}, false
	}

	internal, err := strconv.Atoi(port)
	if err != nil {
		return ma.Multiaddr{}, false
	}
	ext, ok := m.mappings[internal]
	if !ok {
		return ma.Multiaddr{}, false
	}

	extPortComp, err := ma.NewComponent("tcp", strconv.Itoa(ext))
	if err != nil {
		return ma.Multiaddr{}, false
	}
	ipComp := m.extIP.Components()[0]
	rest := listen.Components()[2:] // drop ip + tcp-port, keep everything after
	return ma.Join(append([]ma.Component{ipComp, extPortComp}, rest...)...), true
}

// Close stops background discovery/refresh and releases every mapping it holds.
func (m *natManager) Close() error {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	gw := m.gw
	mappings := m.mappings
	m.mu.Unlock()
	if gw == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for internal := range mappings {
		_ = gw.DeletePortMapping(ctx, "tcp", internal)
	}
	return nil
}
