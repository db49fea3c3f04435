package basichost

import (
	"net"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stephanfeb/p2p-core/core/event"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/record"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// addrsMonitorInterval is the address-monitor timer (§4.6 "Signed peer
// record" paragraph: "detected by the 5-second address-monitor timer").
const addrsMonitorInterval = 5 * time.Second

// AddrsFactory filters/rewrites the union of candidate addresses before
// they're published (§4.6 step 7); the default drops loopback and wildcard.
type AddrsFactory func([]ma.Multiaddr) []ma.Multiaddr

// DefaultAddrsFactory drops loopback and unspecified (wildcard) addresses.
func DefaultAddrsFactory(addrs []ma.Multiaddr) []ma.Multiaddr {
	out := make([]ma.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		if a.IsLoopback() || a.IsUnspecified() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Addrs computes addrs() per §4.6 steps 1-7: listen addrs (with wildcard
// interface expansion and NAT-mapping substitution) union observed addrs
// union AutoRelay circuit addrs, passed through the configured AddrsFactory.
func (h *BasicHost) Addrs() []ma.Multiaddr {
	listen := h.network.ListenAddresses()
	observed := h.ids.OwnObservedAddrs()
	if len(listen) == 0 && len(observed) == 0 {
		return nil
	}

	var expanded []ma.Multiaddr
	for _, addr := range listen {
		if addr.IsUnspecified() {
			expanded = append(expanded, expandWildcard(addr)...)
			continue
		}
		expanded = append(expanded, addr)
	}

	if h.natmgr != nil {
		for i, addr := range expanded {
			if mapped, ok := h.natmgr.MappedAddrFor(addr); ok {
				expanded[i] = mapped
			}
		}
	}

	union := append([]ma.Multiaddr(nil), expanded...)
	union = append(union, observed...)
	if h.autorelay != nil {
		union = append(union, h.autorelay.Addrs()...)
	}
	union = dedupAddrs(union)

	factory := h.addrsFactory
	if factory == nil {
		factory = DefaultAddrsFactory
	}
	return factory(union)
}

func dedupAddrs(addrs []ma.Multiaddr) []ma.Multiaddr {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]ma.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		k := a.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// expandWildcard replaces a 0.0.0.0/:: listen address's IP component with
// every non-loopback, non-link-local interface address, preserving every
// other component (port, transport, security, ...) (§4.6 step 2).
func expandWildcard(addr ma.Multiaddr) []ma.Multiaddr {
	comps := addr.Components()
	if len(comps) == 0 {
		return nil
	}

	ifaceIPs, err := interfaceIPs()
	if err != nil || len(ifaceIPs) == 0 {
		return nil // "trigger re-discovery and skip the wildcard"
	}

	wantV6 := comps[0].Protocol().Name == "ip6"
	var out []ma.Multiaddr
	for _, ip := range ifaceIPs {
		isV6 := ip.To4() == nil
		if isV6 != wantV6 {
			continue
		}
		name := "ip4"
		if isV6 {
			name = "ip6"
		}
		ipComp, err := ma.NewComponent(name, ip.String())
		if err != nil {
			continue
		}
		rest := append([]ma.Component(nil), comps[1:]...)
		out = append(out, ma.Join(append([]ma.Component{ipComp}, rest...)...))
	}
	return out
}

// interfaceIPs enumerates this host's non-loopback, non-link-local
// interface addresses via net.InterfaceAddrs, sorted by their string form.
func interfaceIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		out = append(out, ip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// addrsMonitorLoop regenerates the signed peer record whenever addrs()
// materially changes, either on the 5s timer or on an AutoRelay
// address-update event (§4.6 "Signed peer record").
func (h *BasicHost) addrsMonitorLoop() {
	defer h.refCount.Done()

	clk := h.clock
	if clk == nil {
		clk = clock.New()
	}
	ticker := clk.Ticker(addrsMonitorInterval)
	defer ticker.Stop()

	var relayUpdates <-chan struct{}
	if h.autorelay != nil {
		relayUpdates = h.autorelay.Updates()
	}

	h.checkAddrsChanged()
	for {
		select {
		case <-ticker.C:
			h.checkAddrsChanged()
		case <-relayUpdates:
			h.checkAddrsChanged()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *BasicHost) checkAddrsChanged() {
	current := h.Addrs()

	h.addrsMu.Lock()
	prev := h.lastAddrs
	diffs, changed := diffAddrs(prev, current)
	h.lastAddrs = current
	h.addrsMu.Unlock()

	if !changed {
		return
	}

	if h.emitters.localAddrsUpdated != nil {
		h.emitters.localAddrsUpdated.Emit(event.EvtLocalAddressesUpdated{
			Diffs:   true,
			Current: diffs,
			Removed: removedFromDiff(prev, current),
		})
	}

	h.resignRecord(current)
}

// diffAddrs reports cur's (added/maintained) entries with action tags and
// whether the address set actually changed relative to prev.
func diffAddrs(prev, cur []ma.Multiaddr) ([]event.UpdatedAddress, bool) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, a := range prev {
		prevSet[a.String()] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(cur))
	for _, a := range cur {
		curSet[a.String()] = struct{}{}
	}

	var diffs []event.UpdatedAddress
	changed := len(prev) != len(cur)
	for _, a := range cur {
		action := event.AddrAdded
		if _, ok := prevSet[a.String()]; ok {
			action = event.AddrMaintained
		} else {
			changed = true
		}
		diffs = append(diffs, event.UpdatedAddress{Address: a, Action: action})
	}
	for _, a := range prev {
		if _, ok := curSet[a.String()]; !ok {
			changed = true
		}
	}
	return diffs, changed
}

// removedFromDiff reports prev's entries no longer present in cur, tagged
// AddrRemoved, for the event's Removed field.
func removedFromDiff(prev, cur []ma.Multiaddr) []event.UpdatedAddress {
	curSet := make(map[string]struct{}, len(cur))
	for _, a := range cur {
		curSet[a.String()] = struct{}{}
	}
	var removed []event.UpdatedAddress
	for _, a := range prev {
		if _, ok := curSet[a.String()]; !ok {
			removed = append(removed, event.UpdatedAddress{Address: a, Action: event.AddrRemoved})
		}
	}
	return removed
}

// resignRecord regenerates and stores the signed peer record (§4.6 "Signed
// peer record"): {peer_id, seq: current_wall_ms, addrs}, sealed under the
// host's identity key with the libp2p-peer-record domain.
func (h *BasicHost) resignRecord(addrs []ma.Multiaddr) {
	cab, ok := peerstore.GetCertifiedAddrBook(h.Peerstore())
	if !ok || h.signKey == nil {
		return
	}
	rec := &record.PeerRecord{
		PeerID: h.id,
		Seq:    uint64(time.Now().UnixMilli()),
		Addrs:  addrs,
	}
	env, err := rec.Sign(h.signKey)
	if err != nil {
		log.Warnf("address publisher: failed to sign peer record: %s", err)
		return
	}
	if _, err := cab.ConsumePeerRecord(env, peerstore.ConnectedAddrTTL); err != nil {
		log.Warnf("address publisher: failed to store own signed record: %s", err)
	}
}
