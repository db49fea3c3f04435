package swarm

import (
	"net"
	"sort"
	"time"

	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// outboundCapability is the local host's dialable address-family set
// (§4.4 step 5).
type outboundCapability int

const (
	capDualStack outboundCapability = iota
	capIPv4Only
	capIPv6Only
	capRelayOnly
)

// determineOutboundCapability intersects interface discovery with a live
// IPv6 bind probe: an interface carrying a v6 address doesn't guarantee a
// socket can actually be opened on it (no default route, v6 disabled at
// the kernel), so step 5 requires confirming with a real bind rather than
// trusting enumeration alone.
func determineOutboundCapability() outboundCapability {
	hasV4, hasV6 := interfaceFamilies()
	v6Usable := hasV6 && canBindIPv6()

	switch {
	case hasV4 && v6Usable:
		return capDualStack
	case hasV4:
		return capIPv4Only
	case v6Usable:
		return capIPv6Only
	default:
		return capRelayOnly
	}
}

// interfaceFamilies reports whether any non-loopback, non-link-local
// interface carries an IPv4/IPv6 unicast address.
func interfaceFamilies() (hasV4, hasV6 bool) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false, false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		if ip.To4() != nil {
			hasV4 = true
		} else {
			hasV6 = true
		}
	}
	return hasV4, hasV6
}

// canBindIPv6 is the live probe step 5 calls for: interface enumeration
// alone can't tell whether the kernel will actually hand out a routable
// v6 socket.
func canBindIPv6() bool {
	ln, err := net.Listen("tcp6", "[::]:0")
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// filterDialable applies §4.4 step 5: drop addresses unreachable under
// cap, then the link-local/wildcard/circuit-self drops, then dedups IPv6
// addresses sharing a /64 (step 6).
func filterDialable(addrs []ma.Multiaddr, local peer.ID, cap outboundCapability) []ma.Multiaddr {
	out := make([]ma.Multiaddr, 0, len(addrs))
	seenPrefix := make(map[string]struct{})
	for _, a := range addrs {
		if !reachableUnder(a, cap) {
			continue
		}
		if a.IsLinkLocal() {
			continue
		}
		if a.IsUnspecified() {
			continue
		}
		if a.IsRelayCircuit() {
			if a.RelayHop() == "" {
				continue
			}
			if a.RelayHop() == string(local) {
				continue
			}
		}
		if prefix, ok := a.IPv6Prefix64(); ok {
			if _, dup := seenPrefix[prefix]; dup {
				continue
			}
			seenPrefix[prefix] = struct{}{}
		}
		out = append(out, a)
	}
	return out
}

// reachableUnder reports whether a is dialable given cap. Circuit
// addresses always pass the family check: the socket actually opened is
// to the relay hop, dialed over whatever transport leg that hop
// advertises, not a direct socket to the relayed peer's own family.
func reachableUnder(a ma.Multiaddr, cap outboundCapability) bool {
	if a.IsRelayCircuit() {
		return true
	}
	if cap == capRelayOnly {
		return false
	}
	isV4, ok := a.IPVersion()
	if !ok {
		return true
	}
	switch cap {
	case capIPv4Only:
		return isV4
	case capIPv6Only:
		return !isV4
	default:
		return true
	}
}

// addrPriority implements §4.4 step 7's dual-stack ordering: public IPv6 <
// public IPv4 < private IPv4 < specific relay < generic relay < everything
// else. Lower value is tried sooner.
func addrPriority(a ma.Multiaddr) int {
	switch a.Type() {
	case ma.AddrTypePublicIPv6:
		return 0
	case ma.AddrTypePublicIPv4:
		return 1
	case ma.AddrTypePrivateIPv4, ma.AddrTypePrivateIPv6:
		return 2
	case ma.AddrTypeRelaySpecific:
		return 3
	case ma.AddrTypeRelayGeneric:
		return 4
	case ma.AddrTypeLoopback:
		return 5
	default:
		return 6
	}
}

type rankedAddr struct {
	addr    ma.Multiaddr
	timeout time.Duration
}

// rankAddrs sorts candidates by ascending priority and attaches the
// type-specific dial timeout (direct 15s, relay 30s; §5 timeouts table).
func rankAddrs(addrs []ma.Multiaddr) []rankedAddr {
	out := make([]rankedAddr, len(addrs))
	for i, a := range addrs {
		out[i] = rankedAddr{addr: a, timeout: dialTimeoutFor(a)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return addrPriority(out[i].addr) < addrPriority(out[j].addr)
	})
	return out
}

func dialTimeoutFor(a ma.Multiaddr) time.Duration {
	if a.IsRelayCircuit() {
		return relayDialTimeout
	}
	return directDialTimeout
}
