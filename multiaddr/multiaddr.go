package multiaddr

import (
	"fmt"
	"net"
	"strings"
)

// Multiaddr is an immutable, ordered sequence of address components.
// The zero value is not valid; construct with NewMultiaddr, NewMultiaddrBytes,
// or Join.
type Multiaddr struct {
	components []Component
}

// NewMultiaddr parses the string form, e.g. "/ip4/127.0.0.1/tcp/4001".
func NewMultiaddr(s string) (Multiaddr, error) {
	if s == "" || s[0] != '/' {
		return Multiaddr{}, fmt.Errorf("%w: must begin with /", ErrInvalidAddr)
	}
	parts := strings.Split(s[1:], "/")
	var comps []Component
	for i := 0; i < len(parts); {
		name := parts[i]
		p, ok := ProtocolWithName(name)
		if !ok {
			return Multiaddr{}, fmt.Errorf("%w: unknown protocol %q", ErrInvalidAddr, name)
		}
		value := ""
		i++
		if p.Size != 0 {
			if i >= len(parts) {
				return Multiaddr{}, fmt.Errorf("%w: %s missing value", ErrInvalidAddr, name)
			}
			value = parts[i]
			i++
		}
		c, err := NewComponent(name, value)
		if err != nil {
			return Multiaddr{}, err
		}
		comps = append(comps, c)
	}
	m := Multiaddr{components: comps}
	if err := m.validateOrdering(); err != nil {
		return Multiaddr{}, err
	}
	return m, nil
}

// NewMultiaddrBytes deserializes the binary component-sequence form.
func NewMultiaddrBytes(b []byte) (Multiaddr, error) {
	var comps []Component
	for len(b) > 0 {
		c, n, err := readComponent(b)
		if err != nil {
			return Multiaddr{}, err
		}
		comps = append(comps, c)
		b = b[n:]
	}
	m := Multiaddr{components: comps}
	if err := m.validateOrdering(); err != nil {
		return Multiaddr{}, err
	}
	return m, nil
}

// Join concatenates components into a single address without re-validating
// string/byte round trips; used by callers that already hold parsed
// components (e.g. the wildcard-interface expansion in the address publisher).
func Join(comps ...Component) Multiaddr {
	return Multiaddr{components: append([]Component(nil), comps...)}
}

func (m Multiaddr) String() string {
	var b strings.Builder
	for _, c := range m.components {
		b.WriteString(c.String())
	}
	return b.String()
}

// Bytes serializes the full component sequence.
func (m Multiaddr) Bytes() []byte {
	var out []byte
	for _, c := range m.components {
		out = append(out, c.Bytes()...)
	}
	return out
}

// Equal compares two addresses by serialized byte value.
func (m Multiaddr) Equal(o Multiaddr) bool {
	a, b := m.Bytes(), o.Bytes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Empty reports whether the address has no components (the invalid zero value).
func (m Multiaddr) Empty() bool { return len(m.components) == 0 }

// Protocols returns the component list's protocol descriptors in order.
func (m Multiaddr) Protocols() []Protocol {
	out := make([]Protocol, len(m.components))
	for i, c := range m.components {
		out[i] = c.proto
	}
	return out
}

// Components returns a copy of the component list.
func (m Multiaddr) Components() []Component {
	return append([]Component(nil), m.components...)
}

// ValueForProtocol returns the textual value of the first component matching code.
func (m Multiaddr) ValueForProtocol(code int) (string, error) {
	for _, c := range m.components {
		if c.proto.NumCode == code {
			return c.Value(), nil
		}
	}
	return "", fmt.Errorf("protocol code %d not found in %s", code, m)
}

// Encapsulate returns a new address with other's components appended.
func (m Multiaddr) Encapsulate(other Multiaddr) Multiaddr {
	return Multiaddr{components: append(append([]Component(nil), m.components...), other.components...)}
}

// Decapsulate strips the last occurrence of other (and everything after it).
func (m Multiaddr) Decapsulate(other Multiaddr) Multiaddr {
	if other.Empty() {
		return m
	}
	s, o := m.String(), other.String()
	idx := strings.LastIndex(s, o)
	if idx < 0 {
		return m
	}
	out, _ := NewMultiaddr(s[:idx])
	return out
}

// validateOrdering enforces the protocol table's component-ordering
// invariant: components appear in non-decreasing stage order, network-layer
// (ip4/ip6/dns4/dns6/dnsaddr), then transport-layer (tcp/udp), then quic-v1,
// then p2p, then p2p-circuit. A stage may be absent or repeat, and a protocol
// outside this list takes the current stage. A p2p-circuit component
// (which itself requires a preceding p2p component naming the relay hop, per
// the /p2p-circuit wire convention — enforced at the swarm layer, not here,
// since a bare /p2p-circuit is syntactically valid and filtered out later by
// the dial-candidate filter in §4.4).
func (m Multiaddr) validateOrdering() error {
	stage := 0 // 0=network, 1=transport, 2=quic, 3=p2p, 4=circuit
	for _, c := range m.components {
		var want int
		switch c.proto.NumCode {
		case P_IP4, P_IP6, P_DNS4, P_DNS6, P_DNSADDR:
			want = 0
		case P_TCP, P_UDP:
			want = 1
		case P_QUIC_V1:
			want = 2
		case P_P2P:
			want = 3
		case P_P2P_CIRCUIT:
			want = 4
		default:
			want = stage // unknown-to-us embedder protocol: don't second-guess ordering
		}
		if want < stage {
			return fmt.Errorf("%w: out-of-order component %s in %s", ErrInvalidAddr, c.proto.Name, m)
		}
		stage = want
	}
	return nil
}

// AddrType is a coarse classification used by the dial ranker (§4.4 step 7).
type AddrType int

const (
	AddrTypeUnknown AddrType = iota
	AddrTypePublicIPv4
	AddrTypePublicIPv6
	AddrTypePrivateIPv4
	AddrTypePrivateIPv6
	AddrTypeLoopback
	AddrTypeRelaySpecific
	AddrTypeRelayGeneric
)

// IsLoopback reports whether the address's IP component is a loopback address.
func (m Multiaddr) IsLoopback() bool {
	ip := m.extractIP()
	return ip != nil && ip.IsLoopback()
}

// IsPrivate reports whether the address's IP component is in RFC1918/ULA space.
func (m Multiaddr) IsPrivate() bool {
	ip := m.extractIP()
	return ip != nil && ip.IsPrivate()
}

// IsPublic reports whether the address has a globally routable IP component.
func (m Multiaddr) IsPublic() bool {
	ip := m.extractIP()
	if ip == nil {
		return false
	}
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() && !ip.IsUnspecified()
}

// IsLinkLocal reports whether the address's IP component is link-local.
func (m Multiaddr) IsLinkLocal() bool {
	ip := m.extractIP()
	return ip != nil && (ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast())
}

// IsUnspecified reports whether the IP component is the wildcard 0.0.0.0 or ::.
func (m Multiaddr) IsUnspecified() bool {
	ip := m.extractIP()
	return ip != nil && ip.IsUnspecified()
}

// IsRelayCircuit reports whether the address contains a /p2p-circuit component.
func (m Multiaddr) IsRelayCircuit() bool {
	for _, c := range m.components {
		if c.proto.NumCode == P_P2P_CIRCUIT {
			return true
		}
	}
	return false
}

// RelayHop returns the peer id of the relay hop in a /p2p/<relay>/p2p-circuit
// address, or "" if the address is not a circuit address or has no hop.
func (m Multiaddr) RelayHop() string {
	if !m.IsRelayCircuit() {
		return ""
	}
	for i, c := range m.components {
		if c.proto.NumCode == P_P2P_CIRCUIT {
			// the hop is the nearest preceding /p2p component
			for j := i - 1; j >= 0; j-- {
				if m.components[j].proto.NumCode == P_P2P {
					return m.components[j].Value()
				}
			}
			return ""
		}
	}
	return ""
}

// Type returns the dial-ranker classification for this address.
func (m Multiaddr) Type() AddrType {
	if m.IsRelayCircuit() {
		if m.RelayHop() != "" && len(m.components) > 0 {
			return AddrTypeRelaySpecific
		}
		return AddrTypeRelayGeneric
	}
	ip := m.extractIP()
	if ip == nil {
		return AddrTypeUnknown
	}
	if ip.IsLoopback() {
		return AddrTypeLoopback
	}
	is4 := ip.To4() != nil
	if m.IsPrivate() {
		if is4 {
			return AddrTypePrivateIPv4
		}
		return AddrTypePrivateIPv6
	}
	if is4 {
		return AddrTypePublicIPv4
	}
	return AddrTypePublicIPv6
}

// IPv6Prefix64 extracts the /64 prefix of an ip6 component, used to
// deduplicate candidates sharing a prefix (§4.4 steps 5-6). Returns false
// if the address has no ip6 component.
func (m Multiaddr) IPv6Prefix64() (string, bool) {
	for _, c := range m.components {
		if c.proto.NumCode == P_IP6 {
			if len(c.value) < 8 {
				return "", false
			}
			return string(c.value[:8]), true
		}
	}
	return "", false
}

// IPVersion reports whether m's ip component (if any) is IPv4. ok is false
// for addresses with no ip4/ip6 component (e.g. a bare /p2p-circuit), in
// which case isV4 is meaningless.
func (m Multiaddr) IPVersion() (isV4 bool, ok bool) {
	ip := m.extractIP()
	if ip == nil {
		return false, false
	}
	return ip.To4() != nil, true
}

func (m Multiaddr) extractIP() net.IP {
	for _, c := range m.components {
		switch c.proto.NumCode {
		case P_IP4, P_IP6:
			return net.IP(c.value)
		}
	}
	return nil
}
