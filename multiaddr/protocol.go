// Package multiaddr implements the structured, self-describing network
// addresses used throughout the core: an ordered sequence of
// (protocol, value) components such as /ip4/1.2.3.4/tcp/4001.
package multiaddr

import "fmt"

// SizeVariable marks a protocol whose value is varint length-prefixed.
const SizeVariable = -1

// Protocol describes one component type in the address component table.
type Protocol struct {
	Code string
	// Name is the string form used in the textual representation, e.g. "ip4".
	Name string
	// NumCode is the numeric protocol code from the multicodec table.
	NumCode int
	// Size is the size in bits of the value, SizeVariable if length-prefixed,
	// or 0 for a value-less protocol like p2p-circuit.
	Size int
	// Path marks protocols whose textual value may itself contain slashes
	// and must be consumed greedily. No protocol in this table sets it and
	// the parser does not read it; it is kept for table completeness.
	Path bool
}

// Protocol codes used by the core. Additional transports an embedder
// registers are appended via RegisterProtocol.
const (
	P_IP4         = 0x0004
	P_TCP         = 0x0006
	P_DNS4        = 0x0036
	P_DNS6        = 0x0037
	P_DNSADDR     = 0x0038
	P_IP6         = 0x0029
	P_QUIC_V1     = 0x01cd
	P_UDP         = 0x0111
	P_P2P         = 0x01a5
	P_P2P_CIRCUIT = 0x0122
)

var protocolsByCode = map[int]Protocol{}
var protocolsByName = map[string]Protocol{}

func init() {
	for _, p := range []Protocol{
		{Name: "ip4", NumCode: P_IP4, Size: 32},
		{Name: "tcp", NumCode: P_TCP, Size: 16},
		{Name: "udp", NumCode: P_UDP, Size: 16},
		{Name: "dns4", NumCode: P_DNS4, Size: SizeVariable},
		{Name: "dns6", NumCode: P_DNS6, Size: SizeVariable},
		{Name: "dnsaddr", NumCode: P_DNSADDR, Size: SizeVariable},
		{Name: "ip6", NumCode: P_IP6, Size: 128},
		{Name: "quic-v1", NumCode: P_QUIC_V1, Size: 0},
		{Name: "p2p", NumCode: P_P2P, Size: SizeVariable},
		{Name: "p2p-circuit", NumCode: P_P2P_CIRCUIT, Size: 0},
	} {
		registerProtocol(p)
	}
}

func registerProtocol(p Protocol) {
	protocolsByCode[p.NumCode] = p
	protocolsByName[p.Name] = p
}

// RegisterProtocol adds an embedder-defined transport protocol to the table.
// It must be called before any address using that protocol is parsed.
func RegisterProtocol(p Protocol) error {
	if _, ok := protocolsByCode[p.NumCode]; ok {
		return fmt.Errorf("protocol code %d already registered", p.NumCode)
	}
	if _, ok := protocolsByName[p.Name]; ok {
		return fmt.Errorf("protocol name %q already registered", p.Name)
	}
	registerProtocol(p)
	return nil
}

// ProtocolWithName looks up a protocol by its textual name. The zero
// Protocol (NumCode 0 is not a valid code) is returned if unknown.
func ProtocolWithName(name string) (Protocol, bool) {
	p, ok := protocolsByName[name]
	return p, ok
}

// ProtocolWithCode looks up a protocol by its numeric code.
func ProtocolWithCode(code int) (Protocol, bool) {
	p, ok := protocolsByCode[code]
	return p, ok
}
