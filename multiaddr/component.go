package multiaddr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	varint "github.com/multiformats/go-varint"
)

// ErrInvalidAddr is returned when parsing fails for structural reasons:
// unknown protocol name/code, wrong value size, or malformed varint prefix.
var ErrInvalidAddr = errors.New("invalid multiaddr")

// Component is a single (protocol, value) pair inside a Multiaddr.
type Component struct {
	proto Protocol
	value []byte // raw bytes, protocol-specific encoding
}

// Protocol returns the component's protocol descriptor.
func (c Component) Protocol() Protocol { return c.proto }

// RawValue returns the component's raw encoded value bytes.
func (c Component) RawValue() []byte { return c.value }

// Value returns the human-readable value, e.g. "1.2.3.4" for an ip4 component.
func (c Component) Value() string {
	switch c.proto.NumCode {
	case P_IP4:
		return net.IP(c.value).String()
	case P_IP6:
		ip := net.IP(c.value)
		return ip.String()
	case P_TCP, P_UDP:
		return strconv.Itoa(int(binary.BigEndian.Uint16(c.value)))
	case P_DNS4, P_DNS6, P_DNSADDR, P_P2P:
		return string(c.value)
	default:
		return ""
	}
}

func (c Component) String() string {
	v := c.Value()
	if v == "" {
		return "/" + c.proto.Name
	}
	return "/" + c.proto.Name + "/" + v
}

// Bytes serializes the component as [varint(code)][value].
func (c Component) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(varint.ToUvarint(uint64(c.proto.NumCode)))
	switch c.proto.Size {
	case SizeVariable:
		buf.Write(varint.ToUvarint(uint64(len(c.value))))
		buf.Write(c.value)
	case 0:
		// no value
	default:
		buf.Write(c.value)
	}
	return buf.Bytes()
}

// NewComponent builds a single component from its protocol name and textual value.
func NewComponent(name, value string) (Component, error) {
	p, ok := ProtocolWithName(name)
	if !ok {
		return Component{}, fmt.Errorf("%w: unknown protocol %q", ErrInvalidAddr, name)
	}
	var raw []byte
	var err error
	switch p.NumCode {
	case P_IP4:
		ip := net.ParseIP(value).To4()
		if ip == nil {
			return Component{}, fmt.Errorf("%w: invalid ip4 value %q", ErrInvalidAddr, value)
		}
		raw = []byte(ip)
	case P_IP6:
		ip := net.ParseIP(value).To16()
		if ip == nil || net.ParseIP(value).To4() != nil {
			return Component{}, fmt.Errorf("%w: invalid ip6 value %q", ErrInvalidAddr, value)
		}
		raw = []byte(ip)
	case P_TCP, P_UDP:
		n, convErr := strconv.ParseUint(value, 10, 16)
		if convErr != nil {
			return Component{}, fmt.Errorf("%w: invalid port %q", ErrInvalidAddr, value)
		}
		raw = make([]byte, 2)
		binary.BigEndian.PutUint16(raw, uint16(n))
	case P_DNS4, P_DNS6, P_DNSADDR, P_P2P:
		if value == "" {
			return Component{}, fmt.Errorf("%w: %s requires a value", ErrInvalidAddr, name)
		}
		raw = []byte(value)
	case P_QUIC_V1, P_P2P_CIRCUIT:
		if value != "" {
			return Component{}, fmt.Errorf("%w: %s takes no value", ErrInvalidAddr, name)
		}
		raw = nil
	default:
		raw = []byte(value)
	}
	if err != nil {
		return Component{}, err
	}
	return Component{proto: p, value: raw}, nil
}

// readComponent consumes one component from the front of b, returning the
// component and the number of bytes consumed.
func readComponent(b []byte) (Component, int, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return Component{}, 0, fmt.Errorf("%w: bad protocol varint: %s", ErrInvalidAddr, err)
	}
	p, ok := ProtocolWithCode(int(code))
	if !ok {
		return Component{}, 0, fmt.Errorf("%w: unknown protocol code %d", ErrInvalidAddr, code)
	}
	off := n
	var value []byte
	switch p.Size {
	case SizeVariable:
		size, n2, err := varint.FromUvarint(b[off:])
		if err != nil {
			return Component{}, 0, fmt.Errorf("%w: bad length varint: %s", ErrInvalidAddr, err)
		}
		off += n2
		if uint64(len(b)-off) < size {
			return Component{}, 0, fmt.Errorf("%w: truncated value for %s", ErrInvalidAddr, p.Name)
		}
		value = b[off : off+int(size)]
		off += int(size)
	case 0:
		value = nil
	default:
		sz := p.Size / 8
		if len(b)-off < sz {
			return Component{}, 0, fmt.Errorf("%w: truncated value for %s", ErrInvalidAddr, p.Name)
		}
		value = b[off : off+sz]
		off += sz
	}
	return Component{proto: p, value: value}, off, nil
}

func parseComponentString(s string) (Component, error) {
	parts := strings.SplitN(s, "/", 2)
	name := parts[0]
	value := ""
	if len(parts) == 2 {
		value = parts[1]
	}
	return NewComponent(name, value)
}
