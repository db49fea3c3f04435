package multiaddr

import (
	"fmt"
	"net"
)

// FromNetAddr converts a *net.TCPAddr into its /ip4|ip6/../tcp/.. form,
// used by p2p/transport/tcp to report a listener's actual bound address
// (which may differ from the requested one, e.g. port 0) and a conn's
// local/remote address (§4.4 "listen").
func FromNetAddr(addr net.Addr) (Multiaddr, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return Multiaddr{}, fmt.Errorf("%w: unsupported net.Addr type %T", ErrInvalidAddr, addr)
	}
	ipProto := "ip4"
	if tcpAddr.IP.To4() == nil {
		ipProto = "ip6"
	}
	ipComp, err := NewComponent(ipProto, tcpAddr.IP.String())
	if err != nil {
		return Multiaddr{}, err
	}
	tcpComp, err := NewComponent("tcp", fmt.Sprintf("%d", tcpAddr.Port))
	if err != nil {
		return Multiaddr{}, err
	}
	return Join(ipComp, tcpComp), nil
}

// ToTCPAddr extracts the *net.TCPAddr a /ip4|ip6/../tcp/.. address
// describes, for handing to net.Dial/net.Listen.
func ToTCPAddr(m Multiaddr) (*net.TCPAddr, error) {
	var ip net.IP
	var port string
	for _, c := range m.Components() {
		switch c.proto.NumCode {
		case P_IP4, P_IP6:
			ip = net.IP(c.RawValue())
		case P_TCP:
			port = c.Value()
		}
	}
	if ip == nil || port == "" {
		return nil, fmt.Errorf("%w: %s is not a dialable /ip.../tcp/... address", ErrInvalidAddr, m)
	}
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(ip.String(), port))
	if err != nil {
		return nil, err
	}
	return addr, nil
}
