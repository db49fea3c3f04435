package multiaddr

import "testing"

func TestParseStringifyRoundTrip(t *testing.T) {
	cases := []string{
		"/ip4/127.0.0.1/tcp/4001",
		"/ip6/2001:db8::1/udp/4001/quic-v1",
		"/ip4/10.0.0.1/tcp/4001/p2p/QmSomePeer",
		"/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit",
	}
	for _, s := range cases {
		m, err := NewMultiaddr(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := m.String(); got != s {
			t.Errorf("stringify(parse(%q)) = %q", s, got)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	m, err := NewMultiaddr("/ip4/192.168.1.10/tcp/1234")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := NewMultiaddrBytes(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !m.Equal(m2) {
		t.Errorf("byte round trip mismatch: %s != %s", m, m2)
	}
}

func TestClassification(t *testing.T) {
	loopback, _ := NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	if !loopback.IsLoopback() {
		t.Error("expected loopback")
	}
	private, _ := NewMultiaddr("/ip4/10.0.0.5/tcp/4001")
	if !private.IsPrivate() || private.IsPublic() {
		t.Error("expected private, not public")
	}
	public, _ := NewMultiaddr("/ip4/8.8.8.8/tcp/4001")
	if !public.IsPublic() {
		t.Error("expected public")
	}
	wildcard, _ := NewMultiaddr("/ip4/0.0.0.0/tcp/4001")
	if !wildcard.IsUnspecified() {
		t.Error("expected unspecified")
	}
}

func TestRelayHop(t *testing.T) {
	m, err := NewMultiaddr("/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit")
	if err != nil {
		t.Fatal(err)
	}
	if hop := m.RelayHop(); hop != "QmRelay" {
		t.Errorf("RelayHop() = %q, want QmRelay", hop)
	}
	if !m.IsRelayCircuit() {
		t.Error("expected IsRelayCircuit")
	}
}

func TestInvalidOrderingRejected(t *testing.T) {
	_, err := NewMultiaddr("/tcp/4001/ip4/127.0.0.1")
	if err == nil {
		t.Error("expected ordering error")
	}
}

func TestIPv6Prefix64Dedup(t *testing.T) {
	a, _ := NewMultiaddr("/ip6/2001:db8::1/tcp/4001")
	b, _ := NewMultiaddr("/ip6/2001:db8::2/tcp/4002")
	pa, ok := a.IPv6Prefix64()
	if !ok {
		t.Fatal("expected prefix")
	}
	pb, ok := b.IPv6Prefix64()
	if !ok {
		t.Fatal("expected prefix")
	}
	if pa != pb {
		t.Errorf("expected shared /64 prefix, got %x != %x", pa, pb)
	}
}
