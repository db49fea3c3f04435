package record

import (
	"testing"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func TestSealConsumeRoundTrip(t *testing.T) {
	sk, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("hello world")
	env, err := Seal(sk, "test-domain", []byte("test-type"), payload)
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, gotPayload, err := ConsumeEnvelope(b, "test-domain")
	if err != nil {
		t.Fatal(err)
	}
	if string(gotPayload) != string(payload) {
		t.Errorf("payload mismatch: %q != %q", gotPayload, payload)
	}
	if !got.PublicKey.Equals(sk.GetPublic()) {
		t.Error("public key mismatch")
	}
}

func TestConsumeWrongDomainFails(t *testing.T) {
	sk, _, _ := crypto.GenerateEd25519Key(nil)
	env, _ := Seal(sk, "domain-a", []byte("t"), []byte("payload"))
	b, _ := env.Marshal()
	if _, _, err := ConsumeEnvelope(b, "domain-b"); err == nil {
		t.Error("expected signature verification failure for mismatched domain")
	}
}

func TestPeerRecordRoundTrip(t *testing.T) {
	sk, pub, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	addr, _ := ma.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	rec := &PeerRecord{PeerID: id, Seq: 42, Addrs: []ma.Multiaddr{addr}}
	env, err := rec.Sign(sk)
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	gotEnv, _, err := ConsumeEnvelope(b, PeerRecordEnvelopeDomain)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ConsumePeerRecordEnvelope(gotEnv, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 42 || len(got.Addrs) != 1 || !got.Addrs[0].Equal(addr) {
		t.Errorf("unexpected round trip: %+v", got)
	}
}
