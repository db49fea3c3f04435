package peer

import "testing"

func TestIDFromPublicKeyDeterministic(t *testing.T) {
	_, pub, err := testKey(t)
	if err != nil {
		t.Fatal(err)
	}
	id1, err := IDFromPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := IDFromPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	if !id1.Equal(id2) {
		t.Error("expected deterministic derivation")
	}
}

func TestStringDecodeRoundTrip(t *testing.T) {
	_, pub, err := testKey(t)
	if err != nil {
		t.Fatal(err)
	}
	id, err := IDFromPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	s := id.String()
	id2, err := Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	if !id.Equal(id2) {
		t.Errorf("round trip mismatch: %s != %s", id, id2)
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	var id ID
	if err := id.Validate(); err == nil {
		t.Error("expected error for empty id")
	}
}
