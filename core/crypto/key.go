// Package crypto defines the public/private key interfaces the rest of the
// core consumes for peer identity. Concrete primitives (Ed25519) are backed
// by the standard library and vetted ecosystem packages; this package only
// owns the serialization envelope and the interface contract.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"

	pb "github.com/stephanfeb/p2p-core/core/crypto/pb"
)

// KeyType identifies the algorithm a serialized key uses.
type KeyType int

const (
	Ed25519 KeyType = iota
	Secp256k1
)

// PubKey is a public key usable to verify signatures produced by the
// matching PrivKey.
type PubKey interface {
	// Verify checks sig is a valid signature of data under this key.
	Verify(data, sig []byte) (bool, error)
	// Raw returns the raw unwrapped bytes of this key (no envelope).
	Raw() ([]byte, error)
	// Type reports the key's algorithm.
	Type() KeyType
	// Equals reports whether two keys are the same.
	Equals(PubKey) bool
}

// PrivKey is a private key usable to sign data and derive the matching PubKey.
type PrivKey interface {
	Sign(data []byte) ([]byte, error)
	GetPublic() PubKey
	Raw() ([]byte, error)
	Type() KeyType
	Equals(PrivKey) bool
}

var ErrBadKeyType = errors.New("invalid or unsupported key type")

// GenerateEd25519Key creates a new Ed25519 keypair using the given source of randomness.
func GenerateEd25519Key(src io.Reader) (PrivKey, PubKey, error) {
	if src == nil {
		src = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(src)
	if err != nil {
		return nil, nil, err
	}
	sk := &Ed25519PrivateKey{priv: priv}
	return sk, sk.GetPublic(), nil
}

type Ed25519PrivateKey struct {
	priv ed25519.PrivateKey
}

func (k *Ed25519PrivateKey) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, data), nil
}

func (k *Ed25519PrivateKey) GetPublic() PubKey {
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, k.priv[ed25519.PrivateKeySize-ed25519.PublicKeySize:])
	return &Ed25519PublicKey{pub: pub}
}

func (k *Ed25519PrivateKey) Raw() ([]byte, error) {
	out := make([]byte, len(k.priv))
	copy(out, k.priv)
	return out, nil
}

func (k *Ed25519PrivateKey) Type() KeyType { return Ed25519 }

func (k *Ed25519PrivateKey) Equals(other PrivKey) bool {
	o, ok := other.(*Ed25519PrivateKey)
	if !ok {
		return false
	}
	return string(k.priv) == string(o.priv)
}

type Ed25519PublicKey struct {
	pub ed25519.PublicKey
}

func (k *Ed25519PublicKey) Verify(data, sig []byte) (bool, error) {
	return ed25519.Verify(k.pub, data, sig), nil
}

func (k *Ed25519PublicKey) Raw() ([]byte, error) {
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out, nil
}

func (k *Ed25519PublicKey) Type() KeyType { return Ed25519 }

func (k *Ed25519PublicKey) Equals(other PubKey) bool {
	o, ok := other.(*Ed25519PublicKey)
	if !ok {
		return false
	}
	return string(k.pub) == string(o.pub)
}

// UnmarshalEd25519PublicKey wraps raw Ed25519 public key bytes.
func UnmarshalEd25519PublicKey(data []byte) (PubKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return nil, ErrBadKeyType
	}
	return &Ed25519PublicKey{pub: ed25519.PublicKey(data)}, nil
}

// MarshalPublicKey serializes a PubKey into the wire envelope
// {Type, Data} used by the identify protocol and the Noise handshake payload.
func MarshalPublicKey(pk PubKey) ([]byte, error) {
	raw, err := pk.Raw()
	if err != nil {
		return nil, err
	}
	var t pb.KeyType
	switch pk.Type() {
	case Ed25519:
		t = pb.KeyType_Ed25519
	default:
		return nil, ErrBadKeyType
	}
	return (&pb.PublicKey{Type: t, Data: raw}).Marshal()
}

// UnmarshalPublicKey parses the wire envelope produced by MarshalPublicKey.
func UnmarshalPublicKey(data []byte) (PubKey, error) {
	var msg pb.PublicKey
	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}
	switch msg.Type {
	case pb.KeyType_Ed25519:
		return UnmarshalEd25519PublicKey(msg.Data)
	default:
		return nil, ErrBadKeyType
	}
}

// MarshalPrivateKey serializes a PrivKey the same way MarshalPublicKey does for PubKey.
func MarshalPrivateKey(sk PrivKey) ([]byte, error) {
	raw, err := sk.Raw()
	if err != nil {
		return nil, err
	}
	var t pb.KeyType
	switch sk.Type() {
	case Ed25519:
		t = pb.KeyType_Ed25519
	default:
		return nil, ErrBadKeyType
	}
	return (&pb.PrivateKey{Type: t, Data: raw}).Marshal()
}

// UnmarshalPrivateKey parses the wire envelope produced by MarshalPrivateKey.
func UnmarshalPrivateKey(data []byte) (PrivKey, error) {
	var msg pb.PrivateKey
	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}
	switch msg.Type {
	case pb.KeyType_Ed25519:
		if len(msg.Data) != ed25519.PrivateKeySize {
			return nil, ErrBadKeyType
		}
		return &Ed25519PrivateKey{priv: ed25519.PrivateKey(msg.Data)}, nil
	default:
		return nil, ErrBadKeyType
	}
}
