// Package peer defines the PeerId identifier type: a content-addressed id
// derived from a peer's public key, per §3 of the spec.
package peer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/stephanfeb/p2p-core/core/crypto"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// ID is a libp2p peer identifier: either the raw serialized public key
// (for keys short enough to embed, "identity" multihash) or the SHA2-256
// multihash of the serialized public key. Equality is by the underlying
// multihash bytes; the type is a string so it's cheaply comparable/hashable
// as a map key, matching the upstream convention.
type ID string

// maxInlineKeyLength is the largest serialized-public-key length that is
// embedded directly (as an "identity" multihash) instead of hashed.
const maxInlineKeyLength = 42

var ErrEmptyPeerID = errors.New("empty peer ID")

// IDFromPublicKey derives the deterministic peer ID for a public key:
// the raw serialized key inline if short enough, else its SHA2-256 hash.
// Two calls with equal keys always produce equal IDs.
func IDFromPublicKey(pk crypto.PubKey) (ID, error) {
	b, err := crypto.MarshalPublicKey(pk)
	if err != nil {
		return "", err
	}
	var alg uint64 = multihash.SHA2_256
	if len(b) <= maxInlineKeyLength {
		alg = multihash.IDENTITY
	}
	mh, err := multihash.Sum(b, alg, -1)
	if err != nil {
		return "", err
	}
	return ID(mh), nil
}

// ExtractPublicKey recovers the embedded public key for peer IDs that used
// the identity-multihash (short-key) encoding. Returns (nil, nil) if the ID
// was derived via SHA2-256 and no key can be recovered from the ID alone.
func (id ID) ExtractPublicKey() (crypto.PubKey, error) {
	decoded, err := multihash.Decode([]byte(id))
	if err != nil {
		return nil, err
	}
	if decoded.Code != multihash.IDENTITY {
		return nil, nil
	}
	return crypto.UnmarshalPublicKey(decoded.Digest)
}

// Validate reports whether id is well-formed (decodes as a multihash) and non-empty.
func (id ID) Validate() error {
	if len(id) == 0 {
		return ErrEmptyPeerID
	}
	_, err := multihash.Decode([]byte(id))
	return err
}

// String returns the legacy base58btc encoding (no multibase prefix),
// matching the upstream "Pretty()" convention most of the ecosystem still emits.
func (id ID) String() string {
	return base58.Encode([]byte(id))
}

// ToMultibase returns the multibase-prefixed string encoding (CIDv1-style),
// the forward-compatible encoding recommended for new wire formats.
func (id ID) ToMultibase(base multibase.Encoding) (string, error) {
	return multibase.Encode(base, []byte(id))
}

// Decode parses either encoding produced by String or ToMultibase. The
// legacy base58btc form (no prefix) is tried first since it's what String
// emits and what most of the ecosystem still sends on the wire; multibase
// is tried as a fallback for forward-compatible encodings.
func Decode(s string) (ID, error) {
	if s == "" {
		return "", ErrEmptyPeerID
	}
	if data, err := base58.Decode(s); err == nil {
		if _, err := multihash.Decode(data); err == nil {
			return ID(data), nil
		}
	}
	_, data, err := multibase.Decode(s)
	if err != nil {
		return "", fmt.Errorf("failed to parse peer ID %q: %w", s, err)
	}
	return ID(data), nil
}

// Equal reports byte equality, matching §3's "equality is by bytes" invariant.
func (id ID) Equal(o ID) bool {
	return bytes.Equal([]byte(id), []byte(o))
}

// MatchesPublicKey reports whether id was (or could have been) derived from pk.
func (id ID) MatchesPublicKey(pk crypto.PubKey) bool {
	oid, err := IDFromPublicKey(pk)
	if err != nil {
		return false
	}
	return id.Equal(oid)
}

// AddrInfo is the minimal {ID, Addrs} pair passed to Host.Connect.
type AddrInfo struct {
	ID    ID
	Addrs []ma.Multiaddr
}
