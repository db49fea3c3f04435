package pstoremem

import (
	"errors"
	"sync"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
)

// errKeyMismatch is returned when a caller tries to associate a public key
// with a peer ID that wasn't derived from it.
var errKeyMismatch = errors.New("peerstore: public key does not match peer id")

type keyBook struct {
	mu   sync.RWMutex
	pub  map[peer.ID]crypto.PubKey
	priv map[peer.ID]crypto.PrivKey
}

var _ peerstore.KeyBook = (*keyBook)(nil)

func newKeyBook() *keyBook {
	return &keyBook{pub: make(map[peer.ID]crypto.PubKey), priv: make(map[peer.ID]crypto.PrivKey)}
}

func (b *keyBook) PubKey(p peer.ID) crypto.PubKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if pk, ok := b.pub[p]; ok {
		return pk
	}
	if pk, err := p.ExtractPublicKey(); err == nil && pk != nil {
		return pk
	}
	return nil
}

func (b *keyBook) AddPubKey(p peer.ID, pk crypto.PubKey) error {
	if !p.MatchesPublicKey(pk) {
		return errKeyMismatch
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pub[p] = pk
	return nil
}

func (b *keyBook) PrivKey(p peer.ID) crypto.PrivKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.priv[p]
}

func (b *keyBook) AddPrivKey(p peer.ID, sk crypto.PrivKey) error {
	if sk == nil {
		return peerstore.ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.priv[p] = sk
	return nil
}
