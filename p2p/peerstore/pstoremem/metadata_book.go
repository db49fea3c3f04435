package pstoremem

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
)

// maxMetadataPeers bounds the metadata book's memory footprint: peers we
// haven't heard from recently eventually fall out, matching the bounded-LRU
// approach upstream's pstoremem takes for its metadata store.
const maxMetadataPeers = 4096

type metadataBook struct {
	mu    sync.Mutex
	cache *lru.Cache[peer.ID, map[string]any]
}

var _ peerstore.Metadata = (*metadataBook)(nil)

func newMetadataBook() *metadataBook {
	cache, err := lru.New[peer.ID, map[string]any](maxMetadataPeers)
	if err != nil {
		// Only returns an error for a non-positive size, which maxMetadataPeers
		// never is; a panic here means the constant above was misedited.
		panic(err)
	}
	return &metadataBook{cache: cache}
}

func (b *metadataBook) Get(p peer.ID, key string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.cache.Get(p)
	if !ok {
		return nil, peerstore.ErrNotFound
	}
	v, ok := m[key]
	if !ok {
		return nil, peerstore.ErrNotFound
	}
	return v, nil
}

func (b *metadataBook) Put(p peer.ID, key string, val any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.cache.Get(p)
	if !ok {
		m = make(map[string]any, 1)
	}
	m[key] = val
	b.cache.Add(p, m)
	return nil
}
