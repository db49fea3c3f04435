package pstoremem

import (
	"sync"

	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/protocol"
)

type protoBook struct {
	mu    sync.RWMutex
	protos map[peer.ID]map[protocol.ID]struct{}
}

var _ peerstore.ProtoBook = (*protoBook)(nil)

func newProtoBook() *protoBook {
	return &protoBook{protos: make(map[peer.ID]map[protocol.ID]struct{})}
}

func (b *protoBook) GetProtocols(p peer.ID) ([]protocol.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.protos[p]
	out := make([]protocol.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

func (b *protoBook) SetProtocols(p peer.ID, protos ...protocol.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := make(map[protocol.ID]struct{}, len(protos))
	for _, id := range protos {
		set[id] = struct{}{}
	}
	b.protos[p] = set
	return nil
}

func (b *protoBook) AddProtocols(p peer.ID, protos ...protocol.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.protos[p]
	if set == nil {
		set = make(map[protocol.ID]struct{}, len(protos))
		b.protos[p] = set
	}
	for _, id := range protos {
		set[id] = struct{}{}
	}
	return nil
}

func (b *protoBook) RemoveProtocols(p peer.ID, protos ...protocol.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.protos[p]
	if set == nil {
		return nil
	}
	for _, id := range protos {
		delete(set, id)
	}
	return nil
}

func (b *protoBook) SupportsProtocols(p peer.ID, protos ...protocol.ID) ([]protocol.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.protos[p]
	var out []protocol.ID
	for _, id := range protos {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (b *protoBook) FirstSupportedProtocol(p peer.ID, protos ...protocol.ID) (protocol.ID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.protos[p]
	for _, id := range protos {
		if _, ok := set[id]; ok {
			return id, nil
		}
	}
	return "", nil
}
