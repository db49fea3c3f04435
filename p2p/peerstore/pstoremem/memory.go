package pstoremem

import (
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
)

// peerstoreImpl composes the four in-memory books into core/peerstore.Peerstore.
type peerstoreImpl struct {
	*addrBook
	*keyBook
	*protoBook
	*metadataBook
}

var _ peerstore.Peerstore = (*peerstoreImpl)(nil)

// NewPeerstore builds an in-memory Peerstore (SPEC_FULL §4.8).
func NewPeerstore() peerstore.Peerstore {
	return &peerstoreImpl{
		addrBook:     newAddrBook(),
		keyBook:      newKeyBook(),
		protoBook:    newProtoBook(),
		metadataBook: newMetadataBook(),
	}
}

func (ps *peerstoreImpl) PeerInfo(p peer.ID) peer.AddrInfo {
	return peer.AddrInfo{ID: p, Addrs: ps.Addrs(p)}
}

func (ps *peerstoreImpl) Peers() []peer.ID {
	seen := make(map[peer.ID]struct{})
	ps.addrBook.mu.Lock()
	for p := range ps.addrBook.addrs {
		seen[p] = struct{}{}
	}
	for p := range ps.addrBook.signedRecords {
		seen[p] = struct{}{}
	}
	ps.addrBook.mu.Unlock()

	ps.keyBook.mu.RLock()
	for p := range ps.keyBook.pub {
		seen[p] = struct{}{}
	}
	for p := range ps.keyBook.priv {
		seen[p] = struct{}{}
	}
	ps.keyBook.mu.RUnlock()

	out := make([]peer.ID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func (ps *peerstoreImpl) Close() error { return nil }
