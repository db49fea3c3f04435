// Package peerstore defines the typed key-value store with TTL semantics
// the core consumes as an external collaborator (§1, §3). A concrete
// in-memory realization lives at p2p/peerstore/pstoremem.
package peerstore

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	"github.com/stephanfeb/p2p-core/core/record"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// TTL constants referenced throughout §4.5 and §4.6.
const (
	TempAddrTTL             = 2 * time.Minute
	RecentlyConnectedAddrTTL = 30 * time.Minute
	ConnectedAddrTTL        = time.Duration(math.MaxInt64 - 1) // no fixed expiry while connected; identify moves it to RecentlyConnectedAddrTTL on disconnect
	OwnObservedAddrTTL      = 10 * time.Minute
	ConnectTTL              = 5 * time.Minute
)

var ErrNotFound = errors.New("peerstore: item not found")

// AddrBook stores addresses per peer with per-entry TTLs.
type AddrBook interface {
	AddAddr(p peer.ID, addr ma.Multiaddr, ttl time.Duration)
	AddAddrs(p peer.ID, addrs []ma.Multiaddr, ttl time.Duration)
	SetAddr(p peer.ID, addr ma.Multiaddr, ttl time.Duration)
	SetAddrs(p peer.ID, addrs []ma.Multiaddr, ttl time.Duration)
	UpdateAddrs(p peer.ID, oldTTL, newTTL time.Duration)
	Addrs(p peer.ID) []ma.Multiaddr
	ClearAddrs(p peer.ID)
}

// CertifiedAddrBook additionally stores a verified signed peer record whose
// addresses supersede the plain AddrBook entries when present (§4.5 step 3).
type CertifiedAddrBook interface {
	AddrBook
	ConsumePeerRecord(env *record.Envelope, ttl time.Duration) (bool, error)
	GetPeerRecord(p peer.ID) *record.Envelope
}

// KeyBook stores public/private identity keys per peer.
type KeyBook interface {
	PubKey(p peer.ID) crypto.PubKey
	AddPubKey(p peer.ID, pk crypto.PubKey) error
	PrivKey(p peer.ID) crypto.PrivKey
	AddPrivKey(p peer.ID, sk crypto.PrivKey) error
}

// ProtoBook stores the set of protocols a peer is known to support.
type ProtoBook interface {
	GetProtocols(p peer.ID) ([]protocol.ID, error)
	SetProtocols(p peer.ID, protos ...protocol.ID) error
	AddProtocols(p peer.ID, protos ...protocol.ID) error
	RemoveProtocols(p peer.ID, protos ...protocol.ID) error
	SupportsProtocols(p peer.ID, protos ...protocol.ID) ([]protocol.ID, error)
	FirstSupportedProtocol(p peer.ID, protos ...protocol.ID) (protocol.ID, error)
}

// Metadata stores arbitrary small per-peer key-value metadata (AgentVersion,
// ProtocolVersion, etc; §4.5 step 5).
type Metadata interface {
	Get(p peer.ID, key string) (any, error)
	Put(p peer.ID, key string, val any) error
}

// Peerstore composes all the books the core's protocols use.
type Peerstore interface {
	AddrBook
	KeyBook
	ProtoBook
	Metadata
	io.Closer

	PeerInfo(p peer.ID) peer.AddrInfo
	Peers() []peer.ID
}

// GetCertifiedAddrBook returns ps as a CertifiedAddrBook if its AddrBook
// implementation supports signed peer records (§4.5 step 3).
func GetCertifiedAddrBook(ps Peerstore) (CertifiedAddrBook, bool) {
	cab, ok := ps.(CertifiedAddrBook)
	return cab, ok
}
