// Package pstoremem is the in-memory realization of core/peerstore.Peerstore
// (SPEC_FULL §4.8), grounded on the vendored
// prysmaticlabs/prysm copy of go-libp2p's own p2p/host/peerstore/pstoremem
// package: the same expiringAddr{Addr,TTL,Expires}+lazy-GC address book
// design, adapted to this repo's peer.ID/multiaddr.Multiaddr types and
// extended with CertifiedAddrBook (signed peer record) support.
package pstoremem

import (
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/peerstore"
	"github.com/stephanfeb/p2p-core/core/record"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

var log = logging.Logger("peerstore")

// gcInterval bounds how often an AddAddrs/SetAddrs call sweeps expired
// entries, matching upstream's "gc on every mutation, throttled" approach.
const gcInterval = 10 * time.Minute

type expiringAddr struct {
	Addr    ma.Multiaddr
	TTL     time.Duration
	Expires time.Time
}

func (e expiringAddr) expiredBy(t time.Time) bool { return t.After(e.Expires) }

type addrBook struct {
	mu sync.Mutex

	addrs map[peer.ID]map[string]expiringAddr
	// signedRecords holds the verified peer.Envelope for peers that have
	// pushed one; its addresses supersede plain entries (§4.5 step 3).
	signedRecords map[peer.ID]*record.Envelope

	nextGC time.Time
}

var _ peerstore.CertifiedAddrBook = (*addrBook)(nil)

func newAddrBook() *addrBook {
	return &addrBook{
		addrs:         make(map[peer.ID]map[string]expiringAddr),
		signedRecords: make(map[peer.ID]*record.Envelope),
	}
}

// gc must be called with mu held.
func (b *addrBook) gc() {
	now := time.Now()
	if !now.After(b.nextGC) {
		return
	}
	for p, amap := range b.addrs {
		for k, a := range amap {
			if a.expiredBy(now) {
				delete(amap, k)
			}
		}
		if len(amap) == 0 {
			delete(b.addrs, p)
		}
	}
	b.nextGC = now.Add(gcInterval)
}

func (b *addrBook) AddAddr(p peer.ID, addr ma.Multiaddr, ttl time.Duration) {
	b.AddAddrs(p, []ma.Multiaddr{addr}, ttl)
}

func (b *addrBook) AddAddrs(p peer.ID, addrs []ma.Multiaddr, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	amap := b.addrs[p]
	if amap == nil {
		amap = make(map[string]expiringAddr, len(addrs))
		b.addrs[p] = amap
	}
	exp := time.Now().Add(ttl)
	for _, addr := range addrs {
		if addr.Empty() {
			log.Warnw("ignoring empty multiaddr", "peer", p)
			continue
		}
		key := string(addr.Bytes())
		cur, found := amap[key]
		if !found || exp.After(cur.Expires) {
			amap[key] = expiringAddr{Addr: addr, TTL: ttl, Expires: exp}
		}
	}
	b.gc()
}

func (b *addrBook) SetAddr(p peer.ID, addr ma.Multiaddr, ttl time.Duration) {
	b.SetAddrs(p, []ma.Multiaddr{addr}, ttl)
}

func (b *addrBook) SetAddrs(p peer.ID, addrs []ma.Multiaddr, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	amap := b.addrs[p]
	if amap == nil {
		amap = make(map[string]expiringAddr, len(addrs))
		b.addrs[p] = amap
	}
	exp := time.Now().Add(ttl)
	for _, addr := range addrs {
		if addr.Empty() {
			log.Warnw("ignoring empty multiaddr", "peer", p)
			continue
		}
		key := string(addr.Bytes())
		if ttl > 0 {
			amap[key] = expiringAddr{Addr: addr, TTL: ttl, Expires: exp}
		} else {
			delete(amap, key)
		}
	}
	b.gc()
}

func (b *addrBook) UpdateAddrs(p peer.ID, oldTTL, newTTL time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	amap, found := b.addrs[p]
	if !found {
		return
	}
	exp := time.Now().Add(newTTL)
	for k, a := range amap {
		if a.TTL == oldTTL {
			a.TTL = newTTL
			a.Expires = exp
			amap[k] = a
		}
	}
	b.gc()
}

// Addrs returns a peer's addresses: the signed peer record's addresses if
// one is on file, else the plain (unsigned) address-book entries (§4.5
// step 3 — signed addresses supersede unsigned ones).
func (b *addrBook) Addrs(p peer.ID) []ma.Multiaddr {
	b.mu.Lock()
	defer b.mu.Unlock()

	if env, ok := b.signedRecords[p]; ok {
		if rec, err := record.UnmarshalPeerRecord(env.Payload); err == nil {
			return append([]ma.Multiaddr(nil), rec.Addrs...)
		}
	}

	amap, found := b.addrs[p]
	if !found {
		return nil
	}
	now := time.Now()
	out := make([]ma.Multiaddr, 0, len(amap))
	for k, a := range amap {
		if a.expiredBy(now) {
			delete(amap, k)
			continue
		}
		out = append(out, a.Addr)
	}
	return out
}

func (b *addrBook) ClearAddrs(p peer.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.addrs, p)
	delete(b.signedRecords, p)
}

// ConsumePeerRecord stores env without checking its signature, replacing the
// previously stored record for the same peer only when env's sequence number
// is higher (§4.5 step 3). Returns false (no error) if the stored record's
// sequence number is equal or higher.
func (b *addrBook) ConsumePeerRecord(env *record.Envelope, ttl time.Duration) (bool, error) {
	rec, err := record.UnmarshalPeerRecord(env.Payload)
	if err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.signedRecords[rec.PeerID]; ok {
		if curRec, err := record.UnmarshalPeerRecord(cur.Payload); err == nil && curRec.Seq >= rec.Seq {
			return false, nil
		}
	}
	b.signedRecords[rec.PeerID] = env

	amap := b.addrs[rec.PeerID]
	if amap == nil {
		amap = make(map[string]expiringAddr, len(rec.Addrs))
		b.addrs[rec.PeerID] = amap
	}
	exp := time.Now().Add(ttl)
	for _, addr := range rec.Addrs {
		amap[string(addr.Bytes())] = expiringAddr{Addr: addr, TTL: ttl, Expires: exp}
	}
	b.gc()
	return true, nil
}

func (b *addrBook) GetPeerRecord(p peer.ID) *record.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signedRecords[p]
}
