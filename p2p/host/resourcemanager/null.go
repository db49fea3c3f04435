// Package resourcemanager ships the one concrete network.ResourceManager
// realization this module carries: a permissive no-op that grants every
// reservation and never throttles (§4.9). core/network treats the resource
// manager as an external collaborator so a real accounting tree (memory
// limits, per-service/per-peer ledgers, scope trees) can be dropped in later
// without touching any call site that opens or closes a scope.
package resourcemanager

import (
	"sync"

	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// NullResourceManager grants every ReserveMemory/OpenConnection/OpenStream
// call unconditionally. Done is safe to call more than once.
type NullResourceManager struct{}

var _ network.ResourceManager = NullResourceManager{}

// NewNullResourceManager returns the permissive shim.
func NewNullResourceManager() network.ResourceManager {
	return NullResourceManager{}
}

func (NullResourceManager) OpenConnection(dir network.Direction, usefd bool, remote ma.Multiaddr) (network.ConnManagementScope, error) {
	return newNullScope(), nil
}

func (NullResourceManager) OpenStream(p peer.ID, dir network.Direction) (network.StreamManagementScope, error) {
	return newNullScope(), nil
}

func (NullResourceManager) ViewSystem(f func(network.ResourceScope) error) error {
	return f(newNullScope())
}

func (NullResourceManager) ViewPeer(p peer.ID, f func(network.ResourceScope) error) error {
	return f(newNullScope())
}

func (NullResourceManager) Close() error { return nil }

// nullScope satisfies ConnManagementScope and StreamManagementScope alike:
// every reservation succeeds, SetService/SetPeer are accepted and
// discarded, and Done is idempotent via a sync.Once guard (§9 design note:
// single-shot scope-close guards).
type nullScope struct {
	once sync.Once
}

func newNullScope() *nullScope { return &nullScope{} }

func (s *nullScope) ReserveMemory(size int, prio network.ReservationPriority) error { return nil }
func (s *nullScope) ReleaseMemory(size int)                                        {}
func (s *nullScope) Done()                                                         { s.once.Do(func() {}) }
func (s *nullScope) SetService(name string) error                                  { return nil }
func (s *nullScope) SetPeer(peer.ID) error                                         { return nil }
