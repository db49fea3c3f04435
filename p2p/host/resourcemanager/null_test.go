package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/network"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

func TestNullScopeGrantsAndDoneIsIdempotent(t *testing.T) {
	rm := NewNullResourceManager()
	scope, err := rm.OpenConnection(network.DirOutbound, false, ma.Multiaddr{})
	require.NoError(t, err)
	require.NoError(t, scope.ReserveMemory(1<<20, network.ReservationPriorityAlways))
	scope.ReleaseMemory(1 << 10)
	require.NoError(t, scope.SetPeer("")) // peer.ID("") accepted, never validated

	require.NotPanics(t, func() {
		scope.Done()
		scope.Done()
	})
}

func TestNullResourceManagerViewSystem(t *testing.T) {
	rm := NewNullResourceManager()
	called := false
	err := rm.ViewSystem(func(s network.ResourceScope) error {
		called = true
		return s.ReserveMemory(1, network.ReservationPriorityDefault)
	})
	require.NoError(t, err)
	require.True(t, called)
}
