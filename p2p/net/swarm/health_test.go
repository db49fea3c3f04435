package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/muxer"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/host/resourcemanager"
	"github.com/stephanfeb/p2p-core/p2p/net/upgrader"
)

// minimalSwarmForHealth builds just enough of a Swarm for connHealth's
// scheduleRemoval (removeConn + notifyAll) to run without panicking, without
// standing up real transports/upgraders.
func minimalSwarmForHealth() *Swarm {
	return &Swarm{
		conns:    make(map[peer.ID][]*Conn),
		notifees: make(map[network.Notifiee]struct{}),
	}
}

// noopMuxedConn satisfies muxer.MuxedConn so scheduleRemoval's async
// conn.Close() has something real to call, without a live session.
type noopMuxedConn struct{}

func (noopMuxedConn) Close() error                                       { return nil }
func (noopMuxedConn) IsClosed() bool                                     { return true }
func (noopMuxedConn) OpenStream(context.Context) (muxer.MuxedStream, error) { return nil, nil }
func (noopMuxedConn) AcceptStream() (muxer.MuxedStream, error)           { return nil, nil }

func newHealthTestConn(p peer.ID) *Conn {
	s := minimalSwarmForHealth()
	scope, _ := resourcemanager.NewNullResourceManager().OpenConnection(network.DirOutbound, false, ma.Multiaddr{})
	c := &Conn{
		swarm:      s,
		remotePeer: p,
		closed:     make(chan struct{}),
		up:         &upgrader.UpgradedConn{RemotePeer: p, Muxed: noopMuxedConn{}},
		scope:      scope,
	}
	s.conns[p] = []*Conn{c}
	return c
}

func TestHealthDegradesThenFailsAfterThreeConnErrors(t *testing.T) {
	c := newHealthTestConn(peer.ID("p1"))
	h := newConnHealth(c)
	c.health = h

	h.onConnError()
	require.Equal(t, healthDegraded, h.state)
	h.onConnError()
	require.Equal(t, healthDegraded, h.state)
	h.onConnError()
	require.Equal(t, healthFailed, h.state)
	time.Sleep(10 * time.Millisecond) // let the async removal goroutine settle
}

func TestHealthPromotesThreeStreamErrorsToConnError(t *testing.T) {
	c := newHealthTestConn(peer.ID("p2"))
	h := newConnHealth(c)
	c.health = h

	h.onStreamError()
	require.Equal(t, healthHealthy, h.state)
	h.onStreamError()
	require.Equal(t, healthHealthy, h.state)
	h.onStreamError()
	require.Equal(t, healthDegraded, h.state)
}

func TestHealthStreamOpenResetsConsecutiveErrors(t *testing.T) {
	h := &connHealth{state: healthDegraded, consecutiveErrs: 2}
	h.onStreamOpened()
	require.Equal(t, healthHealthy, h.state)
	require.Equal(t, 0, h.consecutiveErrs)
}

func TestHealthRemoteCloseFailsImmediately(t *testing.T) {
	c := newHealthTestConn(peer.ID("p3"))
	h := newConnHealth(c)
	c.health = h
	h.onRemoteClose()
	require.Equal(t, healthFailed, h.state)
	time.Sleep(10 * time.Millisecond)
}
