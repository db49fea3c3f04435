package swarm

import (
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/transport"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
)

// acceptLoop pulls raw conns off a listener, upgrades each inbound, and on
// success inserts it into the conn map and starts its accept-stream loop
// (§4.4 accept loop). A listener error removes it from the active set.
func (s *Swarm) acceptLoop(ln transport.Listener) {
	defer s.wg.Done()
	for {
		raw, err := ln.Accept()
		if err != nil {
			s.dropListener(ln)
			return
		}
		go s.upgradeInbound(raw)
	}
}

func (s *Swarm) upgradeInbound(raw transport.CapableConn) {
	up, err := s.upgrader.UpgradeInbound(s.ctx, raw)
	if err != nil {
		log.Warnw("inbound upgrade failed", "remote", raw.RemoteMultiaddr(), "error", err)
		raw.Close()
		return
	}
	c := newConn(s, up, network.DirInbound)
	s.addConn(c)
}

func (s *Swarm) dropListener(ln transport.Listener) {
	s.listenersMu.Lock()
	for i, existing := range s.listeners {
		if existing == ln {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			break
		}
	}
	s.listenersMu.Unlock()
	s.notifyAll(func(n network.Notifiee) { n.ListenClose(s, ln.Multiaddr()) })
}

// acceptStreamLoop repeatedly accepts muxed streams on c, negotiates a
// protocol via multistream-select, and dispatches to the matching handler.
// A stream with no matching protocol is reset. The loop exits when the
// underlying session is gone; any error closes the connection (§4.4
// accept-stream loop).
func (s *Swarm) acceptStreamLoop(c *Conn) {
	defer s.wg.Done()
	for {
		ms, err := c.up.Muxed.AcceptStream()
		if err != nil {
			c.health.onConnError()
			c.Close()
			return
		}
		st := newStream(c, ms, network.DirInbound)
		c.registerStream(st)
		go s.dispatchStream(c, st)
	}
}

func (s *Swarm) dispatchStream(c *Conn, st *Stream) {
	id, r, err := multistream.Negotiate(st, s.negotiateHandlers())
	if err != nil {
		st.Reset()
		return
	}
	st.SetProtocol(id)
	handler := s.handlerFor(id)
	if handler == nil {
		st.Reset()
		return
	}
	c.health.onStreamOpened()
	handler(network.WrapStreamReader(st, r))
}
