// Package upgrader implements the connection upgrader (§4.3): given a raw
// transport.CapableConn, run the Noise XX security handshake and then
// multistream-select a stream multiplexer, producing an UpgradedConn the
// Swarm wraps into its own network.Conn.
package upgrader

import (
	"context"
	"fmt"

	"github.com/stephanfeb/p2p-core/core/muxer"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/protocol"
	"github.com/stephanfeb/p2p-core/core/sec"
	"github.com/stephanfeb/p2p-core/core/transport"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
	"github.com/stephanfeb/p2p-core/p2p/net/multistream"
)

// MuxerID is the only multiplexer this repo negotiates (Yamux, §1).
const MuxerID protocol.ID = "/yamux/1.0.0"

// UpgradedConn is the result of a completed upgrade (§4.3): an
// authenticated remote identity plus a ready-to-use muxed session. The
// Swarm wraps this into its own network.Conn, adding the stream registry,
// stats, and resource scope.
type UpgradedConn struct {
	RemotePeer peer.ID
	RemoteAddr ma.Multiaddr
	LocalAddr  ma.Multiaddr
	Muxed      muxer.MuxedConn
	Secure     sec.SecureConn
	State      network.ConnState
}

// Upgrader runs the security+muxer negotiation for both dial and accept
// paths, configured with the transports the Swarm was built with (§4.3,
// §4.4's transport list).
type Upgrader struct {
	Security sec.SecureTransport
	Muxer    muxer.Multiplexer
}

// New builds an Upgrader over the given security transport and multiplexer.
func New(security sec.SecureTransport, mux muxer.Multiplexer) *Upgrader {
	return &Upgrader{Security: security, Muxer: mux}
}

// UpgradeOutbound runs Noise as initiator, then negotiates the muxer as the
// multistream client side (§4.3 steps 1-3, dialer role).
func (u *Upgrader) UpgradeOutbound(ctx context.Context, raw transport.CapableConn, expectedRemote peer.ID) (*UpgradedConn, error) {
	secConn, err := u.Security.SecureOutbound(ctx, raw, expectedRemote)
	if err != nil {
		return nil, &upgradeError{stage: "secure", err: err}
	}
	_, r, err := multistream.SelectOneOf(secConn, []protocol.ID{MuxerID})
	if err != nil {
		secConn.Close()
		return nil, &upgradeError{stage: "select-muxer", err: err}
	}
	return u.finish(sec.WrapConnReader(secConn, r), raw, false)
}

// UpgradeInbound runs Noise as responder, then negotiates the muxer as the
// multistream server side (§4.3, responder role).
func (u *Upgrader) UpgradeInbound(ctx context.Context, raw transport.CapableConn) (*UpgradedConn, error) {
	secConn, err := u.Security.SecureInbound(ctx, raw)
	if err != nil {
		return nil, &upgradeError{stage: "secure", err: err}
	}
	_, r, err := multistream.Negotiate(secConn, []multistream.Handler{multistream.HandleFunc(MuxerID)})
	if err != nil {
		secConn.Close()
		return nil, &upgradeError{stage: "select-muxer", err: err}
	}
	return u.finish(sec.WrapConnReader(secConn, r), raw, true)
}

func (u *Upgrader) finish(secConn sec.SecureConn, raw transport.CapableConn, isServer bool) (*UpgradedConn, error) {
	muxed, err := u.Muxer.NewConn(secConn, isServer)
	if err != nil {
		secConn.Close()
		return nil, &upgradeError{stage: "mux", err: err}
	}
	state := secConn.ConnState()
	state.Muxer = string(MuxerID)
	return &UpgradedConn{
		RemotePeer: secConn.RemotePeer(),
		RemoteAddr: raw.RemoteMultiaddr(),
		LocalAddr:  raw.LocalMultiaddr(),
		Muxed:      muxed,
		Secure:     secConn,
		State:      state,
	}, nil
}

// upgradeError classifies the stage an upgrade failed at (§5's error
// taxonomy: AuthenticationFailure vs NegotiationFailed).
type upgradeError struct {
	stage string
	err   error
}

func (e *upgradeError) Error() string { return fmt.Sprintf("upgrade %s: %v", e.stage, e.err) }
func (e *upgradeError) Unwrap() error { return e.err }
