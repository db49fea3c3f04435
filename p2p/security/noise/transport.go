// Package noise implements the Noise XX security upgrade (§4.1):
// Noise_XX_25519_ChaChaPoly_SHA256 over github.com/flynn/noise, producing a
// mutually authenticated, AEAD-framed net.Conn. Grounded on the
// TheNoobiCat/go-libp2p p2p/security/noise/session.go reference: same
// secureSession shape (queued-read buffer, insecureConn, enc/dec cipher
// states), adapted onto this repo's core/sec and core/crypto contracts.
package noise

import (
	"context"
	"fmt"
	"net"

	"github.com/flynn/noise"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/core/sec"
)

// ID is the conventional protocol name for this transport. The upgrader runs
// Noise directly and does not negotiate it through multistream-select.
const ID = "/noise"

// protocolName is the first input to the Noise symmetric state (§4.1);
// must match exactly, ASCII, no trailing bytes.
const protocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// Transport is the Noise XX sec.SecureTransport, keyed on this host's
// static libp2p identity.
type Transport struct {
	localID    peer.ID
	privateKey crypto.PrivKey
}

var _ sec.SecureTransport = (*Transport)(nil)

// NewTransport builds a Noise transport for the given identity keypair.
func NewTransport(id peer.ID, privateKey crypto.PrivKey) *Transport {
	return &Transport{localID: id, privateKey: privateKey}
}

// SecureOutbound runs the Noise XX handshake as initiator and verifies the
// remote's derived peer id matches expectedRemote (§4.1).
func (t *Transport) SecureOutbound(ctx context.Context, insecure net.Conn, expectedRemote peer.ID) (sec.SecureConn, error) {
	return newSecureSession(ctx, t, insecure, expectedRemote, true)
}

// SecureInbound runs the Noise XX handshake as responder; the remote
// identity is learned from the handshake payload, not known in advance.
func (t *Transport) SecureInbound(ctx context.Context, insecure net.Conn) (sec.SecureConn, error) {
	return newSecureSession(ctx, t, insecure, "", false)
}

// SecurityProtocolName reports the negotiated security protocol value
// recorded in network.ConnState on upgrade completion.
func (t *Transport) SecurityProtocolName() string { return protocolName }

// noiseError wraps handshake failures so the upgrader can classify them as
// AuthenticationFailure per §5's error taxonomy.
type noiseError struct {
	stage string
	err   error
}

func (e *noiseError) Error() string { return fmt.Sprintf("noise %s: %v", e.stage, e.err) }
func (e *noiseError) Unwrap() error { return e.err }
