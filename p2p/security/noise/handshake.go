package noise

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/flynn/noise"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	"github.com/stephanfeb/p2p-core/p2p/security/noise/pb"
)

// payloadSigPrefix is prepended to the noise static public key before
// signing, binding the ephemeral Noise identity to the libp2p identity key
// (§4.1 libp2p handshake payload).
const payloadSigPrefix = "noise-libp2p-static-key:"

// runHandshake drives the three-message Noise XX pattern to completion,
// exchanges and verifies the libp2p identity payload, and installs the
// resulting directional cipher states (§4.1).
func (s *secureSession) runHandshake(ctx context.Context, expectedRemote peer.ID) error {
	dhKey, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return &noiseError{stage: "keygen", err: err}
	}

	payload, err := s.makeHandshakePayload(dhKey)
	if err != nil {
		return &noiseError{stage: "payload", err: err}
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     s.initiator,
		StaticKeypair: dhKey,
		Random:        rand.Reader,
	})
	if err != nil {
		return &noiseError{stage: "init", err: err}
	}

	var remotePayload []byte
	if s.initiator {
		remotePayload, err = s.runInitiatorHandshake(hs, payload)
	} else {
		remotePayload, err = s.runResponderHandshake(hs, payload)
	}
	if err != nil {
		return err
	}

	remoteID, remoteKey, err := verifyHandshakePayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return &noiseError{stage: "verify-payload", err: err}
	}
	if s.initiator && expectedRemote != "" && remoteID != expectedRemote {
		return &noiseError{stage: "verify-payload", err: fmt.Errorf("remote peer id mismatch: expected %s, got %s", expectedRemote, remoteID)}
	}

	s.remoteID = remoteID
	s.remoteKey = remoteKey
	s.connState.Security = protocolName
	return nil
}

// runInitiatorHandshake sends message 1 (e), receives message 2 (e, ee, s,
// es) carrying the responder's payload, then sends message 3 (s, se)
// carrying our own payload. The third exchange yields the cipher states.
func (s *secureSession) runInitiatorHandshake(hs *noise.HandshakeState, payload []byte) ([]byte, error) {
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, &noiseError{stage: "write-msg1", err: err}
	}
	if err := s.writeFrame(msg1); err != nil {
		return nil, err
	}

	frame2, err := s.readFrame()
	if err != nil {
		return nil, &noiseError{stage: "read-msg2", err: err}
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, frame2)
	if err != nil {
		return nil, &noiseError{stage: "read-msg2", err: err}
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, &noiseError{stage: "write-msg3", err: err}
	}
	if err := s.writeFrame(msg3); err != nil {
		return nil, err
	}
	s.enc, s.dec = cs1, cs2
	return remotePayload, nil
}

// runResponderHandshake receives message 1 (e), sends message 2 (e, ee, s,
// es) carrying our payload, then receives message 3 (s, se) carrying the
// initiator's payload. The third exchange yields the cipher states.
func (s *secureSession) runResponderHandshake(hs *noise.HandshakeState, payload []byte) ([]byte, error) {
	frame1, err := s.readFrame()
	if err != nil {
		return nil, &noiseError{stage: "read-msg1", err: err}
	}
	if _, _, _, err := hs.ReadMessage(nil, frame1); err != nil {
		return nil, &noiseError{stage: "read-msg1", err: err}
	}

	msg2, _, _, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, &noiseError{stage: "write-msg2", err: err}
	}
	if err := s.writeFrame(msg2); err != nil {
		return nil, err
	}

	frame3, err := s.readFrame()
	if err != nil {
		return nil, &noiseError{stage: "read-msg3", err: err}
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, frame3)
	if err != nil {
		return nil, &noiseError{stage: "read-msg3", err: err}
	}
	s.enc, s.dec = cs2, cs1
	return remotePayload, nil
}

// makeHandshakePayload builds the protobuf payload that binds noiseStaticPub
// to our libp2p identity key via a signature (§4.1).
func (s *secureSession) makeHandshakePayload(dhKey noise.DHKey) ([]byte, error) {
	identityKeyBytes, err := crypto.MarshalPublicKey(s.localKey.GetPublic())
	if err != nil {
		return nil, err
	}
	sig, err := s.localKey.Sign(append([]byte(payloadSigPrefix), dhKey.Public...))
	if err != nil {
		return nil, err
	}
	msg := &pb.NoiseHandshakePayload{
		IdentityKey: identityKeyBytes,
		IdentitySig: sig,
	}
	return msg.Marshal(), nil
}

// verifyHandshakePayload parses the remote's payload, derives its peer id,
// and checks the signature binds noiseStaticPub to that identity (§4.1).
func verifyHandshakePayload(payload []byte, noiseStaticPub []byte) (peer.ID, crypto.PubKey, error) {
	var msg pb.NoiseHandshakePayload
	if err := msg.Unmarshal(payload); err != nil {
		return "", nil, fmt.Errorf("malformed handshake payload: %w", err)
	}
	remoteKey, err := crypto.UnmarshalPublicKey(msg.IdentityKey)
	if err != nil {
		return "", nil, fmt.Errorf("malformed identity key: %w", err)
	}
	ok, err := remoteKey.Verify(append([]byte(payloadSigPrefix), noiseStaticPub...), msg.IdentitySig)
	if err != nil {
		return "", nil, fmt.Errorf("signature verification error: %w", err)
	}
	if !ok {
		return "", nil, fmt.Errorf("identity signature does not match noise static key")
	}
	remoteID, err := peer.IDFromPublicKey(remoteKey)
	if err != nil {
		return "", nil, err
	}
	return remoteID, remoteKey, nil
}
