// Package record implements the signed-envelope format used to carry a
// PeerRecord that third parties can forward without being able to forge (§6).
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/stephanfeb/p2p-core/core/crypto"
)

// Envelope is {public_key, payload_type, payload, signature}, signed over
// domain || payload_type || payload per the length-prefixed scheme in §6.
type Envelope struct {
	PublicKey   crypto.PubKey
	PayloadType []byte
	Payload     []byte
	Signature   []byte
}

var ErrInvalidSignature = errors.New("record envelope: invalid signature")
var ErrMalformedEnvelope = errors.New("record envelope: malformed")

func signaturePreimage(domain string, payloadType, payload []byte) []byte {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(domain))
	buf = appendLenPrefixed(buf, payloadType)
	buf = appendLenPrefixed(buf, payload)
	return buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, data...)
	return buf
}

// Seal signs payload (tagged with payloadType) under sk for the given domain,
// producing a forwardable Envelope.
func Seal(sk crypto.PrivKey, domain string, payloadType, payload []byte) (*Envelope, error) {
	sig, err := sk.Sign(signaturePreimage(domain, payloadType, payload))
	if err != nil {
		return nil, err
	}
	return &Envelope{
		PublicKey:   sk.GetPublic(),
		PayloadType: payloadType,
		Payload:     payload,
		Signature:   sig,
	}, nil
}

// Marshal serializes the envelope to bytes using the pb wire codec.
func (e *Envelope) Marshal() ([]byte, error) {
	pk, err := crypto.MarshalPublicKey(e.PublicKey)
	if err != nil {
		return nil, err
	}
	return marshalEnvelopeMsg(pk, e.PayloadType, e.Payload, e.Signature), nil
}

// ConsumeEnvelope parses and verifies data against domain, returning the
// envelope plus its decoded payload bytes on success.
func ConsumeEnvelope(data []byte, domain string) (*Envelope, []byte, error) {
	pkBytes, payloadType, payload, sig, err := unmarshalEnvelopeMsg(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMalformedEnvelope, err)
	}
	pk, err := crypto.UnmarshalPublicKey(pkBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad public key: %s", ErrMalformedEnvelope, err)
	}
	ok, err := pk.Verify(signaturePreimage(domain, payloadType, payload), sig)
	if err != nil || !ok {
		return nil, nil, ErrInvalidSignature
	}
	return &Envelope{PublicKey: pk, PayloadType: payloadType, Payload: payload, Signature: sig}, payload, nil
}

// Equal compares two envelopes by marshaled bytes, used by the identify
// snapshot content comparison (§4.5).
func (e *Envelope) Equal(o *Envelope) bool {
	if e == nil || o == nil {
		return e == o
	}
	a, err1 := e.Marshal()
	b, err2 := o.Marshal()
	if err1 != nil || err2 != nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
