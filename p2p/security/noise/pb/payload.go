// Package pb hand-codes the wire format of the libp2p Noise handshake
// payload (identity_key, identity_sig, extensions) directly on
// google.golang.org/protobuf/encoding/protowire, for the same reason as
// core/crypto/pb and core/record: protoc is never invoked in this
// environment, so there is no generated proto.Message to marshal through
// reflection. The wire bytes this produces are standard protobuf and
// interoperate with a generated-code implementation on the other end.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// NoiseExtensions carries the optional early-negotiation hints (e.g. the
// muxers this side would pick) inside the handshake payload.
type NoiseExtensions struct {
	StreamMuxers     []string
	WebtransportCerts [][]byte
}

func (e *NoiseExtensions) marshal(b []byte) []byte {
	if e == nil {
		return b
	}
	for _, m := range e.StreamMuxers {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m)
	}
	for _, c := range e.WebtransportCerts {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	}
	return b
}

func unmarshalExtensions(data []byte) (*NoiseExtensions, error) {
	ext := &NoiseExtensions{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			ext.StreamMuxers = append(ext.StreamMuxers, string(v))
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			ext.WebtransportCerts = append(ext.WebtransportCerts, append([]byte(nil), v...))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return ext, nil
}

// NoiseHandshakePayload is the message exchanged inside the encrypted
// Noise channel (§4.1): identity_key=1, identity_sig=2, extensions=3.
type NoiseHandshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
	Extensions  *NoiseExtensions
}

// Marshal serializes the payload.
func (m *NoiseHandshakePayload) Marshal() []byte {
	var b []byte
	if len(m.IdentityKey) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.IdentityKey)
	}
	if len(m.IdentitySig) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m.IdentitySig)
	}
	if m.Extensions != nil {
		var eb []byte
		eb = m.Extensions.marshal(eb)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, eb)
	}
	return b
}

// Unmarshal parses the payload.
func (m *NoiseHandshakePayload) Unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.IdentityKey = append([]byte(nil), v...)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.IdentitySig = append([]byte(nil), v...)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			ext, err := unmarshalExtensions(v)
			if err != nil {
				return fmt.Errorf("noise payload: extensions: %w", err)
			}
			m.Extensions = ext
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}
