package record

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// marshalEnvelopeMsg / unmarshalEnvelopeMsg implement the wire shape:
//
//	message Envelope {
//	  bytes public_key   = 1;
//	  bytes payload_type = 2;
//	  bytes payload      = 3;
//	  bytes signature    = 5;
//	}
//
// hand-authored on protowire primitives for the reasons given in
// core/crypto/pb: protoc is never invoked in this environment.
func marshalEnvelopeMsg(publicKey, payloadType, payload, signature []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, publicKey)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, payloadType)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, signature)
	return b
}

func unmarshalEnvelopeMsg(b []byte) (publicKey, payloadType, payload, signature []byte, err error) {
	for len(b) > 0 {
		num, wt, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, nil, nil, nil, fmt.Errorf("bad tag")
		}
		b = b[n:]
		if wt != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, wt, b)
			if n < 0 {
				return nil, nil, nil, nil, fmt.Errorf("bad field")
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, nil, nil, nil, fmt.Errorf("bad bytes field %d", num)
		}
		cp := append([]byte(nil), v...)
		switch num {
		case 1:
			publicKey = cp
		case 2:
			payloadType = cp
		case 3:
			payload = cp
		case 5:
			signature = cp
		}
		b = b[n:]
	}
	return
}
