// Package pb holds the wire envelope for serialized keys.
//
// This is a hand-authored thin codec built on protowire's low-level field
// primitives rather than protoc-generated reflection code: this environment
// never invokes protoc, and the message shapes here (two fields: an enum and
// a byte blob) don't warrant hauling in full descriptor-based proto.Message
// support. The wire format is still standard protobuf and interoperates with
// a real .proto of the obvious shape:
//
//	message PublicKey  { KeyType Type = 1; bytes Data = 2; }
//	message PrivateKey { KeyType Type = 1; bytes Data = 2; }
//	enum KeyType { Ed25519 = 0; Secp256k1 = 1; }
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type KeyType int32

const (
	KeyType_Ed25519   KeyType = 0
	KeyType_Secp256k1 KeyType = 1
)

type PublicKey struct {
	Type KeyType
	Data []byte
}

type PrivateKey struct {
	Type KeyType
	Data []byte
}

func marshalKeyMsg(typ KeyType, data []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(typ))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, data)
	return b
}

func unmarshalKeyMsg(b []byte) (KeyType, []byte, error) {
	var typ KeyType
	var data []byte
	for len(b) > 0 {
		num, wt, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, nil, fmt.Errorf("malformed key envelope: bad tag")
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("malformed key envelope: bad type field")
			}
			typ = KeyType(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("malformed key envelope: bad data field")
			}
			data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wt, b)
			if n < 0 {
				return 0, nil, fmt.Errorf("malformed key envelope: unknown field")
			}
			b = b[n:]
		}
	}
	return typ, data, nil
}

func (k *PublicKey) Marshal() ([]byte, error) { return marshalKeyMsg(k.Type, k.Data), nil }

func (k *PublicKey) Unmarshal(b []byte) error {
	t, d, err := unmarshalKeyMsg(b)
	if err != nil {
		return err
	}
	k.Type, k.Data = t, d
	return nil
}

func (k *PrivateKey) Marshal() ([]byte, error) { return marshalKeyMsg(k.Type, k.Data), nil }

func (k *PrivateKey) Unmarshal(b []byte) error {
	t, d, err := unmarshalKeyMsg(b)
	if err != nil {
		return err
	}
	k.Type, k.Data = t, d
	return nil
}
