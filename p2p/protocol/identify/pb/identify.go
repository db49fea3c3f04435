// Package pb hand-codes the wire format of the Identify message (§4.5).
// No protoc is invoked in this environment; field numbers follow the
// upstream identify.proto so the layout matches what a generated struct
// would have produced.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Identify is the on-wire message exchanged by /ipfs/id/1.0.0 and
// /ipfs/id/push/1.0.0. All fields are optional in the protobuf sense;
// zero values are simply omitted on marshal.
type Identify struct {
	PublicKey        []byte
	ListenAddrs      [][]byte
	Protocols        []string
	ObservedAddr     []byte
	ProtocolVersion  string
	AgentVersion     string
	SignedPeerRecord []byte
}

const (
	fieldPublicKey        = 1
	fieldListenAddrs      = 2
	fieldProtocols        = 3
	fieldObservedAddr     = 4
	fieldProtocolVersion  = 5
	fieldAgentVersion     = 6
	fieldSignedPeerRecord = 8
)

// Marshal serializes m in protobuf wire format.
func (m *Identify) Marshal() []byte {
	var b []byte
	if len(m.PublicKey) > 0 {
		b = protowire.AppendTag(b, fieldPublicKey, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PublicKey)
	}
	for _, a := range m.ListenAddrs {
		b = protowire.AppendTag(b, fieldListenAddrs, protowire.BytesType)
		b = protowire.AppendBytes(b, a)
	}
	for _, p := range m.Protocols {
		b = protowire.AppendTag(b, fieldProtocols, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}
	if len(m.ObservedAddr) > 0 {
		b = protowire.AppendTag(b, fieldObservedAddr, protowire.BytesType)
		b = protowire.AppendBytes(b, m.ObservedAddr)
	}
	if m.ProtocolVersion != "" {
		b = protowire.AppendTag(b, fieldProtocolVersion, protowire.BytesType)
		b = protowire.AppendString(b, m.ProtocolVersion)
	}
	if m.AgentVersion != "" {
		b = protowire.AppendTag(b, fieldAgentVersion, protowire.BytesType)
		b = protowire.AppendString(b, m.AgentVersion)
	}
	if len(m.SignedPeerRecord) > 0 {
		b = protowire.AppendTag(b, fieldSignedPeerRecord, protowire.BytesType)
		b = protowire.AppendBytes(b, m.SignedPeerRecord)
	}
	return b
}

// Unmarshal parses data produced by Marshal (or a chunked concatenation of
// such payloads, since the field set is append-only across chunks).
func Unmarshal(data []byte) (*Identify, error) {
	m := &Identify{}
	for len(data) > 0 {
		num, wt, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("identify: bad tag")
		}
		data = data[n:]
		switch num {
		case fieldPublicKey:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.PublicKey = v
			data = data[n:]
		case fieldListenAddrs:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.ListenAddrs = append(m.ListenAddrs, v)
			data = data[n:]
		case fieldProtocols:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.Protocols = append(m.Protocols, string(v))
			data = data[n:]
		case fieldObservedAddr:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.ObservedAddr = v
			data = data[n:]
		case fieldProtocolVersion:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.ProtocolVersion = string(v)
			data = data[n:]
		case fieldAgentVersion:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.AgentVersion = string(v)
			data = data[n:]
		case fieldSignedPeerRecord:
			v, n, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.SignedPeerRecord = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wt, data)
			if n < 0 {
				return nil, fmt.Errorf("identify: unknown field %d", num)
			}
			data = data[n:]
		}
	}
	return m, nil
}

func consumeBytes(data []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, fmt.Errorf("identify: malformed bytes field")
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

// MergeChunk appends the fields of a continuation chunk onto m, implementing
// the "everything except the signed record, then the signed record alone"
// chunking rule (§4.5) from the receiver side: a chunk only ever adds fields,
// never replaces ones already set by an earlier chunk.
func (m *Identify) MergeChunk(chunk *Identify) {
	if len(chunk.PublicKey) > 0 {
		m.PublicKey = chunk.PublicKey
	}
	m.ListenAddrs = append(m.ListenAddrs, chunk.ListenAddrs...)
	m.Protocols = append(m.Protocols, chunk.Protocols...)
	if len(chunk.ObservedAddr) > 0 {
		m.ObservedAddr = chunk.ObservedAddr
	}
	if chunk.ProtocolVersion != "" {
		m.ProtocolVersion = chunk.ProtocolVersion
	}
	if chunk.AgentVersion != "" {
		m.AgentVersion = chunk.AgentVersion
	}
	if len(chunk.SignedPeerRecord) > 0 {
		m.SignedPeerRecord = chunk.SignedPeerRecord
	}
}
