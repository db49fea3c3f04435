package record

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
	ma "github.com/stephanfeb/p2p-core/multiaddr"
)

// PayloadTypePeerRecord tags an Envelope's payload as a marshaled PeerRecord.
var PayloadTypePeerRecord = []byte("libp2p-peer-record")

// PeerRecordEnvelopeDomain is the signature domain string for peer records (§6).
const PeerRecordEnvelopeDomain = "libp2p-peer-record"

// PeerRecord is a signed statement of {peer_id, seq, addrs} (§3, §4.6).
type PeerRecord struct {
	PeerID peer.ID
	Seq    uint64
	Addrs  []ma.Multiaddr
}

// Marshal serializes the record for sealing into an Envelope.
func (r *PeerRecord) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(r.PeerID))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Seq)
	for _, a := range r.Addrs {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, a.Bytes())
	}
	return b, nil
}

// UnmarshalPeerRecord parses the bytes produced by Marshal.
func UnmarshalPeerRecord(data []byte) (*PeerRecord, error) {
	r := &PeerRecord{}
	for len(data) > 0 {
		num, wt, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("peer record: bad tag")
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("peer record: bad peer id field")
			}
			r.PeerID = peer.ID(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("peer record: bad seq field")
			}
			r.Seq = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("peer record: bad addr field")
			}
			addr, err := ma.NewMultiaddrBytes(v)
			if err != nil {
				return nil, fmt.Errorf("peer record: bad addr value: %w", err)
			}
			r.Addrs = append(r.Addrs, addr)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wt, data)
			if n < 0 {
				return nil, fmt.Errorf("peer record: unknown field")
			}
			data = data[n:]
		}
	}
	return r, nil
}

// Sign marshals r and seals it into a signed Envelope under sk, with the
// domain and payload type identify/the address publisher expect (§4.6).
func (r *PeerRecord) Sign(sk crypto.PrivKey) (*Envelope, error) {
	payload, err := r.Marshal()
	if err != nil {
		return nil, err
	}
	return Seal(sk, PeerRecordEnvelopeDomain, PayloadTypePeerRecord, payload)
}

// ConsumePeerRecordEnvelope checks that env's signing key belongs to
// expectedSigner and decodes its payload as a PeerRecord. It does not verify
// the signature itself; ConsumeEnvelope does that when the envelope is parsed.
func ConsumePeerRecordEnvelope(env *Envelope, expectedSigner peer.ID) (*PeerRecord, error) {
	id, err := peer.IDFromPublicKey(env.PublicKey)
	if err != nil {
		return nil, err
	}
	if !id.Equal(expectedSigner) {
		return nil, fmt.Errorf("peer record: signer %s does not match expected %s", id, expectedSigner)
	}
	return UnmarshalPeerRecord(env.Payload)
}
