package pb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := &Identify{
		PublicKey:        []byte("pubkey"),
		ListenAddrs:      [][]byte{[]byte("addr1"), []byte("addr2")},
		Protocols:        []string{"/a/1.0.0", "/b/1.0.0"},
		ObservedAddr:     []byte("observed"),
		ProtocolVersion:  "ipfs/0.1.0",
		AgentVersion:     "test-agent",
		SignedPeerRecord: []byte("envelope"),
	}
	data := m.Marshal()
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMergeChunkAppendsAdditively(t *testing.T) {
	base := &Identify{ProtocolVersion: "v1", ListenAddrs: [][]byte{[]byte("a1")}}
	chunk := &Identify{SignedPeerRecord: []byte("env"), ListenAddrs: [][]byte{[]byte("a2")}}
	base.MergeChunk(chunk)
	require.Equal(t, "v1", base.ProtocolVersion)
	require.Equal(t, []byte("env"), base.SignedPeerRecord)
	require.Len(t, base.ListenAddrs, 2)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}
