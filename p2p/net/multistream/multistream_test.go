package multistream

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/protocol"
)

func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return a, b
}

func TestSelectFirstCandidateAccepted(t *testing.T) {
	client, server := pipe(t)
	defer client.Close()
	defer server.Close()

	serverErr := make(chan error, 1)
	go func() {
		_, _, err := Negotiate(server, []Handler{HandleFunc("/test/1.0.0")})
		serverErr <- err
	}()

	selected, _, err := SelectOneOf(client, []protocol.ID{"/test/1.0.0"})
	require.NoError(t, err)
	require.Equal(t, protocol.ID("/test/1.0.0"), selected)
	require.NoError(t, <-serverErr)
}

func TestSelectFallsBackOnNA(t *testing.T) {
	client, server := pipe(t)
	defer client.Close()
	defer server.Close()

	serverErr := make(chan error, 1)
	go func() {
		_, _, err := Negotiate(server, []Handler{HandleFunc("/test/2.0.0")})
		serverErr <- err
	}()

	selected, _, err := SelectOneOf(client, []protocol.ID{"/test/1.0.0", "/test/2.0.0"})
	require.NoError(t, err)
	require.Equal(t, protocol.ID("/test/2.0.0"), selected)
	require.NoError(t, <-serverErr)
}

func TestSelectExhaustedReturnsNotSupported(t *testing.T) {
	client, server := pipe(t)
	defer client.Close()
	defer server.Close()

	go func() {
		_, _, _ = Negotiate(server, []Handler{HandleFunc("/other/1.0.0")})
	}()

	_, _, err := SelectOneOf(client, []protocol.ID{"/test/1.0.0"})
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestLsReturnsRegisteredProtocols(t *testing.T) {
	client, server := pipe(t)
	defer client.Close()
	defer server.Close()

	go func() {
		_, _, _ = Negotiate(server, []Handler{HandleFunc("/test/1.0.0")})
	}()

	require.NoError(t, writeLine(client, ProtocolID))
	r := bufio.NewReader(client)
	header, err := readLine(r)
	require.NoError(t, err)
	require.Equal(t, ProtocolID, header)

	require.NoError(t, writeLine(client, "ls"))
	reply, err := readLine(r)
	require.NoError(t, err)
	require.Contains(t, reply, "/test/1.0.0")
}

// coalescedConn is a single io.ReadWriter whose incoming side is entirely
// pre-written before the first Read, so one bufio.Reader.fill() pulls both
// the negotiation reply and whatever the peer sent right after it in the
// same underlying read — the scenario that silently dropped bytes before
// SelectOneOf started returning its buffered reader.
type coalescedConn struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (c *coalescedConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *coalescedConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func TestSelectOneOfPreservesBytesBufferedPastTheReply(t *testing.T) {
	in := &bytes.Buffer{}
	require.NoError(t, writeLine(in, ProtocolID))
	require.NoError(t, writeLine(in, "/test/1.0.0"))
	_, err := in.Write([]byte("payload"))
	require.NoError(t, err)

	conn := &coalescedConn{in: in, out: &bytes.Buffer{}}

	selected, r, err := SelectOneOf(conn, []protocol.ID{"/test/1.0.0"})
	require.NoError(t, err)
	require.Equal(t, protocol.ID("/test/1.0.0"), selected)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}
