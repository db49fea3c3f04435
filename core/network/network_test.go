package network

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/protocol"
)

// fakeStream implements Stream with just enough to prove WrapStreamReader
// routes Read through the replacement reader while leaving every other
// method delegated to the original.
type fakeStream struct {
	id string
}

func (f *fakeStream) ID() string                      { return f.id }
func (f *fakeStream) Protocol() protocol.ID            { return "" }
func (f *fakeStream) SetProtocol(protocol.ID) error    { return nil }
func (f *fakeStream) Conn() Conn                       { return nil }
func (f *fakeStream) Direction() Direction             { return DirOutbound }
func (f *fakeStream) Stat() Stats                      { return Stats{} }
func (f *fakeStream) Read(p []byte) (int, error)       { panic("should not be called once wrapped") }
func (f *fakeStream) Write(p []byte) (int, error)      { return len(p), nil }
func (f *fakeStream) CloseRead() error                 { return nil }
func (f *fakeStream) CloseWrite() error                { return nil }
func (f *fakeStream) Close() error                     { return nil }
func (f *fakeStream) Reset() error                     { return nil }
func (f *fakeStream) SetDeadline(time.Time) error      { return nil }
func (f *fakeStream) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeStream) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeStream) Scope() StreamScope               { return nil }

func TestWrapStreamReaderRoutesReadsThroughReplacement(t *testing.T) {
	inner := &fakeStream{id: "s1"}
	wrapped := WrapStreamReader(inner, strings.NewReader("leftover"))

	got, err := io.ReadAll(wrapped)
	require.NoError(t, err)
	require.Equal(t, "leftover", string(got))

	require.Equal(t, "s1", wrapped.ID())
}
