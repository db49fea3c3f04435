// Package multistream implements multistream-select (§4.2): a line-based
// protocol negotiation run over a single stream, used both to pick a stream
// multiplexer during connection upgrade and to pick an application protocol
// when opening a new stream. The wire format (and its version header) is
// github.com/multiformats/go-multistream's; the negotiator itself is
// reimplemented directly here so it speaks this repo's protocol.ID/
// io.ReadWriter types without an adapter layer in between.
package multistream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	gomultistream "github.com/multiformats/go-multistream"
	"github.com/multiformats/go-varint"

	"github.com/stephanfeb/p2p-core/core/protocol"
)

// ProtocolID is the multistream-select version header exchanged first on
// every negotiation (§4.2 step 1); reuses go-multistream's own constant so
// this reimplementation stays byte-compatible with the wire format it defines.
const ProtocolID = gomultistream.ProtocolID

// naMsg and lsMsg are the two control strings beyond the version header
// (§4.2, §6 "Required control strings").
const (
	naMsg = "na"
	lsMsg = "ls"
)

var (
	// ErrNotSupported is returned by SelectOneOf when every candidate was
	// rejected with "na" (§4.2 step 3: "exhausted -> return None").
	ErrNotSupported = errors.New("multistream: protocol not supported")
	// ErrUnexpectedResponse is returned when a reply matches neither a
	// candidate ID nor "na" (§4.2 step 2: "reply unrecognized -> fail").
	ErrUnexpectedResponse = errors.New("multistream: unexpected response")
)

// writeLine writes one multistream line: uvarint(len(s)+1) || s || '\n'
// (§4.2, §6 "Multistream wire format").
func writeLine(w io.Writer, s string) error {
	full := s + "\n"
	lenBuf := varint.ToUvarint(uint64(len(full)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := io.WriteString(w, full)
	return err
}

// readLine reads one multistream line and returns it with the trailing
// newline stripped.
func readLine(r *bufio.Reader) (string, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", fmt.Errorf("multistream: zero-length line")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if buf[len(buf)-1] != '\n' {
		return "", fmt.Errorf("multistream: line missing trailing newline")
	}
	return string(buf[:len(buf)-1]), nil
}

// exchangeHeader performs the symmetric version handshake: write the
// header, then read and verify the peer wrote the same one (§4.2 step 1).
func exchangeHeader(w io.Writer, r *bufio.Reader) error {
	if err := writeLine(w, ProtocolID); err != nil {
		return err
	}
	got, err := readLine(r)
	if err != nil {
		return err
	}
	if got != ProtocolID {
		return fmt.Errorf("multistream: unexpected header %q", got)
	}
	return nil
}

// SelectOneOf runs the client side of negotiation (§4.2 "select_one_of"):
// exchanges the version header, then offers each candidate in order until
// one is accepted, returns ErrNotSupported if all are rejected.
//
// It returns the *bufio.Reader the negotiation read through. bufio.Reader.fill
// issues a single underlying Read that can pull bytes past the negotiated
// reply into its buffer (e.g. when the peer writes its next message
// immediately after the reply and the transport coalesces both into one
// read); those bytes would be lost if the caller switched back to reading
// rw directly. Callers must keep reading the stream through the returned
// reader (network.WrapStreamReader/sec.WrapConnReader) rather than rw.
func SelectOneOf(rw io.ReadWriter, candidates []protocol.ID) (protocol.ID, *bufio.Reader, error) {
	r := bufio.NewReader(rw)
	if err := exchangeHeader(rw, r); err != nil {
		return "", r, err
	}
	for _, candidate := range candidates {
		if err := writeLine(rw, string(candidate)); err != nil {
			return "", r, err
		}
		reply, err := readLine(r)
		if err != nil {
			return "", r, err
		}
		switch reply {
		case string(candidate):
			return candidate, r, nil
		case naMsg:
			continue
		default:
			return "", r, fmt.Errorf("%w: got %q, wanted %q or %q", ErrUnexpectedResponse, reply, candidate, naMsg)
		}
	}
	return "", r, ErrNotSupported
}

// HandlerFunc is invoked with the negotiated protocol once a server-side
// match is found.
type HandlerFunc func(protocol.ID)

// Matcher decides whether a registered handler accepts a requested protocol
// ID; exact-match registration and predicate (SetStreamHandlerMatch)
// registration both implement this the same way (§4.6).
type Matcher func(protocol.ID) bool

// Handler pairs a match predicate with the protocol ID to report back to
// the caller on a match — which may differ from the requested ID for
// prefix/semver matchers, though this repo only registers exact matchers.
type Handler struct {
	Match Matcher
	ID    protocol.ID
}

// HandleFunc builds an exact-match Handler for id.
func HandleFunc(id protocol.ID) Handler {
	return Handler{ID: id, Match: func(p protocol.ID) bool { return p == id }}
}

// Negotiate runs the server side of negotiation (§4.2): exchanges the
// version header, then reads candidate IDs one at a time, consulting
// handlers in registration order, responding with the accepted ID or "na".
// "ls" is answered with the registered protocol list as a single framed
// reply, per the required control strings (§6).
//
// See SelectOneOf's doc comment for why the returned *bufio.Reader, not rw,
// must carry every read for the rest of the connection's/stream's life.
func Negotiate(rw io.ReadWriter, handlers []Handler) (protocol.ID, *bufio.Reader, error) {
	r := bufio.NewReader(rw)
	if err := exchangeHeader(rw, r); err != nil {
		return "", r, err
	}
	for {
		line, err := readLine(r)
		if err != nil {
			return "", r, err
		}
		if line == lsMsg {
			if err := writeProtocolList(rw, handlers); err != nil {
				return "", r, err
			}
			continue
		}
		for _, h := range handlers {
			if h.Match(protocol.ID(line)) {
				if err := writeLine(rw, line); err != nil {
					return "", r, err
				}
				return h.ID, r, nil
			}
		}
		if err := writeLine(rw, naMsg); err != nil {
			return "", r, err
		}
	}
}

// writeProtocolList answers "ls" with one framed message containing the
// varint count followed by each handler's ID as its own length-prefixed line.
func writeProtocolList(w io.Writer, handlers []Handler) error {
	var body []byte
	body = append(body, varint.ToUvarint(uint64(len(handlers)))...)
	for _, h := range handlers {
		line := string(h.ID) + "\n"
		body = append(body, varint.ToUvarint(uint64(len(line)))...)
		body = append(body, line...)
	}
	lenBuf := varint.ToUvarint(uint64(len(body)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
