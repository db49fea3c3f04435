package noise

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/flynn/noise"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/network"
	"github.com/stephanfeb/p2p-core/core/peer"
)

// maxFrameLen is the largest transport record Noise will frame, including
// the trailing 16-byte AEAD tag (§4.1, §8: 65535 accepted, 65536 rejected).
const maxFrameLen = 65535

// maxPlaintextLen leaves room for the AEAD tag within maxFrameLen.
const maxPlaintextLen = maxFrameLen - 16

type secureSession struct {
	initiator bool

	localID   peer.ID
	localKey  crypto.PrivKey
	remoteID  peer.ID
	remoteKey crypto.PubKey

	readLock  sync.Mutex
	writeLock sync.Mutex

	insecureConn   net.Conn
	insecureReader *bufio.Reader

	qbuf []byte // unread plaintext left over from the last frame
	rlen [2]byte

	enc *noise.CipherState
	dec *noise.CipherState

	sendNonce uint64
	recvNonce uint64

	connState network.ConnState
}

// maxNonce is never used to encrypt or decrypt a record: once a direction's
// counter reaches it, the session refuses further traffic in that direction
// rather than wrap the counter (§8 scenario 7).
const maxNonce = ^uint64(0)

var errNonceExhausted = fmt.Errorf("noise: nonce space exhausted, refusing further traffic on this session")

func newSecureSession(ctx context.Context, t *Transport, insecure net.Conn, expectedRemote peer.ID, initiator bool) (*secureSession, error) {
	s := &secureSession{
		insecureConn:   insecure,
		insecureReader: bufio.NewReader(insecure),
		initiator:      initiator,
		localID:        t.localID,
		localKey:       t.privateKey,
	}

	respCh := make(chan error, 1)
	go func() {
		respCh <- s.runHandshake(ctx, expectedRemote)
	}()

	select {
	case err := <-respCh:
		if err != nil {
			_ = s.insecureConn.Close()
			return nil, err
		}
		return s, nil
	case <-ctx.Done():
		_ = s.insecureConn.Close()
		<-respCh
		return nil, ctx.Err()
	}
}

func (s *secureSession) LocalAddr() net.Addr  { return s.insecureConn.LocalAddr() }
func (s *secureSession) RemoteAddr() net.Addr { return s.insecureConn.RemoteAddr() }

func (s *secureSession) LocalPeer() peer.ID             { return s.localID }
func (s *secureSession) RemotePeer() peer.ID            { return s.remoteID }
func (s *secureSession) RemotePublicKey() crypto.PubKey { return s.remoteKey }
func (s *secureSession) ConnState() network.ConnState   { return s.connState }

func (s *secureSession) SetDeadline(t time.Time) error      { return s.insecureConn.SetDeadline(t) }
func (s *secureSession) SetReadDeadline(t time.Time) error  { return s.insecureConn.SetReadDeadline(t) }
func (s *secureSession) SetWriteDeadline(t time.Time) error { return s.insecureConn.SetWriteDeadline(t) }
func (s *secureSession) Close() error                       { return s.insecureConn.Close() }

// readFrame reads one length-prefixed frame off the wire (§4.1 wire framing).
func (s *secureSession) readFrame() ([]byte, error) {
	if _, err := readFull(s.insecureReader, s.rlen[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(s.rlen[:])
	buf := make([]byte, int(length))
	if _, err := readFull(s.insecureReader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// writeFrame writes one length-prefixed frame (§4.1 wire framing).
func (s *secureSession) writeFrame(payload []byte) error {
	if len(payload) > maxFrameLen {
		return fmt.Errorf("noise: frame of %d bytes exceeds max %d", len(payload), maxFrameLen)
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(payload)))
	if _, err := s.insecureConn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := s.insecureConn.Write(payload)
	return err
}

// Read implements net.Conn: drains any buffered plaintext first, else reads
// and decrypts the next transport frame (§4.1 transport records).
func (s *secureSession) Read(buf []byte) (int, error) {
	s.readLock.Lock()
	defer s.readLock.Unlock()

	if len(s.qbuf) == 0 {
		frame, err := s.readFrame()
		if err != nil {
			return 0, err
		}
		if s.recvNonce == maxNonce {
			return 0, &noiseError{stage: "decrypt", err: errNonceExhausted}
		}
		plain, err := s.dec.Decrypt(nil, nil, frame)
		if err != nil {
			return 0, &noiseError{stage: "decrypt", err: err}
		}
		s.recvNonce++
		s.qbuf = plain
	}
	n := copy(buf, s.qbuf)
	s.qbuf = s.qbuf[n:]
	return n, nil
}

// Write implements net.Conn: chunks buf into at most maxPlaintextLen pieces,
// encrypting and framing each (§4.1 transport records).
func (s *secureSession) Write(buf []byte) (int, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	total := 0
	for len(buf) > 0 {
		chunkLen := len(buf)
		if chunkLen > maxPlaintextLen {
			chunkLen = maxPlaintextLen
		}
		chunk := buf[:chunkLen]
		buf = buf[chunkLen:]

		// §8 scenario 7: refuse the write outright once the send nonce is
		// exhausted, before anything is transmitted. flynn/noise's CipherState
		// tracks its own internal counter in lockstep with this one; we keep a
		// parallel counter so the refusal is observable (and testable) without
		// reaching into the library's internals.
		if s.sendNonce == maxNonce {
			return total, &noiseError{stage: "encrypt", err: errNonceExhausted}
		}
		ciphertext := s.enc.Encrypt(nil, nil, chunk)
		s.sendNonce++
		if err := s.writeFrame(ciphertext); err != nil {
			return total, err
		}
		total += chunkLen
	}
	return total, nil
}

func (s *secureSession) CloseRead() error  { return nil }
func (s *secureSession) CloseWrite() error { return nil }
