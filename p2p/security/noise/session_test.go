package noise

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephanfeb/p2p-core/core/crypto"
	"github.com/stephanfeb/p2p-core/core/peer"
)

func newTestTransport(t *testing.T) (*Transport, peer.ID) {
	t.Helper()
	sk, pk, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pk)
	require.NoError(t, err)
	return NewTransport(id, sk), id
}

func dialPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var serverConn net.Conn
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := ln.Accept()
		require.NoError(t, err)
		serverConn = c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	wg.Wait()
	return clientConn, serverConn
}

func TestLoopbackHandshakeAuthenticatesBothSides(t *testing.T) {
	clientTpt, clientID := newTestTransport(t)
	serverTpt, serverID := newTestTransport(t)

	clientRaw, serverRaw := dialPair(t)
	defer clientRaw.Close()
	defer serverRaw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var clientConn, serverConn interface {
		RemotePeer() peer.ID
	}
	var clientErr, serverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		sc, err := clientTpt.SecureOutbound(ctx, clientRaw, serverID)
		clientErr = err
		if err == nil {
			clientConn = sc
		}
	}()
	go func() {
		defer wg.Done()
		sc, err := serverTpt.SecureInbound(ctx, serverRaw)
		serverErr = err
		if err == nil {
			serverConn = sc
		}
	}()
	wg.Wait()

	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	require.Equal(t, serverID, clientConn.RemotePeer())
	require.Equal(t, clientID, serverConn.RemotePeer())
}

func TestTransportRecordsRoundTrip(t *testing.T) {
	clientTpt, _ := newTestTransport(t)
	serverTpt, serverID := newTestTransport(t)

	clientRaw, serverRaw := dialPair(t)
	defer clientRaw.Close()
	defer serverRaw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		conn *secureSession
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		sc, err := clientTpt.SecureOutbound(ctx, clientRaw, serverID)
		if sc != nil {
			clientCh <- result{sc.(*secureSession), err}
		} else {
			clientCh <- result{nil, err}
		}
	}()
	go func() {
		sc, err := serverTpt.SecureInbound(ctx, serverRaw)
		if sc != nil {
			serverCh <- result{sc.(*secureSession), err}
		} else {
			serverCh <- result{nil, err}
		}
	}()

	clientRes := <-clientCh
	serverRes := <-serverCh
	require.NoError(t, clientRes.err)
	require.NoError(t, serverRes.err)

	msg := []byte("hello over noise")
	go func() {
		_, _ = clientRes.conn.Write(msg)
	}()
	buf := make([]byte, len(msg))
	_, err := serverRes.conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
}

func TestNonceExhaustionRefusesWriteWithoutTransmitting(t *testing.T) {
	clientTpt, _ := newTestTransport(t)
	serverTpt, serverID := newTestTransport(t)

	clientRaw, serverRaw := dialPair(t)
	defer clientRaw.Close()
	defer serverRaw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientCh := make(chan *secureSession, 1)
	errCh := make(chan error, 2)
	go func() {
		sc, err := clientTpt.SecureOutbound(ctx, clientRaw, serverID)
		if err != nil {
			errCh <- err
			return
		}
		clientCh <- sc.(*secureSession)
	}()
	go func() {
		_, err := serverTpt.SecureInbound(ctx, serverRaw)
		errCh <- err
	}()

	var client *secureSession
	select {
	case client = <-clientCh:
	case err := <-errCh:
		t.Fatalf("handshake failed: %v", err)
	}

	client.sendNonce = maxNonce
	n, err := client.Write([]byte("one more byte"))
	require.Zero(t, n)
	require.Error(t, err)
	var nerr *noiseError
	require.True(t, errors.As(err, &nerr))
	require.ErrorIs(t, nerr, errNonceExhausted)
}
