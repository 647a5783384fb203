//go:build srt_integration

// These tests exercise real SRT sockets end to end and therefore require
// the native library to be present at link and run time; they are
// excluded from a normal `go test ./...` run.
package srtgo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopbackPair(t *testing.T, port uint16) (*Acceptor, func()) {
	t.Helper()
	a, err := NewAcceptor(map[string]string{"transtype": "live"})
	require.NoError(t, err)
	require.NoError(t, a.ListenAndServe("127.0.0.1", port, 4))
	return a, func() { a.Close() }
}

// Scenario 1: echo round-trip.
func TestEchoRoundTrip(t *testing.T) {
	acceptor, cleanup := newLoopbackPair(t, 9001)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewSocket(map[string]string{"transtype": "live"})
	require.NoError(t, err)
	defer client.Close()

	go client.Connect(ctx, "127.0.0.1", 9001)

	server, err := acceptor.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	_, err = client.SendPacket(ctx, []byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 2048)
	n, err := server.RecvPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = server.SendPacket(ctx, buf[:n])
	require.NoError(t, err)

	n, err = client.RecvPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

// Scenario 2: connect timeout against an address with no listener.
func TestConnectTimeout(t *testing.T) {
	client, err := NewSocket(map[string]string{"transtype": "live"})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = client.Connect(ctx, "198.51.100.1", 9000)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, 180*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 2*time.Second)
}

// Scenario 3: recv timeout followed by data arriving on a later call.
func TestRecvTimeoutThenData(t *testing.T) {
	acceptor, cleanup := newLoopbackPair(t, 9002)
	defer cleanup()

	connCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewSocket(map[string]string{"transtype": "live"})
	require.NoError(t, err)
	defer client.Close()

	go client.Connect(connCtx, "127.0.0.1", 9002)

	server, err := acceptor.Accept(connCtx)
	require.NoError(t, err)
	defer server.Close()

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer shortCancel()
	buf := make([]byte, 2048)
	_, err = server.RecvPacket(shortCtx, buf)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	longCtx, longCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer longCancel()
	_, err = client.SendPacket(longCtx, []byte("x"))
	require.NoError(t, err)

	n, err := server.RecvPacket(longCtx, buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, byte('x'), buf[0])
}

// Scenario 4: peer reset observed by a pending recv.
func TestPeerReset(t *testing.T) {
	acceptor, cleanup := newLoopbackPair(t, 9003)
	defer cleanup()

	connCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewSocket(map[string]string{"transtype": "live"})
	require.NoError(t, err)

	go client.Connect(connCtx, "127.0.0.1", 9003)

	server, err := acceptor.Accept(connCtx)
	require.NoError(t, err)
	defer server.Close()

	require.NoError(t, client.Close())

	buf := make([]byte, 2048)
	_, err = server.RecvPacket(connCtx, buf)
	require.Error(t, err)
	assert.True(t, IsConnectionReset(err) || IsConnectionAborted(err))
}

// Scenario 5: listen hook rejects a handshake by stream id.
func TestListenHookReject(t *testing.T) {
	acceptor, cleanup := newLoopbackPair(t, 9004)
	defer cleanup()

	acceptor.SetListenHook(func(_ SRTSocket, _ int, streamID string) bool {
		return !containsBlocked(streamID)
	})

	client, err := NewSocket(map[string]string{
		"transtype": "live",
		"streamid":  "foo-blocked",
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx, "127.0.0.1", 9004)
	require.Error(t, err)
	assert.True(t, IsConnectionRefused(err))
}

func containsBlocked(s string) bool {
	for i := 0; i+len("blocked") <= len(s); i++ {
		if s[i:i+len("blocked")] == "blocked" {
			return true
		}
	}
	return false
}

// Scenario 6: cancellation resolves promptly and leaves the socket usable.
func TestCancellationLeavesSocketUsable(t *testing.T) {
	acceptor, cleanup := newLoopbackPair(t, 9005)
	defer cleanup()

	connCtx, cancelConn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelConn()

	client, err := NewSocket(map[string]string{"transtype": "live"})
	require.NoError(t, err)
	defer client.Close()

	go client.Connect(connCtx, "127.0.0.1", 9005)

	server, err := acceptor.Accept(connCtx)
	require.NoError(t, err)
	defer server.Close()

	waitCtx, cancelWait := context.WithCancel(context.Background())
	done := make(chan error, 1)
	buf := make([]byte, 2048)
	go func() {
		_, err := server.RecvPacket(waitCtx, buf)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelWait()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, IsCanceled(err))
	case <-time.After(time.Second):
		t.Fatal("cancellation did not resolve promptly")
	}

	_, err = client.SendPacket(connCtx, []byte("after-cancel"))
	require.NoError(t, err)

	n, err := server.RecvPacket(connCtx, buf)
	require.NoError(t, err)
	assert.Equal(t, "after-cancel", string(buf[:n]))
}
