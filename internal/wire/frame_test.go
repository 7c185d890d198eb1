package wire

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvFrameRoundtrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte("hello worker")
	errCh := make(chan error, 1)
	go func() { errCh <- SendFrame(server, payload) }()

	got, err := RecvFrame(client)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, <-errCh)
}

func TestRecvFrameClosedConnection(t *testing.T) {
	server, client := net.Pipe()
	require.NoError(t, client.Close())
	defer server.Close()

	_, err := RecvFrame(server)
	assert.Error(t, err)
}

func TestRecvFrameZeroLength(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		lenBuf := make([]byte, 8)
		_, _ = client.Write(lenBuf)
	}()

	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := RecvFrame(server)
	assert.Error(t, err)
}
