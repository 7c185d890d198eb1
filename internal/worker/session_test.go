package worker

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

func TestHandleClientHandshakeThenCloseClient(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		HandleClient(serverConn, 4321)
		close(done)
	}()

	// handshake frame first, no msg_id framing to check beyond magic.
	hsFrame, err := wire.RecvFrame(clientConn)
	require.NoError(t, err)
	r := wire.NewReader(hsFrame)
	magic, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, protoconst.MessageMagic, magic)

	req := &wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReqCloseClient, Body: nil}
	require.NoError(t, wire.SendEnvelope(clientConn, req))

	reply, err := wire.RecvEnvelope(clientConn)
	require.NoError(t, err)
	assert.Equal(t, protoconst.ReplyID(protoconst.ReqCloseClient), reply.MsgID)

	clientConn.Close()
	<-done
}

func TestHandleClientOutOfBoundsMsgIDGetsReplyError(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		HandleClient(serverConn, 1)
		close(done)
	}()

	_, err := wire.RecvFrame(clientConn) // handshake
	require.NoError(t, err)

	req := &wire.Envelope{Magic: protoconst.MessageMagic, MsgID: 0, Body: nil}
	require.NoError(t, wire.SendEnvelope(clientConn, req))

	reply, err := wire.RecvEnvelope(clientConn)
	require.NoError(t, err)
	assert.Equal(t, protoconst.ReplyError, reply.MsgID)

	clientConn.Close()
	<-done
}
