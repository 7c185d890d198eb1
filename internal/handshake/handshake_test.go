package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

func TestBuildAndPack(t *testing.T) {
	h, err := Build(4242)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), h.ClientID)
	assert.Equal(t, protoconst.ServerVersion, h.ServerVersion)

	buf := h.Pack()
	r := wire.NewReader(buf)
	magic, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, protoconst.MessageMagic, magic)
}

func TestSendWritesOneFrame(t *testing.T) {
	var sent []byte
	h, err := Send(func(b []byte) error { sent = b; return nil }, 99)
	require.NoError(t, err)
	assert.NotEmpty(t, sent)
	assert.NotEmpty(t, h.SessionID)
}
