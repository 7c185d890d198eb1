package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

func TestDispatchOutOfBoundsMsgID(t *testing.T) {
	table := NewTable()
	reply := table.Dispatch(&wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.MaxReqMsgID})
	assert.Equal(t, protoconst.ReplyError, reply.MsgID)
	msg, _, err := wire.DecodeReplyError(reply.Body)
	require.NoError(t, err)
	assert.Contains(t, msg, "Out of bound msg_id")
}

func TestDispatchNoRoutineConfigured(t *testing.T) {
	table := NewTable()
	// msg_id is within [1, MaxReqMsgID) but nothing was registered.
	reply := table.Dispatch(&wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReqShowClass})
	msg, _, err := wire.DecodeReplyError(reply.Body)
	require.NoError(t, err)
	assert.Contains(t, msg, "No routine configured")
}

func TestDispatchSuccessComputesReplyID(t *testing.T) {
	table := NewTable()
	table.Register(protoconst.ReqDlopen, &Routine{
		Name: "dlopen",
		Handler: func(body []byte) ([]byte, Status, error) {
			return []byte("ok"), StatusSuccess, nil
		},
	})

	reply := table.Dispatch(&wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReqDlopen})
	assert.Equal(t, protoconst.ReplyID(protoconst.ReqDlopen), reply.MsgID)
	assert.Equal(t, []byte("ok"), reply.Body)
}

func TestDispatchServerError(t *testing.T) {
	table := NewTable()
	table.Register(protoconst.ReqPeek, &Routine{
		Name: "peek",
		Handler: func(body []byte) ([]byte, Status, error) {
			return nil, StatusServerError, errors.New("segfault")
		},
	})

	reply := table.Dispatch(&wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReqPeek})
	assert.Equal(t, protoconst.ReplyError, reply.MsgID)
	msg, _, err := wire.DecodeReplyError(reply.Body)
	require.NoError(t, err)
	assert.Contains(t, msg, "Server error")
	assert.Contains(t, msg, "peek")
}

func TestDispatchCleanupRunsAfterPacking(t *testing.T) {
	table := NewTable()
	cleaned := false
	table.Register(protoconst.ReqListDir, &Routine{
		Name: "listdir",
		Handler: func(body []byte) ([]byte, Status, error) {
			return []byte("entries"), StatusSuccess, nil
		},
		Cleanup: func() { cleaned = true },
	})

	reply := table.Dispatch(&wire.Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReqListDir})
	assert.True(t, cleaned)
	assert.Equal(t, []byte("entries"), reply.Body)
}
