package routines

import (
	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/wire"
)

// Engine is implemented by internal/callengine: the arch-specific
// argument-layout and invocation logic (component C5) lives entirely
// behind this seam so routines stays arch-agnostic, the same way
// routine_call in the original only unpacks the request and delegates
// to call_function.
type Engine interface {
	Call(address, vaListIndex uint64, argv []wire.Argument) wire.ReplyCallBody
}

// RegisterCall wires the CALL routine (routine_call).
func RegisterCall(table *dispatch.Table, msgID uint32, engine Engine) {
	table.Register(msgID, &dispatch.Routine{
		Name: "call",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqCall(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			if req.VaListIndex > uint64(len(req.Argv)) {
				return nil, dispatch.StatusProtocolError, nil
			}
			reply := engine.Call(req.Address, req.VaListIndex, req.Argv)
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}
