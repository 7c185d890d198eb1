package routines

import (
	"unsafe"

	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/wire"
)

// RegisterPeek wires the PEEK routine (routine_peek). This is a
// best-effort raw copy exactly like the original's non-Mach fallback
// path — there is no safe-copy primitive on Linux/Android, so an
// invalid address faults the worker process rather than returning a
// protocol error (spec.md §7, "Memory fault in peek/poke").
func RegisterPeek(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "peek",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqPeek(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(req.Address))), req.Size)
			data := make([]byte, req.Size)
			copy(data, src)
			reply := &wire.ReplyPeekBody{Data: data}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}

// RegisterPoke wires the POKE routine (routine_poke). Same
// best-effort, faults-the-worker contract as peek.
func RegisterPoke(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "poke",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqPoke(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(req.Address))), len(req.Data))
			copy(dst, req.Data)
			return nil, dispatch.StatusSuccess, nil
		},
	})
}
