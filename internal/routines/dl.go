// Package routines implements the per-msg_id handlers of spec.md §4.4
// (component C4): dlopen/dlclose/dlsym, peek/poke, call, listdir, exec,
// and close_client. Each handler decodes its request body, performs
// the operation, and packs a reply body for internal/dispatch to wrap.
package routines

import (
	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"

	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/wire"
)

// RegisterDlopen wires the DLOPEN routine (original_source
// routines.c: routine_dlopen). A dlopen failure is not a protocol or
// server error — a null handle is a valid, successful reply, matching
// dlopen(3)'s own semantics.
func RegisterDlopen(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "dlopen",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqDlopen(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			handle, err := purego.Dlopen(req.Filename, int(req.Mode))
			if err != nil {
				logrus.WithError(err).WithField("filename", req.Filename).Debug("dlopen failed")
				handle = 0
			}
			reply := &wire.ReplyDlopenBody{Handle: uint64(handle)}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}

// RegisterDlclose wires the DLCLOSE routine (routine_dlclose). The
// reply's Res field is 0 when purego.Dlclose succeeds and 1 when it
// returns an error; the platform's own nonzero dlclose value is not
// passed through. A failure is never translated into a dispatch-level
// error.
func RegisterDlclose(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "dlclose",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqDlclose(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			var res uint64
			if err := purego.Dlclose(uintptr(req.Handle)); err != nil {
				res = 1
			}
			reply := &wire.ReplyDlcloseBody{Res: res}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}

// RegisterDlsym wires the DLSYM routine (routine_dlsym).
func RegisterDlsym(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "dlsym",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqDlsym(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			ptr, err := purego.Dlsym(uintptr(req.Handle), req.SymbolName)
			if err != nil {
				logrus.WithError(err).WithField("symbol", req.SymbolName).Trace("dlsym miss")
				ptr = 0
			}
			reply := &wire.ReplyDlsymBody{Ptr: uint64(ptr)}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}
