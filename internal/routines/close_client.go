package routines

import (
	"github.com/srgg/rpcd/internal/dispatch"
)

// RegisterCloseClient wires the CLOSE_CLIENT routine (routine_close_client):
// an empty reply whose only effect is signalling the caller's worker
// loop to exit after sending it, via onClose.
func RegisterCloseClient(table *dispatch.Table, msgID uint32, onClose func()) {
	table.Register(msgID, &dispatch.Routine{
		Name: "close_client",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			if onClose != nil {
				onClose()
			}
			return nil, dispatch.StatusSuccess, nil
		},
	})
}
