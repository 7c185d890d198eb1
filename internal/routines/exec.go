package routines

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/wire"
)

type execRequest struct {
	Argv []string `validate:"required,min=1,dive,required"`
}

// Spawner is implemented by internal/ptysession: it owns the actual
// process-spawning and PTY-arming mechanics (components C6/C7), kept
// behind an interface here so this package doesn't need to know about
// terminals at all (routine_exec in the original only decides
// foreground vs background; internal_spawn does the rest).
type Spawner interface {
	SpawnForeground(argv, envp []string) (pid int, err error)
	SpawnBackground(argv, envp []string) (pid int, err error)
}

// RegisterExec wires the EXEC routine (routine_exec). A spawn failure
// is a protocol error (invalid pid), matching the original's
// INVALID_PID check; background children are reaped by a detached
// goroutine whose exit status is never reported back to any client
// (see DESIGN.md, "background-exec discards exit status").
func RegisterExec(table *dispatch.Table, msgID uint32, spawner Spawner) {
	table.Register(msgID, &dispatch.Routine{
		Name: "exec",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqExec(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			if err := validate.Struct(execRequest{Argv: req.Argv}); err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			if hasNUL(req.Argv) || hasNUL(req.Envp) {
				return nil, dispatch.StatusProtocolError, nil
			}

			var pid int
			if req.Background {
				pid, err = spawner.SpawnBackground(req.Argv, req.Envp)
			} else {
				pid, err = spawner.SpawnForeground(req.Argv, req.Envp)
			}
			if err != nil {
				logrus.WithError(err).WithField("argv0", req.Argv[0]).Debug("exec spawn failed")
				return nil, dispatch.StatusProtocolError, nil
			}

			reply := &wire.ReplyExecBody{PID: uint32(pid)}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}

// hasNUL rejects an embedded NUL in any argv/envp string, which would
// otherwise silently truncate the argument when handed to exec(3).
func hasNUL(strs []string) bool {
	for _, s := range strs {
		if strings.IndexByte(s, 0) >= 0 {
			return true
		}
	}
	return false
}
