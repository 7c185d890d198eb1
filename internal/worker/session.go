package worker

import (
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/srgg/rpcd/internal/callengine"
	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/handshake"
	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/ptysession"
	"github.com/srgg/rpcd/internal/routines"
	"github.com/srgg/rpcd/internal/wire"
)

// BuildTable wires every routine of spec.md §4.4 (component C4) into a
// single dispatch table, backed by one ptysession.Session (the
// routines.Spawner for REQ_EXEC) and one callengine.Engine (the
// routines.Engine for REQ_CALL).
func BuildTable(session *ptysession.Session, onClose func()) *dispatch.Table {
	table := dispatch.NewTable()
	routines.RegisterDlopen(table, protoconst.ReqDlopen)
	routines.RegisterDlclose(table, protoconst.ReqDlclose)
	routines.RegisterDlsym(table, protoconst.ReqDlsym)
	routines.RegisterPeek(table, protoconst.ReqPeek)
	routines.RegisterPoke(table, protoconst.ReqPoke)
	routines.RegisterCall(table, protoconst.ReqCall, callengine.New())
	routines.RegisterListDir(table, protoconst.ReqListDir)
	routines.RegisterExec(table, protoconst.ReqExec, session)
	routines.RegisterCloseClient(table, protoconst.ReqCloseClient, onClose)
	return table
}

// HandleClient runs the full per-connection sequence of spec.md §4.8/
// §4.9: send the handshake, then loop request/dispatch/reply until the
// peer closes, CLOSE_CLIENT fires, or an exec arms a PTY handoff that
// must stream to completion before the loop resumes.
func HandleClient(conn net.Conn, workerPID int) {
	defer conn.Close()

	hs, err := handshake.Send(func(b []byte) error { return wire.SendFrame(conn, b) }, workerPID)
	if err != nil {
		logrus.WithError(err).Error("handshake failed")
		return
	}
	log := logrus.WithField("session_id", hs.SessionID)

	closed := false
	session := ptysession.NewSession()
	table := BuildTable(session, func() { closed = true })

	for !closed {
		req, err := wire.RecvEnvelope(conn)
		if err != nil {
			if err != wire.ErrClosed && err != io.EOF {
				log.WithError(err).Debug("recv failed, closing connection")
			}
			return
		}
		if req.Magic != protoconst.MessageMagic {
			log.Warn("bad magic, closing connection")
			return
		}

		reply := table.Dispatch(req)
		if err := wire.SendEnvelope(conn, reply); err != nil {
			log.WithError(err).Debug("send failed, closing connection")
			return
		}

		if master, pid, ok := session.TakePending(); ok {
			if err := ptysession.Stream(conn, master, pid); err != nil {
				log.WithError(err).Debug("pty stream ended")
				return
			}
		}
	}
}

// RunWorker is the -w entrypoint: the re-exec'd process finds its
// client socket duplicated onto protoconst.FixedWorkerFD and handles
// exactly that one connection, matching handle_client(WORKER_CLIENT_
// SOCKET_FD) in the original's worker branch.
func RunWorker() error {
	file := os.NewFile(uintptr(protoconst.FixedWorkerFD), "worker-client-socket")
	conn, err := net.FileConn(file)
	if err != nil {
		return err
	}
	file.Close()
	HandleClient(conn, os.Getpid())
	return nil
}
