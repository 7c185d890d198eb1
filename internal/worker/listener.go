// Package worker implements the per-connection worker-process model
// of spec.md §4.8 (component C8): a listener accepts a connection and
// either re-execs itself with -w and the client socket duplicated onto
// a fixed fd (matching the original's posix_spawn_file_actions_adddup2
// to WORKER_CLIENT_SOCKET_FD), or — in -d direct mode — handles the
// client in-process.
package worker

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/srgg/rpcd/internal/protoconst"
)

// Listener owns the listening socket and the re-exec/direct dispatch
// decision.
type Listener struct {
	ln          net.Listener
	selfPath    string
	args        []string
	directMode  bool
	handleDirect func(conn net.Conn)
}

type Options struct {
	Port         int
	DirectMode   bool
	HandleDirect func(conn net.Conn) // used only when DirectMode is true
}

func Listen(opts Options) (*Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return nil, fmt.Errorf("worker: listen: %w", err)
	}
	self, err := os.Executable()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("worker: resolve self path: %w", err)
	}
	return &Listener{
		ln:           ln,
		selfPath:     self,
		args:         os.Args[1:],
		directMode:   opts.DirectMode,
		handleDirect: opts.HandleDirect,
	}, nil
}

// Serve accepts connections until the listener is closed, matching
// the original's infinite accept loop. Each connection is either
// re-exec'd into a fresh worker (default) or handled synchronously
// in-process (direct mode, single-threaded, clients serialize).
func (l *Listener) Serve() error {
	installSignalHandlers(l.directMode)

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return err
		}
		logrus.WithField("remote", conn.RemoteAddr()).Trace("accepted connection")

		if l.directMode {
			l.handleDirect(conn)
			continue
		}
		if err := l.spawnWorker(conn); err != nil {
			logrus.WithError(err).Error("failed to spawn worker")
			conn.Close()
		}
	}
}

// spawnWorker re-execs the daemon binary with -w appended, duplicating
// the accepted connection's fd onto protoconst.FixedWorkerFD — the Go
// equivalent of posix_spawn_file_actions_adddup2(client_socket,
// WORKER_CLIENT_SOCKET_FD).
func (l *Listener) spawnWorker(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return fmt.Errorf("worker: connection is not a *net.TCPConn")
	}
	file, err := tcpConn.File()
	if err != nil {
		return fmt.Errorf("worker: dup connection fd: %w", err)
	}
	defer file.Close()
	defer conn.Close()

	newArgs := append(append([]string{}, l.args...), "-w")
	cmd := exec.Command(l.selfPath, newArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// ExtraFiles[0] lands at fd 3 (stdin/stdout/stderr occupy 0-2),
	// matching WORKER_CLIENT_SOCKET_FD.
	if protoconst.FixedWorkerFD != 3 {
		return fmt.Errorf("worker: FixedWorkerFD must be 3 for ExtraFiles[0] placement")
	}
	cmd.ExtraFiles = []*os.File{file}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("worker: start: %w", err)
	}
	logrus.WithField("pid", cmd.Process.Pid).Trace("spawned worker")

	go func() {
		if err := cmd.Wait(); err != nil {
			logrus.WithError(err).WithField("pid", cmd.Process.Pid).Debug("worker exited")
		}
	}()
	return nil
}

// installSignalHandlers reaps exited worker children (SIGCHLD) and
// ignores SIGPIPE, matching signal_handler/signal(SIGPIPE, ...) in the
// original. Go's net package never raises SIGPIPE for socket writes,
// but a worker inheriting a closed terminal on fd 1/2 still can.
//
// The blind wait4(-1, ...) reap is only safe when this process's only
// children are re-exec'd workers (the default mode): spawnWorker's own
// cmd.Wait() goroutine tolerates losing that race, since it only logs
// the exit. In direct mode, HandleClient runs in this same process and
// ptysession (stream.go's wait4(pid, ...) and spawn.go's cmd.Wait())
// needs to win the wait for its own PTY/exec children to report a real
// exit code to the client, so no blind reaper is installed there —
// each child is collected by the code that spawned it.
func installSignalHandlers(directMode bool) {
	if !directMode {
		sigchld := make(chan os.Signal, 16)
		signal.Notify(sigchld, syscall.SIGCHLD)
		go func() {
			for range sigchld {
				for {
					var ws syscall.WaitStatus
					pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
					if pid <= 0 || err != nil {
						break
					}
					logrus.WithField("pid", pid).WithField("status", ws).Trace("reaped child")
				}
			}
		}()
	}

	signal.Ignore(syscall.SIGPIPE)
}
