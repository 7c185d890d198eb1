package ptysession

import (
	"net"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sys/unix"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

// Stream multiplexes master and conn exactly like enter_pty_mode's
// select loop: master output frames as a PTYBuffer message to conn,
// conn input is written straight through to master. The loop ends
// when either side hits EOF/error, then waitpid(pid) and an
// ExitCode message are sent before returning.
func Stream(conn net.Conn, master *os.File, pid int) error {
	defer master.Close()

	rawConn, err := master.SyscallConn()
	if err != nil {
		return err
	}
	masterFd := -1
	if ctrlErr := rawConn.Control(func(fd uintptr) { masterFd = int(fd) }); ctrlErr != nil {
		return ctrlErr
	}

	clientFd, err := connFD(conn)
	if err != nil {
		return err
	}

	// scratch is reused across poll iterations, mirroring the
	// original's fixed-size stack buffer (RPC_PTY_BUFFER_SIZE).
	scratch := make([]byte, protoconst.PTYBufferSize)
	// ring absorbs bursts from the master faster than conn can drain
	// them, the same backpressure role ringbuffer plays in the
	// teacher's PTY read loop.
	ring := ringbuffer.New(protoconst.PTYBufferSize * 4)

	pollFds := []unix.PollFd{
		{Fd: int32(masterFd), Events: unix.POLLIN},
		{Fd: int32(clientFd), Events: unix.POLLIN},
	}

loop:
	for {
		n, err := unix.Poll(pollFds, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			break loop
		}
		if n == 0 {
			continue
		}

		if pollFds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			nr, err := unix.Read(masterFd, scratch)
			if nr <= 0 || err != nil {
				logrus.WithError(err).Trace("pty master EOF/break")
				break loop
			}
			if _, err := ring.Write(scratch[:nr]); err != nil {
				break loop
			}
			buf := make([]byte, ring.Length())
			if _, err := ring.Read(buf); err != nil {
				break loop
			}
			msg := &wire.PTYMessage{Kind: wire.PTYBuffer, Buffer: buf}
			if err := wire.SendFrame(conn, msg.Pack()); err != nil {
				break loop
			}
		}

		if pollFds[1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			nr, err := unix.Read(clientFd, scratch)
			if nr <= 0 || err != nil {
				logrus.Trace("client closed input during PTY")
				break loop
			}
			if err := writeAll(masterFd, scratch[:nr]); err != nil {
				break loop
			}
		}
	}

	var ws syscall.WaitStatus
	_, _ = syscall.Wait4(pid, &ws, 0, nil)

	exitMsg := &wire.PTYMessage{Kind: wire.PTYExitCode, ExitCode: int32(ws)}
	return wire.SendFrame(conn, exitMsg.Pack())
}

func writeAll(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// connFD extracts the underlying file descriptor of a *net.TCPConn
// (or any net.Conn exposing SyscallConn), so it can be placed
// alongside the PTY master fd in a single unix.Poll call the way the
// original's select() watches sockfd and master together.
func connFD(conn net.Conn) (int, error) {
	type syscallConner interface {
		SyscallConn() (syscall.RawConn, error)
	}
	sc, ok := conn.(syscallConner)
	if !ok {
		return -1, unix.EINVAL
	}
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if ctrlErr := rawConn.Control(func(f uintptr) { fd = int(f) }); ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}
