// Package wire implements the length-prefixed, magic-tagged envelope
// framing described in spec.md §3 and §6, plus the canonical codec
// for each request/reply payload (§4.1, §4.2 — components C1/C2).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/srgg/rpcd/internal/protoconst"
)

// ErrClosed signals a clean peer close detected by RecvAll: a zero
// return from Read with no error, distinguishable from a framing
// error so callers can drop the connection quietly.
var ErrClosed = errors.New("wire: connection closed by peer")

// ErrFrameTooLarge is returned when a length prefix exceeds
// protoconst.MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// RecvAll reads exactly n bytes from conn, retrying on EINTR/EAGAIN
// and surfacing a clean peer close as ErrClosed (spec.md §4.1).
func RecvAll(conn net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := conn.Read(buf[read:])
		if m > 0 {
			read += m
		}
		if err != nil {
			if isRetryable(err) {
				continue
			}
			if errors.Is(err, io.EOF) && read == 0 {
				return nil, ErrClosed
			}
			return nil, err
		}
		if m == 0 && read < n {
			return nil, ErrClosed
		}
	}
	return buf, nil
}

// SendAll writes all of buf to conn, retrying on EINTR/EAGAIN and on
// short writes of zero bytes (not fatal per spec.md §4.1). A write to
// a connection whose peer reset is surfaced as an error rather than a
// raw SIGPIPE — net.Conn writes on Unix never raise SIGPIPE for a
// socket fd, so no signal suppression is required here (only direct
// writes to fd 1/2 inherited from a terminal can raise it, handled
// once at process startup, see internal/worker).
func SendAll(conn net.Conn, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := conn.Write(buf[written:])
		written += n
		if err != nil {
			if isRetryable(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// RecvFrame reads one length-prefixed frame: an 8-byte little-endian
// length followed by that many payload bytes.
func RecvFrame(conn net.Conn) ([]byte, error) {
	lenBuf, err := RecvAll(conn, 8)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf)
	if n == 0 {
		return nil, fmt.Errorf("wire: zero-length frame")
	}
	if n > protoconst.MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	return RecvAll(conn, int(n))
}

// SendFrame writes payload as one length-prefixed frame.
func SendFrame(conn net.Conn, payload []byte) error {
	if len(payload) > protoconst.MaxFrameSize {
		return ErrFrameTooLarge
	}
	lenBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenBuf, uint64(len(payload)))
	if err := SendAll(conn, lenBuf); err != nil {
		return err
	}
	return SendAll(conn, payload)
}
