// Package handshake implements the one-shot server->client frame sent
// before any request loop begins (component C9, spec.md §4.9),
// expanding the original's {magic, arch, sysname} struct with the
// machine/platform/server_version/client_id fields SPEC_FULL.md adds.
package handshake

import (
	"bytes"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/srgg/rpcd/internal/protoconst"
	"github.com/srgg/rpcd/internal/wire"
)

// Handshake is the one-shot frame a worker sends before its request
// loop begins. ClientID is the worker pid, matching the original's
// client_id field; SessionID is a UUID generated once per worker
// process and carried alongside it, since a bare pid recycles across
// OS restarts and can't uniquely correlate a worker's log lines across
// its lifetime the way a UUID can.
type Handshake struct {
	Arch          protoconst.Arch
	Sysname       string
	Machine       string
	Platform      string
	ServerVersion uint32
	ClientID      uint32 // worker pid
	SessionID     string // uuid, folded in alongside the pid
}

func archForGOARCH() protoconst.Arch {
	if runtime.GOARCH == "arm64" {
		return protoconst.ArchArm64
	}
	return protoconst.ArchUnknown
}

// Build gathers the local uname() fields and pairs them with the
// worker's own pid and a freshly generated session UUID as the client
// identity.
func Build(workerPID int) (*Handshake, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, err
	}
	return &Handshake{
		Arch:          archForGOARCH(),
		Sysname:       cString(uts.Sysname[:]),
		Machine:       cString(uts.Machine[:]),
		Platform:      runtime.GOOS,
		ServerVersion: protoconst.ServerVersion,
		ClientID:      uint32(workerPID),
		SessionID:     uuid.NewString(),
	}, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (h *Handshake) Pack() []byte {
	return wire.NewWriter().
		U32(protoconst.MessageMagic).
		U32(uint32(h.Arch)).
		Str(h.Sysname).
		Str(h.Machine).
		Str(h.Platform).
		U32(h.ServerVersion).
		U32(h.ClientID).
		Str(h.SessionID).
		Buf()
}

// Send writes the packed handshake as one length-prefixed frame, the
// same framing every other message on the wire uses, but with no
// msg_id — it precedes the request loop entirely (spec.md §4.9). It
// returns the built Handshake so the caller can log its SessionID as
// a per-connection correlation id.
func Send(sendFrame func([]byte) error, workerPID int) (*Handshake, error) {
	h, err := Build(workerPID)
	if err != nil {
		return nil, err
	}
	if err := sendFrame(h.Pack()); err != nil {
		return nil, err
	}
	return h, nil
}
