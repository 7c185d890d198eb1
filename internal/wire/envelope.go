package wire

import (
	"fmt"
	"net"

	"github.com/srgg/rpcd/internal/protoconst"
)

// Envelope is the common shape of every request and reply frame
// (spec.md §3): a magic tag, a routing id, and an opaque body.
type Envelope struct {
	Magic uint32
	MsgID uint32
	Body  []byte
}

// ErrBadMagic is returned when a received envelope's magic does not
// match protoconst.MessageMagic. The caller must terminate the
// connection (spec.md §7, Framing error).
var ErrBadMagic = fmt.Errorf("wire: bad magic")

func (e *Envelope) Pack() []byte {
	return NewWriter().U32(e.Magic).U32(e.MsgID).Bytes(e.Body).Buf()
}

func UnpackEnvelope(buf []byte) (*Envelope, error) {
	r := NewReader(buf)
	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	msgID, err := r.U32()
	if err != nil {
		return nil, err
	}
	body, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	return &Envelope{Magic: magic, MsgID: msgID, Body: body}, nil
}

// RecvEnvelope reads one frame and decodes it as an envelope,
// validating the magic per spec.md §3's Invariants.
func RecvEnvelope(conn net.Conn) (*Envelope, error) {
	frame, err := RecvFrame(conn)
	if err != nil {
		return nil, err
	}
	env, err := UnpackEnvelope(frame)
	if err != nil {
		return nil, err
	}
	if env.Magic != protoconst.MessageMagic {
		return nil, ErrBadMagic
	}
	return env, nil
}

// SendEnvelope packs and sends env as one frame.
func SendEnvelope(conn net.Conn, env *Envelope) error {
	return SendFrame(conn, env.Pack())
}

// ReplyError builds the fixed-id REPLY_ERROR envelope of spec.md §3/§7.
func ReplyError(message string, errnoVal int32) *Envelope {
	body := NewWriter().Str(message).U32(uint32(errnoVal)).Buf()
	return &Envelope{Magic: protoconst.MessageMagic, MsgID: protoconst.ReplyError, Body: body}
}
