// Package protoconst holds the wire-level constants shared by every
// layer of the protocol: the envelope magic, the message-id ranges,
// and the architecture tag reported in the handshake.
package protoconst

// MessageMagic tags every request and reply envelope. A mismatch on
// receive terminates the connection (spec.md §3, Invariants).
const MessageMagic uint32 = 0x12345678

// MaxReqMsgID is one past the highest valid request msg_id. Request
// ids occupy [1, MaxReqMsgID); a successful reply's msg_id is
// request.msg_id + MaxReqMsgID.
const MaxReqMsgID uint32 = 16

// ReplyError is the fixed msg_id used for REPLY_ERROR, chosen outside
// both the request range and the reply range so it can never collide
// with a legitimate success reply.
const ReplyError uint32 = 0xffffffff

// MaxFrameSize bounds a single length-prefixed frame. Oversized
// frames fail the connection rather than triggering a huge
// allocation.
const MaxFrameSize = 16 << 20 // 16 MiB

// Request message ids. Darwin-only reply kinds (SHOW_CLASS,
// SHOW_OBJECT, GET_CLASS_LIST, GET_DUMMY_BLOCK) are reserved here so
// probing them yields a clean REPLY_ERROR instead of breaking framing,
// but no routine is registered for them (spec.md §1, Out of scope).
const (
	ReqDlopen uint32 = iota + 1
	ReqDlclose
	ReqDlsym
	ReqPeek
	ReqPoke
	ReqCall
	ReqListDir
	ReqExec
	ReqCloseClient
	ReqDummyBlock   // reserved, unimplemented (Darwin-only)
	ReqShowClass    // reserved, unimplemented (Darwin-only)
	ReqShowObject   // reserved, unimplemented (Darwin-only)
	ReqGetClassList // reserved, unimplemented (Darwin-only)
)

// ReplyID computes the reply msg_id for a successful routine
// invocation against the given request msg_id.
func ReplyID(reqMsgID uint32) uint32 {
	return reqMsgID + MaxReqMsgID
}

// Arch values reported in the handshake (spec.md §4.8).
type Arch uint32

const (
	ArchUnknown Arch = 0
	ArchArm64   Arch = 1
)

// ServerVersion is the fixed handshake version this build speaks.
const ServerVersion uint32 = 1

// HandshakeSysnameLen is the original C protocol's fixed-size sysname
// buffer (doronz88/rpc-project protocol.h HANDSHAKE_SYSNAME_LEN). This
// rewrite encodes sysname as a length-prefixed string and does not
// truncate it to this length.
const HandshakeSysnameLen = 256

// FixedWorkerFD is the file descriptor a re-exec'd worker finds its
// client socket duplicated onto when started with -w.
const FixedWorkerFD = 3

// DefaultPort is the listener's default TCP port.
const DefaultPort = 5910

// PTYBufferSize bounds a single read from the PTY master or the
// client socket during foreground streaming (spec.md §4.5 C7).
const PTYBufferSize = 4096
