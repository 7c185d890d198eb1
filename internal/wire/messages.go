package wire

import "fmt"

// ArgumentKind tags the variant of a call Argument (spec.md §3).
type ArgumentKind uint32

const (
	ArgInt ArgumentKind = iota
	ArgDouble
	ArgStr
	ArgBytes
)

// Argument is one entry of a CALL request's argv. Str and Bytes own
// their decoded buffer for the lifetime of the call — the call engine
// materializes their address, it never frees or retains them beyond
// the call (spec.md §9, "Raw pointer passing through the argument
// union").
type Argument struct {
	Kind   ArgumentKind
	Int    uint64
	Double float64
	Str    string
	Bytes  []byte
}

func (a Argument) pack(w *Writer) {
	w.U32(uint32(a.Kind))
	switch a.Kind {
	case ArgInt:
		w.U64(a.Int)
	case ArgDouble:
		w.U64(doubleBits(a.Double))
	case ArgStr:
		w.Str(a.Str)
	case ArgBytes:
		w.Bytes(a.Bytes)
	}
}

func unpackArgument(r *Reader) (Argument, error) {
	kindVal, err := r.U32()
	if err != nil {
		return Argument{}, err
	}
	kind := ArgumentKind(kindVal)
	switch kind {
	case ArgInt:
		v, err := r.U64()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgInt, Int: v}, nil
	case ArgDouble:
		v, err := r.U64()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgDouble, Double: bitsToDouble(v)}, nil
	case ArgStr:
		v, err := r.Str()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgStr, Str: v}, nil
	case ArgBytes:
		v, err := r.Bytes()
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgBytes, Bytes: v}, nil
	default:
		return Argument{}, fmt.Errorf("wire: unknown argument kind %d", kindVal)
	}
}

// ReqDlopen / ReplyDlopen

type ReqDlopenBody struct {
	Filename string
	Mode     uint32
}

func (b *ReqDlopenBody) Pack() []byte {
	return NewWriter().Str(b.Filename).U32(b.Mode).Buf()
}

func UnpackReqDlopen(buf []byte) (*ReqDlopenBody, error) {
	r := NewReader(buf)
	filename, err := r.Str()
	if err != nil {
		return nil, err
	}
	mode, err := r.U32()
	if err != nil {
		return nil, err
	}
	return &ReqDlopenBody{Filename: filename, Mode: mode}, nil
}

type ReplyDlopenBody struct {
	Handle uint64
}

func (b *ReplyDlopenBody) Pack() []byte { return NewWriter().U64(b.Handle).Buf() }

// ReqDlclose / ReplyDlclose

type ReqDlcloseBody struct {
	Handle uint64
}

func UnpackReqDlclose(buf []byte) (*ReqDlcloseBody, error) {
	r := NewReader(buf)
	h, err := r.U64()
	if err != nil {
		return nil, err
	}
	return &ReqDlcloseBody{Handle: h}, nil
}

type ReplyDlcloseBody struct {
	Res uint64
}

func (b *ReplyDlcloseBody) Pack() []byte { return NewWriter().U64(b.Res).Buf() }

// ReqDlsym / ReplyDlsym

type ReqDlsymBody struct {
	Handle     uint64
	SymbolName string
}

func UnpackReqDlsym(buf []byte) (*ReqDlsymBody, error) {
	r := NewReader(buf)
	h, err := r.U64()
	if err != nil {
		return nil, err
	}
	sym, err := r.Str()
	if err != nil {
		return nil, err
	}
	return &ReqDlsymBody{Handle: h, SymbolName: sym}, nil
}

type ReplyDlsymBody struct {
	Ptr uint64
}

func (b *ReplyDlsymBody) Pack() []byte { return NewWriter().U64(b.Ptr).Buf() }

// ReqPeek / ReplyPeek

type ReqPeekBody struct {
	Address uint64
	Size    uint64
}

func UnpackReqPeek(buf []byte) (*ReqPeekBody, error) {
	r := NewReader(buf)
	addr, err := r.U64()
	if err != nil {
		return nil, err
	}
	size, err := r.U64()
	if err != nil {
		return nil, err
	}
	return &ReqPeekBody{Address: addr, Size: size}, nil
}

type ReplyPeekBody struct {
	Data []byte
}

func (b *ReplyPeekBody) Pack() []byte { return NewWriter().Bytes(b.Data).Buf() }

// ReqPoke / ReplyPoke (reply is empty)

type ReqPokeBody struct {
	Address uint64
	Data    []byte
}

func UnpackReqPoke(buf []byte) (*ReqPokeBody, error) {
	r := NewReader(buf)
	addr, err := r.U64()
	if err != nil {
		return nil, err
	}
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	return &ReqPokeBody{Address: addr, Data: data}, nil
}

// ReqCall / ReplyCall

type ReqCallBody struct {
	Address     uint64
	VaListIndex uint64
	Argv        []Argument
}

func UnpackReqCall(buf []byte) (*ReqCallBody, error) {
	r := NewReader(buf)
	addr, err := r.U64()
	if err != nil {
		return nil, err
	}
	vaIdx, err := r.U64()
	if err != nil {
		return nil, err
	}
	argc, err := r.U32()
	if err != nil {
		return nil, err
	}
	argv := make([]Argument, 0, argc)
	for i := uint32(0); i < argc; i++ {
		arg, err := unpackArgument(r)
		if err != nil {
			return nil, err
		}
		argv = append(argv, arg)
	}
	return &ReqCallBody{Address: addr, VaListIndex: vaIdx, Argv: argv}, nil
}

// ReplyCallBody carries either a scalar return value or the full ARM
// register bank, per spec.md §3 — exactly one of the two is
// populated, selected by the target build (HasArmRegisters).
type ReplyCallBody struct {
	HasArmRegisters bool
	ReturnValue     uint64
	X               [8]uint64
	D               [8]uint64
}

func (b *ReplyCallBody) Pack() []byte {
	w := NewWriter()
	if b.HasArmRegisters {
		w.U32(1)
		for _, v := range b.X {
			w.U64(v)
		}
		for _, v := range b.D {
			w.U64(v)
		}
	} else {
		w.U32(0)
		w.U64(b.ReturnValue)
	}
	return w.Buf()
}

// ReqListDir / ReplyListDir

type ReqListDirBody struct {
	Path string
}

func UnpackReqListDir(buf []byte) (*ReqListDirBody, error) {
	r := NewReader(buf)
	path, err := r.Str()
	if err != nil {
		return nil, err
	}
	return &ReqListDirBody{Path: path}, nil
}

type DirEntryStat struct {
	Errno    uint64
	StDev    uint64
	StMode   uint64
	StNlink  uint64
	StIno    uint64
	StUid    uint64
	StGid    uint64
	StRdev   uint64
	StSize   uint64
	StBlocks uint64
	StBlksz  uint64
	Atime    uint64
	Mtime    uint64
	Ctime    uint64
}

func (s DirEntryStat) pack(w *Writer) {
	w.U64(s.Errno).U64(s.StDev).U64(s.StMode).U64(s.StNlink).U64(s.StIno).
		U64(s.StUid).U64(s.StGid).U64(s.StRdev).U64(s.StSize).U64(s.StBlocks).
		U64(s.StBlksz).U64(s.Atime).U64(s.Mtime).U64(s.Ctime)
}

func unpackDirEntryStat(r *Reader) (DirEntryStat, error) {
	var s DirEntryStat
	fields := []*uint64{
		&s.Errno, &s.StDev, &s.StMode, &s.StNlink, &s.StIno,
		&s.StUid, &s.StGid, &s.StRdev, &s.StSize, &s.StBlocks,
		&s.StBlksz, &s.Atime, &s.Mtime, &s.Ctime,
	}
	for _, f := range fields {
		v, err := r.U64()
		if err != nil {
			return DirEntryStat{}, err
		}
		*f = v
	}
	return s, nil
}

type ListDirEntry struct {
	DType uint32
	DName string
	Stat  DirEntryStat
	Lstat DirEntryStat
}

type ReplyListDirBody struct {
	Entries []ListDirEntry
}

func (b *ReplyListDirBody) Pack() []byte {
	w := NewWriter()
	w.U32(uint32(len(b.Entries)))
	for _, e := range b.Entries {
		w.U32(e.DType)
		w.Str(e.DName)
		e.Stat.pack(w)
		e.Lstat.pack(w)
	}
	return w.Buf()
}

func UnpackReplyListDir(buf []byte) (*ReplyListDirBody, error) {
	r := NewReader(buf)
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	entries := make([]ListDirEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		dtype, err := r.U32()
		if err != nil {
			return nil, err
		}
		dname, err := r.Str()
		if err != nil {
			return nil, err
		}
		stat, err := unpackDirEntryStat(r)
		if err != nil {
			return nil, err
		}
		lstat, err := unpackDirEntryStat(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ListDirEntry{DType: dtype, DName: dname, Stat: stat, Lstat: lstat})
	}
	return &ReplyListDirBody{Entries: entries}, nil
}

// ReqExec / ReplyExec

type ReqExecBody struct {
	Argv       []string
	Envp       []string
	Background bool
}

func UnpackReqExec(buf []byte) (*ReqExecBody, error) {
	r := NewReader(buf)
	argc, err := r.U32()
	if err != nil {
		return nil, err
	}
	argv := make([]string, 0, argc)
	for i := uint32(0); i < argc; i++ {
		s, err := r.Str()
		if err != nil {
			return nil, err
		}
		argv = append(argv, s)
	}
	envc, err := r.U32()
	if err != nil {
		return nil, err
	}
	envp := make([]string, 0, envc)
	for i := uint32(0); i < envc; i++ {
		s, err := r.Str()
		if err != nil {
			return nil, err
		}
		envp = append(envp, s)
	}
	bg, err := r.U32()
	if err != nil {
		return nil, err
	}
	return &ReqExecBody{Argv: argv, Envp: envp, Background: bg != 0}, nil
}

type ReplyExecBody struct {
	PID uint32
}

func (b *ReplyExecBody) Pack() []byte { return NewWriter().U32(b.PID).Buf() }

// ReqCloseClient has no fields. ReplyCloseClient is empty.

// PTY messages (C7): framed the same as any other message, but carry
// no msg_id — they are only legal immediately after a successful
// foreground-exec reply (spec.md §4.5).

type PTYMessageKind uint32

const (
	PTYBuffer PTYMessageKind = iota
	PTYExitCode
)

type PTYMessage struct {
	Kind     PTYMessageKind
	Buffer   []byte
	ExitCode int32
}

func (m *PTYMessage) Pack() []byte {
	w := NewWriter().U32(uint32(m.Kind))
	switch m.Kind {
	case PTYBuffer:
		w.Bytes(m.Buffer)
	case PTYExitCode:
		w.U32(uint32(m.ExitCode))
	}
	return w.Buf()
}

func UnpackPTYMessage(buf []byte) (*PTYMessage, error) {
	r := NewReader(buf)
	kindVal, err := r.U32()
	if err != nil {
		return nil, err
	}
	switch PTYMessageKind(kindVal) {
	case PTYBuffer:
		b, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		return &PTYMessage{Kind: PTYBuffer, Buffer: b}, nil
	case PTYExitCode:
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		return &PTYMessage{Kind: PTYExitCode, ExitCode: int32(v)}, nil
	default:
		return nil, fmt.Errorf("wire: unknown PTY message kind %d", kindVal)
	}
}

// DecodeReplyError unpacks a REPLY_ERROR body into its message/errno
// pair, used by tests and by any in-process client helper.
func DecodeReplyError(buf []byte) (message string, errnoVal int32, err error) {
	r := NewReader(buf)
	message, err = r.Str()
	if err != nil {
		return "", 0, err
	}
	e, err := r.U32()
	if err != nil {
		return "", 0, err
	}
	return message, int32(e), nil
}
