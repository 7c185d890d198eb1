//go:build !arm64

package callengine

import (
	"runtime"

	"github.com/ebitengine/purego"

	"github.com/srgg/rpcd/internal/wire"
)

// Engine is the generic (non-arm64) call engine: it flattens argv into
// a single uintptr slice in argv order and invokes the target through
// purego.SyscallN, matching the original's call_argc_t fallback
// (a fixed 17-arg function pointer cast) rather than building a
// register/stack split — va_list_index has no effect here, same as
// the original's non-ARM path (spec.md §9).
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Call(address, vaListIndex uint64, argv []wire.Argument) wire.ReplyCallBody {
	args := make([]uintptr, 0, len(argv))
	var pins []pin

	for _, a := range argv {
		switch a.Kind {
		case wire.ArgInt:
			args = append(args, uintptr(a.Int))
		case wire.ArgDouble:
			// The original's generic fallback assigns a double into a
			// u64 slot by C's implicit numeric conversion (truncating
			// toward zero), not a bit-pattern reinterpretation.
			args = append(args, uintptr(int64(a.Double)))
		case wire.ArgStr:
			b := append([]byte(a.Str), 0)
			pins = append(pins, pin{keep: b})
			args = append(args, uintptr(ptrOf(&b[0])))
		case wire.ArgBytes:
			if len(a.Bytes) == 0 {
				args = append(args, 0)
				continue
			}
			pins = append(pins, pin{keep: a.Bytes})
			args = append(args, uintptr(ptrOf(&a.Bytes[0])))
		}
	}

	ret, _, _ := purego.SyscallN(uintptr(address), args...)
	runtime.KeepAlive(pins)

	return wire.ReplyCallBody{HasArmRegisters: false, ReturnValue: uint64(ret)}
}
