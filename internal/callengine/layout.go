// Package callengine implements the argument-layout and invocation
// logic of spec.md §4.5 / §9 (component C5): marshal a CALL request's
// argv into the target architecture's calling convention and invoke
// the function pointer at the given address.
package callengine

import (
	"unsafe"

	"github.com/srgg/rpcd/internal/wire"
)

const (
	maxRegArgs   = 8  // GPR_COUNT / FPR_COUNT slots available for register-class args
	maxStackArgs = 16 // MAX_STACK_ARGS
	maxArgs      = 17 // MAX_ARGS of the original's generic fallback; engine_generic.go passes exactly len(argv) args
)

// layout is the materialized argument placement for one call: which
// values land in the integer registers (x), which in the floating
// registers (d), and which spill to the stack, in the order the
// trampoline expects them.
type layout struct {
	x     [maxRegArgs]uint64
	d     [maxRegArgs]uint64
	stack [maxStackArgs]uint64
}

// pin keeps a Go-owned buffer alive for the duration of a call: string
// and byte-slice arguments decay to a raw pointer the callee dereferences,
// so the backing array must not be collected or moved until after the
// trampoline returns (runtime.KeepAlive is called on every entry here).
type pin struct {
	keep []byte
}

// buildLayout walks argv with the three-cursor algorithm of the
// original's call_function: gp for integer/string/bytes args, fp for
// doubles, sp_idx for the stack. An argument at index >= vaListIndex,
// or one whose register class is exhausted, is forced onto the stack
// (spec.md §9, "va_list_index variadic-boundary forcing").
func buildLayout(argv []wire.Argument, vaListIndex uint64) (layout, []pin) {
	var l layout
	var pins []pin
	gp, fp, sp := 0, 0, 0

	for i, a := range argv {
		var target *uint64
		switch a.Kind {
		case wire.ArgInt, wire.ArgStr, wire.ArgBytes:
			if gp < maxRegArgs {
				target = &l.x[gp]
				gp++
			}
		case wire.ArgDouble:
			if fp < maxRegArgs {
				target = &l.d[fp]
				fp++
			}
		}

		forcedToStack := uint64(i) >= vaListIndex || target == nil
		if forcedToStack {
			if sp >= maxStackArgs {
				continue // out of stack slots; original has no bound check either
			}
			target = &l.stack[sp]
			sp++
		}

		switch a.Kind {
		case wire.ArgInt:
			*target = a.Int
		case wire.ArgDouble:
			*target = doubleBitsOf(a.Double)
		case wire.ArgStr:
			b := append([]byte(a.Str), 0)
			pins = append(pins, pin{keep: b})
			*target = uint64(uintptr(unsafe.Pointer(&b[0])))
		case wire.ArgBytes:
			if len(a.Bytes) == 0 {
				*target = 0
				continue
			}
			pins = append(pins, pin{keep: a.Bytes})
			*target = uint64(uintptr(unsafe.Pointer(&a.Bytes[0])))
		}
	}

	return l, pins
}
