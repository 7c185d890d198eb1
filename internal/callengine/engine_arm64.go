//go:build arm64

package callengine

import (
	"runtime"

	"github.com/srgg/rpcd/internal/wire"
)

// Engine is the arm64 call engine. It builds the register/stack
// layout with the same gp/fp/sp cursor algorithm as the original's
// call_function, then hands it to a hand-written trampoline
// (trampoline_arm64.s) that loads x0-x7/d0-d7, pushes the stack
// arguments, and BLRs to address — no portable library exposes this
// level of register-class control (spec.md §9).
type Engine struct{}

func New() *Engine { return &Engine{} }

// callTrampoline is implemented in trampoline_arm64.s. After the call
// it stores x0..x7 into outX and d0..d7 into outD; Call returns both
// banks in the reply (HasArmRegisters), mirroring the original's
// arm_registers struct captured after the call.
//
//go:noescape
func callTrampoline(address uintptr, x *[maxRegArgs]uint64, d *[maxRegArgs]uint64, stack *[maxStackArgs]uint64, stackArgs uint64, outX *[maxRegArgs]uint64, outD *[maxRegArgs]uint64)

func (e *Engine) Call(address, vaListIndex uint64, argv []wire.Argument) wire.ReplyCallBody {
	l, pins := buildLayout(argv, vaListIndex)

	var outX, outD [maxRegArgs]uint64
	callTrampoline(uintptr(address), &l.x, &l.d, &l.stack, uint64(maxStackArgs), &outX, &outD)
	runtime.KeepAlive(pins)

	return wire.ReplyCallBody{HasArmRegisters: true, X: outX, D: outD}
}
