package callengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srgg/rpcd/internal/wire"
)

func TestBuildLayoutRegistersBeforeStack(t *testing.T) {
	argv := make([]wire.Argument, 0, 10)
	for i := 0; i < 10; i++ {
		argv = append(argv, wire.Argument{Kind: wire.ArgInt, Int: uint64(i)})
	}

	l, _ := buildLayout(argv, 100) // vaListIndex beyond argc: nothing forced to stack early
	for i := 0; i < maxRegArgs; i++ {
		assert.Equal(t, uint64(i), l.x[i])
	}
	// args 8 and 9 overflow the 8 integer registers and spill to stack.
	assert.Equal(t, uint64(8), l.stack[0])
	assert.Equal(t, uint64(9), l.stack[1])
}

func TestBuildLayoutVaListIndexForcesStack(t *testing.T) {
	argv := []wire.Argument{
		{Kind: wire.ArgInt, Int: 1},
		{Kind: wire.ArgInt, Int: 2},
		{Kind: wire.ArgInt, Int: 3}, // index 2, at/after vaListIndex=2 -> forced to stack
	}
	l, _ := buildLayout(argv, 2)
	assert.Equal(t, uint64(1), l.x[0])
	assert.Equal(t, uint64(2), l.x[1])
	assert.Equal(t, uint64(0), l.x[2]) // never assigned a 3rd register
	assert.Equal(t, uint64(3), l.stack[0])
}

func TestBuildLayoutMixedIntDouble(t *testing.T) {
	argv := []wire.Argument{
		{Kind: wire.ArgInt, Int: 42},
		{Kind: wire.ArgDouble, Double: 3.5},
	}
	l, _ := buildLayout(argv, 10)
	assert.Equal(t, uint64(42), l.x[0])
	assert.Equal(t, doubleBitsOf(3.5), l.d[0])
}

func TestBuildLayoutStringPinsBackingBuffer(t *testing.T) {
	argv := []wire.Argument{{Kind: wire.ArgStr, Str: "hello"}}
	l, pins := buildLayout(argv, 10)
	assert.NotZero(t, l.x[0])
	assert.Len(t, pins, 1)
	assert.Equal(t, "hello\x00", string(pins[0].keep))
}
