package routines

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/testsupport"
	"github.com/srgg/rpcd/internal/wire"
)

func newTable() *dispatch.Table { return dispatch.NewTable() }

func TestPeekPokeRoundtrip(t *testing.T) {
	table := newTable()
	RegisterPeek(table, 4)
	RegisterPoke(table, 5)

	buf := []byte("abcdefgh")
	req := &wire.ReqPeekBody{Address: uint64(uintptr(unsafe.Pointer(&buf[0]))), Size: uint64(len(buf))}
	body := wire.NewWriter().U64(req.Address).U64(req.Size).Buf()

	reply := table.Dispatch(&wire.Envelope{MsgID: 4, Body: body})
	r := wire.NewReader(reply.Body)
	data, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, buf, data)
}

func TestListDirCountsEveryEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	table := newTable()
	RegisterListDir(table, 7)

	body := wire.NewWriter().Str(dir).Buf()
	reply := table.Dispatch(&wire.Envelope{MsgID: 7, Body: body})
	r := wire.NewReader(reply.Body)
	count, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
}

// TestListDirEntriesMatchFixtureIgnoringOrder decodes a real listdir
// reply and compares its entries, marshaled to JSON, against a fixture
// holding the same decoded entries in swapped order — the comparison
// must ignore array order, as a fixture recorded under a different
// directory-iteration order would need it to.
func TestListDirEntriesMatchFixtureIgnoringOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("yy"), 0o644))

	table := newTable()
	RegisterListDir(table, 7)
	body := wire.NewWriter().Str(dir).Buf()
	reply := table.Dispatch(&wire.Envelope{MsgID: 7, Body: body})

	decoded, err := wire.UnpackReplyListDir(reply.Body)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 2)

	// fixture lists the same two names in the opposite order.
	fixture := []wire.ListDirEntry{decoded.Entries[1], decoded.Entries[0]}

	testsupport.NewJSONAsserter(t).
		WithOptions(testsupport.WithIgnoreArrayOrder(true)).
		Assert(testsupport.MustJSON(decoded.Entries), testsupport.MustJSON(fixture))
}

func TestListDirMissingPathIsProtocolError(t *testing.T) {
	table := newTable()
	RegisterListDir(table, 7)

	body := wire.NewWriter().Str("/no/such/path/for/this/test").Buf()
	reply := table.Dispatch(&wire.Envelope{MsgID: 7, Body: body})
	assert.Equal(t, uint32(0xffffffff), reply.MsgID)
}

func TestListDirEmptyPathIsProtocolError(t *testing.T) {
	table := newTable()
	RegisterListDir(table, 7)

	body := wire.NewWriter().Str("").Buf()
	reply := table.Dispatch(&wire.Envelope{MsgID: 7, Body: body})
	assert.Equal(t, uint32(0xffffffff), reply.MsgID)
}

type fakeSpawner struct {
	fgPID, bgPID int
	fgErr, bgErr error
}

func (f *fakeSpawner) SpawnForeground(argv, envp []string) (int, error) { return f.fgPID, f.fgErr }
func (f *fakeSpawner) SpawnBackground(argv, envp []string) (int, error) { return f.bgPID, f.bgErr }

func TestExecForeground(t *testing.T) {
	table := newTable()
	RegisterExec(table, 8, &fakeSpawner{fgPID: 4242})

	req := &wire.ReqExecBody{Argv: []string{"/bin/echo", "hi"}}
	body := wire.NewWriter()
	body.U32(uint32(len(req.Argv)))
	for _, a := range req.Argv {
		body.Str(a)
	}
	body.U32(0) // envc
	body.U32(0) // background=false

	reply := table.Dispatch(&wire.Envelope{MsgID: 8, Body: body.Buf()})
	r := wire.NewReader(reply.Body)
	pid, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), pid)
}

func TestExecSpawnFailureIsProtocolError(t *testing.T) {
	table := newTable()
	RegisterExec(table, 8, &fakeSpawner{fgErr: errors.New("enoent")})

	body := wire.NewWriter()
	body.U32(1)
	body.Str("/no/such/binary")
	body.U32(0)
	body.U32(0)

	reply := table.Dispatch(&wire.Envelope{MsgID: 8, Body: body.Buf()})
	assert.Equal(t, uint32(0xffffffff), reply.MsgID)
}

func TestCloseClientInvokesCallback(t *testing.T) {
	table := newTable()
	called := false
	RegisterCloseClient(table, 9, func() { called = true })

	table.Dispatch(&wire.Envelope{MsgID: 9, Body: nil})
	assert.True(t, called)
}

type fakeEngine struct{}

func (fakeEngine) Call(address, vaListIndex uint64, argv []wire.Argument) wire.ReplyCallBody {
	return wire.ReplyCallBody{ReturnValue: address + vaListIndex}
}

func TestCallDelegatesToEngine(t *testing.T) {
	table := newTable()
	RegisterCall(table, 6, fakeEngine{})

	body := wire.NewWriter().U64(10).U64(2)
	body.U32(2) // argc, satisfying va_list_index <= len(argv)
	body.U32(uint32(wire.ArgInt))
	body.U64(1)
	body.U32(uint32(wire.ArgInt))
	body.U64(2)
	reply := table.Dispatch(&wire.Envelope{MsgID: 6, Body: body.Buf()})
	r := wire.NewReader(reply.Body)
	discriminator, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), discriminator)
	v, err := r.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)
}
