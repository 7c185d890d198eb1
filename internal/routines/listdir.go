package routines

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/srgg/rpcd/internal/dispatch"
	"github.com/srgg/rpcd/internal/wire"
)

type listDirRequest struct {
	Path string `validate:"required"`
}

// RegisterListDir wires the LISTDIR routine (routine_listdir): a
// single os.ReadDir enumeration and a stat+lstat pair per entry, each
// carrying its own errno rather than failing the whole request. The
// routine only fails (ROUTINE_PROTOCOL_ERROR) if the path is empty or
// reading the directory itself fails; a stat/lstat failure on one
// entry is recorded in that entry's errno field and enumeration
// continues.
func RegisterListDir(table *dispatch.Table, msgID uint32) {
	table.Register(msgID, &dispatch.Routine{
		Name: "listdir",
		Handler: func(body []byte) ([]byte, dispatch.Status, error) {
			req, err := wire.UnpackReqListDir(body)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}
			if err := validate.Struct(listDirRequest{Path: req.Path}); err != nil {
				return nil, dispatch.StatusProtocolError, err
			}

			dirEntries, err := os.ReadDir(req.Path)
			if err != nil {
				return nil, dispatch.StatusProtocolError, err
			}

			entries := make([]wire.ListDirEntry, 0, len(dirEntries))
			for _, de := range dirEntries {
				full := filepath.Join(req.Path, de.Name())
				entries = append(entries, wire.ListDirEntry{
					DType: direntType(de),
					DName: de.Name(),
					Stat:  statEntry(full, os.Stat),
					Lstat: statEntry(full, os.Lstat),
				})
			}

			reply := &wire.ReplyListDirBody{Entries: entries}
			return reply.Pack(), dispatch.StatusSuccess, nil
		},
	})
}

func direntType(de os.DirEntry) uint32 {
	info, err := de.Info()
	if err != nil {
		return 0
	}
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return syscall.DT_LNK
	case mode.IsDir():
		return syscall.DT_DIR
	case mode.IsRegular():
		return syscall.DT_REG
	default:
		return syscall.DT_UNKNOWN
	}
}

func statEntry(path string, statFn func(string) (os.FileInfo, error)) wire.DirEntryStat {
	info, err := statFn(path)
	if err != nil {
		errno := uint64(1)
		var pathErr *os.PathError
		if e, ok := err.(*os.PathError); ok {
			pathErr = e
		}
		if pathErr != nil {
			if errnoVal, ok := pathErr.Err.(syscall.Errno); ok {
				errno = uint64(errnoVal)
			}
		}
		return wire.DirEntryStat{Errno: errno}
	}
	sysStat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return wire.DirEntryStat{Errno: uint64(syscall.EINVAL)}
	}
	return wire.DirEntryStat{
		StDev:    uint64(sysStat.Dev),
		StMode:   uint64(sysStat.Mode),
		StNlink:  uint64(sysStat.Nlink),
		StIno:    sysStat.Ino,
		StUid:    uint64(sysStat.Uid),
		StGid:    uint64(sysStat.Gid),
		StRdev:   uint64(sysStat.Rdev),
		StSize:   uint64(sysStat.Size),
		StBlocks: uint64(sysStat.Blocks),
		StBlksz:  uint64(sysStat.Blksize),
		Atime:    uint64(sysStat.Atim.Sec),
		Mtime:    uint64(sysStat.Mtim.Sec),
		Ctime:    uint64(sysStat.Ctim.Sec),
	}
}
