package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader walks a decoded frame payload field by field. It never
// copies more than necessary and returns a decode error the first
// time it runs past the end of buf, which the dispatcher turns into
// a "protocol error" reply (spec.md §7).
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("wire: short read, need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return v, nil
}

func (r *Reader) Str() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining reports whether every byte of the payload was consumed.
// A routine decoder that leaves bytes unconsumed indicates a
// malformed request (spec.md §7, Protocol error).
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Writer packs fields in the same canonical order a Reader expects,
// so that encode(decode(bytes)) == bytes for every well-formed
// message (spec.md §8).
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Bytes(v []byte) *Writer {
	w.U32(uint32(len(v)))
	w.buf = append(w.buf, v...)
	return w
}

func (w *Writer) Str(v string) *Writer {
	return w.Bytes([]byte(v))
}

// Buf returns the packed bytes written so far.
func (w *Writer) Buf() []byte { return w.buf }
