// Package codec implements the fixed-width, big-endian binary encoding used
// for every on-wire and on-chain value in the execution core: rules,
// messages, proofs, entities, and the GuestBundle/PublicInputs envelopes.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Writer appends fixed-width big-endian fields to an in-memory buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with sizeHint as its initial capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) PutBytesRaw(b []byte) { w.buf = append(w.buf, b...) }

// PutBytes writes a u32 length prefix followed by b.
func (w *Writer) PutBytes(b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, b...)
}

func (w *Writer) PutU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutI32 writes a signed 32-bit integer as its two's-complement bit pattern.
func (w *Writer) PutI32(v int32) {
	w.PutU32(uint32(v))
}

// PutFixed writes b verbatim; callers are responsible for ensuring it is
// exactly the expected fixed width (20 bytes for Address, 32 for Hash/U256).
func (w *Writer) PutFixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader consumes fixed-width big-endian fields from a byte slice, bounds
// checking every read. A Reader is single-use and stops advancing on the
// first error.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.fail("codec: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos)
		return false
	}
	return true
}

func (r *Reader) GetByte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *Reader) GetFixed(n int) []byte {
	if !r.need(n) {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out
}

func (r *Reader) GetU32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *Reader) GetI32() int32 {
	return int32(r.GetU32())
}

func (r *Reader) GetU64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

// GetBytes reads a u32 length prefix followed by that many bytes.
func (r *Reader) GetBytes() []byte {
	n := r.GetU32()
	return r.GetFixed(int(n))
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.pos > len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Finish returns an error if any read failed or if unread bytes remain after
// a top-level decode, per the codec's "trailing bytes are an error" rule.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.pos != len(r.buf) {
		return fmt.Errorf("codec: %d trailing bytes after decode", len(r.buf)-r.pos)
	}
	return nil
}
