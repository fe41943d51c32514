// Package codec implements the fixed-width wire primitives SteganoChat uses
// throughout its binary formats: little-endian integer framing, length
// prefixed byte strings, and the symmetric/asymmetric cipher wrappers the
// higher-level packages build on.
package codec

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortBuffer is returned when a Read helper is asked to consume more
// bytes than remain in the source.
var ErrShortBuffer = errors.New("codec: buffer shorter than expected field")

// PutUint16 appends a little-endian uint16.
func PutUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// PutUint64 appends a little-endian uint64.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// Uint16 reads a little-endian uint16 from the front of b.
func Uint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrShortBuffer
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint64 reads a little-endian uint64 from the front of b.
func Uint64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrShortBuffer
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Reader is a small cursor over a byte slice, used to decode the fixed-width
// framed structures in this module without repeated slice arithmetic at call
// sites. It intentionally mirrors io.Reader semantics for the fixed-size
// reads (ReadN) while exposing the remaining bytes for a final unbounded
// read (Rest).
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// ReadN consumes and returns the next n bytes.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadUint16 consumes a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint64 consumes a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadLenPrefixed16 consumes a uint16 length prefix followed by that many
// bytes. A zero length yields a nil slice, matching the "0 length = absent"
// convention used by KeySets' slot encoding.
func (r *Reader) ReadLenPrefixed16() ([]byte, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.ReadN(int(n))
}

// Rest returns every byte not yet consumed.
func (r *Reader) Rest() []byte {
	return r.buf[r.pos:]
}

// Len reports how many bytes remain unconsumed.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// AppendLenPrefixed16 appends a uint16 length prefix followed by b. A nil or
// empty b is encoded as a zero-length prefix with no payload bytes.
func AppendLenPrefixed16(dst []byte, b []byte) []byte {
	dst = PutUint16(dst, uint16(len(b)))
	return append(dst, b...)
}
