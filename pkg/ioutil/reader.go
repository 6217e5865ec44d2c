package ioutil

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/jmylchreest/ampgo/internal/errs"
)

// Reader is a borrowing, non-owning view over bytes with a cursor.
// Every bounded method fails with
// an errs.OutOfBounds error when insufficient bytes remain; every "_Unchecked"
// counterpart bypasses the bounds check for hot paths after an explicit
// Peek(n), and documents its precondition instead of re-checking it.
type Reader struct {
	data   []byte
	cursor int
}

// NewReader wraps data for bounded, cursor-based reading.
func NewReader(data []byte) *Reader { return &Reader{data: data} }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.data) - r.cursor }

// Cursor returns the current read offset.
func (r *Reader) Cursor() int { return r.cursor }

// Remaining returns the unread tail of the underlying byte slice.
func (r *Reader) Remaining() []byte { return r.data[r.cursor:] }

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Len() {
		return errs.Newf(errs.OutOfBounds, "reader: skip %d bytes: out of bounds", n)
	}
	r.cursor += n
	return nil
}

// Slice returns the next n bytes without copying, advancing the cursor.
func (r *Reader) Slice(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, errs.Newf(errs.OutOfBounds, "reader: slice %d bytes: out of bounds", n)
	}
	b := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	return b, nil
}

// Peek returns the next n bytes without advancing the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, errs.Newf(errs.OutOfBounds, "reader: peek %d bytes: out of bounds", n)
	}
	return r.data[r.cursor : r.cursor+n], nil
}

// SliceUnchecked is the unsafe counterpart of Slice. Precondition: the
// caller has already verified (e.g. via Peek(n) or Len() >= n) that at
// least n bytes remain; violating this panics via a runtime slice bounds
// error rather than returning an errs.OutOfBounds error.
func (r *Reader) SliceUnchecked(n int) []byte {
	b := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	return b
}

func (r *Reader) readN(n int) ([]byte, error) { return r.Slice(n) }

// ReadU8 reads a single unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE / ReadU16BE read a 16-bit unsigned integer in the given endian.
func (r *Reader) ReadU16LE() (uint16, error) { return read16(r, binary.LittleEndian) }
func (r *Reader) ReadU16BE() (uint16, error) { return read16(r, binary.BigEndian) }

func read16(r *Reader, order binary.ByteOrder) (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

// ReadU24LE / ReadU24BE read a 24-bit unsigned integer (common in ID3v2.2
// frame sizes and AIFF-style fields).
func (r *Reader) ReadU24LE() (uint32, error) { return read24(r, false) }
func (r *Reader) ReadU24BE() (uint32, error) { return read24(r, true) }

func read24(r *Reader, big bool) (uint32, error) {
	b, err := r.readN(3)
	if err != nil {
		return 0, err
	}
	if big {
		return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
	}
	return uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]), nil
}

// ReadU32LE / ReadU32BE read a 32-bit unsigned integer.
func (r *Reader) ReadU32LE() (uint32, error) { return read32(r, binary.LittleEndian) }
func (r *Reader) ReadU32BE() (uint32, error) { return read32(r, binary.BigEndian) }

func read32(r *Reader, order binary.ByteOrder) (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// ReadU64LE / ReadU64BE read a 64-bit unsigned integer.
func (r *Reader) ReadU64LE() (uint64, error) { return read64(r, binary.LittleEndian) }
func (r *Reader) ReadU64BE() (uint64, error) { return read64(r, binary.BigEndian) }

func read64(r *Reader, order binary.ByteOrder) (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// ReadSynchsafe32 decodes an ID3v2.4 synchsafe 32-bit integer: four bytes,
// each holding 7 significant bits with the MSB forced to zero
// (each byte's top bit forced to zero).
func (r *Reader) ReadSynchsafe32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3]), nil
}

// ReadPascalString reads a length-prefixed string: a single length byte
// followed by that many bytes, padded to an even total length if pad is
// true (the IFF/AIFF convention).
func (r *Reader) ReadPascalString(pad bool) (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	if pad && (n+1)%2 != 0 {
		if err := r.Skip(1); err != nil {
			return "", err
		}
	}
	return string(b), nil
}

// Gather packs a fixed-layout tuple of integers from contiguous bytes into
// the pointers in vars, in the given byte order.
// variadic gather<E>(a, b, c, ...). Supported pointer types: *uint8,
// *uint16, *uint32, *uint64, *int8, *int16, *int32, *int64, *float32,
// *float64.
func (r *Reader) Gather(order binary.ByteOrder, vars ...any) error {
	for _, v := range vars {
		if err := r.gatherOne(order, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) gatherOne(order binary.ByteOrder, v any) error {
	switch p := v.(type) {
	case *uint8:
		x, err := r.ReadU8()
		if err != nil {
			return err
		}
		*p = x
	case *int8:
		x, err := r.ReadU8()
		if err != nil {
			return err
		}
		*p = int8(x)
	case *uint16:
		x, err := read16(r, order)
		if err != nil {
			return err
		}
		*p = x
	case *int16:
		x, err := read16(r, order)
		if err != nil {
			return err
		}
		*p = int16(x)
	case *uint32:
		x, err := read32(r, order)
		if err != nil {
			return err
		}
		*p = x
	case *int32:
		x, err := read32(r, order)
		if err != nil {
			return err
		}
		*p = int32(x)
	case *uint64:
		x, err := read64(r, order)
		if err != nil {
			return err
		}
		*p = x
	case *int64:
		x, err := read64(r, order)
		if err != nil {
			return err
		}
		*p = int64(x)
	case *float32:
		x, err := read32(r, order)
		if err != nil {
			return err
		}
		*p = math.Float32frombits(x)
	case *float64:
		x, err := read64(r, order)
		if err != nil {
			return err
		}
		*p = math.Float64frombits(x)
	default:
		return errs.Newf(errs.InvalidArgument, "reader: Gather: unsupported type %s", reflect.TypeOf(v))
	}
	return nil
}
