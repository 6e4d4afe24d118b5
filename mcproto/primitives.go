package mcproto

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ReadBool reads a single protocol Bool: 0x00 is false, any other byte value
// is true.
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadU8(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// WriteBool writes a single protocol Bool as exactly 0x00 or 0x01.
func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteU8(w, 1)
	}
	return WriteU8(w, 0)
}

func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u8")
	}
	return buf[0], nil
}

func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return errors.Wrap(err, "write u8")
}

func ReadI8(r io.Reader) (int8, error) {
	v, err := ReadU8(r)
	return int8(v), err
}

func WriteI8(w io.Writer, v int8) error {
	return WriteU8(w, uint8(v))
}

func ReadU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u16")
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func WriteU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write u16")
}

func ReadI16(r io.Reader) (int16, error) {
	v, err := ReadU16(r)
	return int16(v), err
}

func WriteI16(w io.Writer, v int16) error {
	return WriteU16(w, uint16(v))
}

func ReadU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u32")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write u32")
}

func ReadI32(r io.Reader) (int32, error) {
	v, err := ReadU32(r)
	return int32(v), err
}

func WriteI32(w io.Writer, v int32) error {
	return WriteU32(w, uint32(v))
}

func ReadU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u64")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func WriteU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write u64")
}

func ReadI64(r io.Reader) (int64, error) {
	v, err := ReadU64(r)
	return int64(v), err
}

func WriteI64(w io.Writer, v int64) error {
	return WriteU64(w, uint64(v))
}

// ReadU128 reads a 16-byte big-endian unsigned integer, used on the wire for
// the LoginStart player UUID.
func ReadU128(r io.Reader) ([16]byte, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return buf, errors.Wrap(err, "read u128")
	}
	return buf, nil
}

func WriteU128(w io.Writer, v [16]byte) error {
	_, err := w.Write(v[:])
	return errors.Wrap(err, "write u128")
}

func ReadF32(r io.Reader) (float32, error) {
	v, err := ReadU32(r)
	return math.Float32frombits(v), err
}

func WriteF32(w io.Writer, v float32) error {
	return WriteU32(w, math.Float32bits(v))
}

func ReadF64(r io.Reader) (float64, error) {
	v, err := ReadU64(r)
	return math.Float64frombits(v), err
}

func WriteF64(w io.Writer, v float64) error {
	return WriteU64(w, math.Float64bits(v))
}

// ReadVarInt reads a signed 32-bit VarInt: 7 data bits per byte, little-endian
// group order, continuation bit in the MSB. At most 5 bytes are consumed
// before InvalidVarIntError is returned - a legitimately encoded math.MinInt32
// is exactly 5 bytes, so the read loop must allow all 5.
func ReadVarInt(r io.Reader) (int32, error) {
	var result uint32
	var buf [1]byte
	for i := 0; i < 5; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, errors.Wrap(err, "read varint")
		}
		result |= uint32(buf[0]&0x7F) << (7 * uint(i))
		if buf[0]&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, &InvalidVarIntError{}
}

// WriteVarInt writes v using the protocol's VarInt encoding. The shift is
// logical (unsigned) so negative values always encode as 5 bytes with the
// sign-extended high bits, and the result is always canonical: zero is a
// single 0x00 byte, and the loop runs at least once regardless of value.
func WriteVarInt(w io.Writer, v int32) error {
	u := uint32(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := WriteU8(w, b); err != nil {
			return err
		}
		if u == 0 {
			return nil
		}
	}
}

// ReadVarLong is the 64-bit analogue of ReadVarInt, bounded to 10 bytes.
func ReadVarLong(r io.Reader) (int64, error) {
	var result uint64
	var buf [1]byte
	for i := 0; i < 10; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, errors.Wrap(err, "read varlong")
		}
		result |= uint64(buf[0]&0x7F) << (7 * uint(i))
		if buf[0]&0x80 == 0 {
			return int64(result), nil
		}
	}
	return 0, &InvalidVarLongError{}
}

// WriteVarLong is the 64-bit analogue of WriteVarInt.
func WriteVarLong(w io.Writer, v int64) error {
	u := uint64(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		if err := WriteU8(w, b); err != nil {
			return err
		}
		if u == 0 {
			return nil
		}
	}
}

// DefaultMaxStringBytes is the protocol's default string cap expressed in
// bytes: 32767 UTF-8 characters at up to 4 bytes each, plus room for the
// VarInt length prefix's own worst case, per spec.md's call-site convention.
const DefaultMaxStringBytes = 32767*4 + 3

// ReadString reads a VarInt byte length N followed by N bytes of UTF-8,
// failing with StringTooLongError if N is negative or exceeds maxBytes.
// Both read and write are bounded by byte length, never codepoint count.
func ReadString(r io.Reader, maxBytes int) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", errors.Wrap(err, "read string length")
	}
	if n < 0 || int(n) > maxBytes {
		return "", &StringTooLongError{Length: int(n), MaxLength: maxBytes}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "read string body")
	}
	if !utf8.Valid(buf) {
		return "", errors.New("mcproto: string body is not valid UTF-8")
	}
	return string(buf), nil
}

// WriteString writes s as a VarInt byte-length prefix followed by its UTF-8
// bytes, failing with StringTooLongError if the encoded byte length of s
// exceeds maxBytes.
func WriteString(w io.Writer, s string, maxBytes int) error {
	b := []byte(s)
	if len(b) > maxBytes {
		return &StringTooLongError{Length: len(b), MaxLength: maxBytes}
	}
	if err := WriteVarInt(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return errors.Wrap(err, "write string body")
}
