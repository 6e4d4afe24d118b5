package mcproto

import (
	"io"

	"github.com/pkg/errors"
)

// Decoder reads one value of T from r. It is the generics realization of the
// "type descriptor" read side: the fixed-shape primitive readers in this
// package (ReadBool, ReadVarInt, ReadU16, ...) already have this shape, so
// they can be passed directly wherever a Decoder is wanted; ReadString needs
// to be curried to a maxBytes bound first.
type Decoder[T any] func(r io.Reader) (T, error)

// Encoder writes one value of T to w. The write-side counterpart to Decoder.
type Encoder[T any] func(w io.Writer, v T) error

// ReadOptional reads a Bool presence flag followed by a T if the flag is set.
func ReadOptional[T any](r io.Reader, decode Decoder[T]) (*T, error) {
	present, err := ReadBool(r)
	if err != nil {
		return nil, errors.Wrap(err, "read optional flag")
	}
	if !present {
		return nil, nil
	}
	v, err := decode(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// WriteOptional writes a Bool presence flag, followed by *v if non-nil.
func WriteOptional[T any](w io.Writer, v *T, encode Encoder[T]) error {
	if err := WriteBool(w, v != nil); err != nil {
		return err
	}
	if v != nil {
		return encode(w, *v)
	}
	return nil
}

// ReadSequence reads a VarInt count N followed by N values of T.
func ReadSequence[T any](r io.Reader, decode Decoder[T]) ([]T, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read sequence length")
	}
	if n < 0 {
		return nil, errors.Errorf("mcproto: negative sequence length %d", n)
	}
	values := make([]T, 0, n)
	for i := int32(0); i < n; i++ {
		v, err := decode(r)
		if err != nil {
			return nil, errors.Wrapf(err, "read sequence element %d", i)
		}
		values = append(values, v)
	}
	return values, nil
}

// WriteSequence writes a VarInt count followed by each element of values.
func WriteSequence[T any](w io.Writer, values []T, encode Encoder[T]) error {
	if err := WriteVarInt(w, int32(len(values))); err != nil {
		return err
	}
	for i, v := range values {
		if err := encode(w, v); err != nil {
			return errors.Wrapf(err, "write sequence element %d", i)
		}
	}
	return nil
}

// ReadArray reads exactly n values of T with no length prefix.
func ReadArray[T any](r io.Reader, n int, decode Decoder[T]) ([]T, error) {
	values := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := decode(r)
		if err != nil {
			return nil, errors.Wrapf(err, "read array element %d", i)
		}
		values[i] = v
	}
	return values, nil
}

// WriteArray writes each element of values with no length prefix.
func WriteArray[T any](w io.Writer, values []T, encode Encoder[T]) error {
	for i, v := range values {
		if err := encode(w, v); err != nil {
			return errors.Wrapf(err, "write array element %d", i)
		}
	}
	return nil
}
