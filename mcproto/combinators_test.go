package mcproto

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func varIntDecoder(r io.Reader) (int32, error) { return ReadVarInt(r) }
func varIntEncoder(w io.Writer, v int32) error { return WriteVarInt(w, v) }

func TestOptionalRoundTripPresent(t *testing.T) {
	var buf bytes.Buffer
	v := int32(42)
	require.NoError(t, WriteOptional(&buf, &v, varIntEncoder))

	got, err := ReadOptional(bytes.NewReader(buf.Bytes()), varIntDecoder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int32(42), *got)
}

func TestOptionalRoundTripAbsent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOptional[int32](&buf, nil, varIntEncoder))

	got, err := ReadOptional(bytes.NewReader(buf.Bytes()), varIntDecoder)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSequenceRoundTrip(t *testing.T) {
	values := []int32{1, 2, 3, 4}
	var buf bytes.Buffer
	require.NoError(t, WriteSequence(&buf, values, varIntEncoder))

	got, err := ReadSequence(bytes.NewReader(buf.Bytes()), varIntDecoder)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestSequenceRoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSequence(&buf, []int32{}, varIntEncoder))

	got, err := ReadSequence(bytes.NewReader(buf.Bytes()), varIntDecoder)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArrayRoundTrip(t *testing.T) {
	values := []int32{10, 20, 30}
	var buf bytes.Buffer
	require.NoError(t, WriteArray(&buf, values, varIntEncoder))

	got, err := ReadArray(bytes.NewReader(buf.Bytes()), len(values), varIntDecoder)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}
