package mcproto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	tests := []struct {
		Name     string
		Value    int32
		Encoded  string
	}{
		{"zero", 0, "00"},
		{"one", 1, "01"},
		{"127", 127, "7f"},
		{"128", 128, "8001"},
		{"255", 255, "ff01"},
		{"2147483647", 2147483647, "ffffffff07"},
		{"minus one", -1, "ffffffff0f"},
		{"minus 2147483648", -2147483648, "8080808008"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteVarInt(&buf, tt.Value))
			assert.Equal(t, tt.Encoded, hex.EncodeToString(buf.Bytes()))

			v, err := ReadVarInt(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.Value, v)
		})
	}
}

func TestReadVarIntTooLong(t *testing.T) {
	input := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := ReadVarInt(bytes.NewReader(input))
	require.Error(t, err)
	assert.IsType(t, &InvalidVarIntError{}, err)
}

func TestReadVarIntExactlyFiveBytes(t *testing.T) {
	// math.MinInt32 legitimately encodes as exactly 5 bytes with the
	// continuation bit set on all but the last.
	v, err := ReadVarInt(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x08}))
	require.NoError(t, err)
	assert.Equal(t, int32(-2147483648), v)
}

func TestVarLongRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 127, 128, 9223372036854775807, -9223372036854775808}
	for _, v := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteVarLong(&buf, v))
		got, err := ReadVarLong(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestReadVarLongTooLong(t *testing.T) {
	input := make([]byte, 11)
	for i := range input {
		input[i] = 0xFF
	}
	_, err := ReadVarLong(bytes.NewReader(input))
	require.Error(t, err)
	assert.IsType(t, &InvalidVarLongError{}, err)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "localhost", DefaultMaxStringBytes))
	v, err := ReadString(&buf, DefaultMaxStringBytes)
	require.NoError(t, err)
	assert.Equal(t, "localhost", v)
}

func TestWriteStringTooLong(t *testing.T) {
	s := strings.Repeat("a", 32768)
	var buf bytes.Buffer
	err := WriteString(&buf, s, 32767)
	require.Error(t, err)
	assert.IsType(t, &StringTooLongError{}, err)
}

func TestReadStringTooLong(t *testing.T) {
	s := strings.Repeat("a", 32767)
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, int32(len(s))))
	buf.WriteString(s)

	_, err := ReadString(&buf, 100)
	require.Error(t, err)
	assert.IsType(t, &StringTooLongError{}, err)
}

func TestReadStringLengthExceedsAvailableBytes(t *testing.T) {
	// Frame claims 32767 bytes but only 32766 are actually supplied.
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 32767))
	buf.WriteString(strings.Repeat("a", 32766))

	_, err := ReadString(&buf, DefaultMaxStringBytes)
	require.Error(t, err)
}

func TestBoolRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		var buf bytes.Buffer
		require.NoError(t, WriteBool(&buf, v))
		got, err := ReadBool(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestFixedWidthRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteU16(&buf, 25565))
	port, err := ReadU16(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint16(25565), port)

	buf.Reset()
	require.NoError(t, WriteI64(&buf, -1234567890123))
	payload, err := ReadI64(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, int64(-1234567890123), payload)

	buf.Reset()
	require.NoError(t, WriteF32(&buf, 3.5))
	f, err := ReadF32(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f)

	buf.Reset()
	require.NoError(t, WriteF64(&buf, -2.25))
	d, err := ReadF64(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, float64(-2.25), d)
}
