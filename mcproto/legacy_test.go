package mcproto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLegacyPingResponseFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLegacyPingResponse(&buf, 47, "1.4.2", "A Minecraft Server", 3, 20))

	raw := buf.Bytes()
	require.Equal(t, byte(0xFF), raw[0])

	decoded, err := readUTF16BEString(bytes.NewReader(raw[3:]), (uint16(raw[1])<<8)|uint16(raw[2]))
	require.NoError(t, err)

	assert.Equal(t, "§1\x0047\x001.4.2\x00A Minecraft Server\x003\x0020", decoded)
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "47", itoa(47))
	assert.Equal(t, "-1", itoa(-1))
	assert.Equal(t, "20", itoa(20))
}

func TestReadLegacyPingRejectsWrongMarker(t *testing.T) {
	_, err := ReadLegacyPing(bytes.NewReader([]byte{0x01}))
	require.Error(t, err)
}
