package mcproto

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePacketThenReadPacket(t *testing.T) {
	h := &Handshake{
		ProtocolVersion: 765,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		NextState:       NextStateLogin,
	}

	var buf bytes.Buffer
	require.NoError(t, WritePacket[*Handshake](&buf, h))

	got, err := ReadPacket[Handshake, *Handshake](&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestReadPacketWrongID(t *testing.T) {
	status := &StatusRequest{}
	var buf bytes.Buffer
	require.NoError(t, WritePacket[*StatusRequest](&buf, status))

	_, err := ReadPacket[PongResponse, *PongResponse](&buf)
	require.Error(t, err)
	assert.IsType(t, &PacketIDMismatchError{}, err)
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, MaxFrameLength+1))
	_, err := ReadFrame(&buf)
	require.Error(t, err)
}

func TestLoginStartRoundTrip(t *testing.T) {
	l := &LoginStart{
		Name:       "Notch",
		PlayerUUID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"),
	}
	var buf bytes.Buffer
	require.NoError(t, WritePacket[*LoginStart](&buf, l))

	got, err := ReadPacket[LoginStart, *LoginStart](&buf)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestPingPongRoundTrip(t *testing.T) {
	ping := &PingRequest{Payload: 1234567890}
	var buf bytes.Buffer
	require.NoError(t, WritePacket[*PingRequest](&buf, ping))

	got, err := ReadPacket[PingRequest, *PingRequest](&buf)
	require.NoError(t, err)
	assert.Equal(t, ping.Payload, got.Payload)
}

func TestStatusResponseRoundTrip(t *testing.T) {
	resp := &StatusResponse{Response: `{"version":{"name":"1.20.4","protocol":765}}`}
	var buf bytes.Buffer
	require.NoError(t, WritePacket[*StatusResponse](&buf, resp))

	got, err := ReadPacket[StatusResponse, *StatusResponse](&buf)
	require.NoError(t, err)
	assert.Equal(t, resp.Response, got.Response)
}
