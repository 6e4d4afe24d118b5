package mcproto

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LegacyPingMarker is the first byte of a pre-Netty (<=1.6.4) Server List
// Ping, which has no VarInt framing at all - it is a plugin-message-shaped
// packet the modern client never sends but old clients and multi-version
// scanners still do.
const LegacyPingMarker = 0xFE

const legacyPluginMessageID = 0xFA
const legacyPingHostChannel = "MC|PingHost"

// LegacyPing is the payload of a pre-Netty Server List Ping.
type LegacyPing struct {
	ProtocolVersion int8
	ServerAddress   string
	ServerPort      int32
}

// ReadLegacyPing consumes a full legacy ping off r, having already peeked
// the leading LegacyPingMarker byte. It mirrors the teacher's
// ReadLegacyServerListPing field-by-field, failing closed on any
// unexpected constant so a modern, VarInt-framed connection is never
// misidentified as legacy.
func ReadLegacyPing(r io.Reader) (*LegacyPing, error) {
	marker, err := ReadU8(r)
	if err != nil {
		return nil, err
	}
	if marker != LegacyPingMarker {
		return nil, errors.Errorf("mcproto: expected legacy ping marker 0x%02X, got 0x%02X", LegacyPingMarker, marker)
	}

	payload, err := ReadU8(r)
	if err != nil {
		return nil, err
	}
	if payload != 0x01 {
		return nil, errors.Errorf("mcproto: expected legacy ping payload=0x01, got 0x%02X", payload)
	}

	pluginMessageID, err := ReadU8(r)
	if err != nil {
		return nil, err
	}
	if pluginMessageID != legacyPluginMessageID {
		return nil, errors.Errorf("mcproto: expected plugin message id 0x%02X, got 0x%02X", legacyPluginMessageID, pluginMessageID)
	}

	channelLen, err := ReadU16(r)
	if err != nil {
		return nil, err
	}
	channel, err := readUTF16BEString(r, channelLen)
	if err != nil {
		return nil, err
	}
	if channel != legacyPingHostChannel {
		return nil, errors.Errorf("mcproto: expected channel %q, got %q", legacyPingHostChannel, channel)
	}

	remainingLen, err := ReadU16(r)
	if err != nil {
		return nil, err
	}
	remaining := io.LimitReader(r, int64(remainingLen))

	protocolVersion, err := ReadI8(remaining)
	if err != nil {
		return nil, err
	}

	hostnameLen, err := ReadU16(remaining)
	if err != nil {
		return nil, err
	}
	hostname, err := readUTF16BEString(remaining, hostnameLen)
	if err != nil {
		return nil, err
	}

	port, err := ReadU32(remaining)
	if err != nil {
		return nil, err
	}

	return &LegacyPing{
		ProtocolVersion: protocolVersion,
		ServerAddress:   hostname,
		ServerPort:      int32(port),
	}, nil
}

// WriteLegacyPingResponse writes the 1.6-compatible legacy response: 0xFF,
// a code-unit length short, then a null-delimited UTF-16BE string of
// section-sign-1, protocol version, version name, motd, online count, max.
func WriteLegacyPingResponse(w io.Writer, protocolVersion int, versionName, motd string, online, max int) error {
	const sep = "\x00"
	s := "§" + "1" + sep +
		itoa(protocolVersion) + sep +
		versionName + sep +
		motd + sep +
		itoa(online) + sep +
		itoa(max)

	encoded := utf16.Encode([]rune(s))

	if err := WriteU8(w, 0xFF); err != nil {
		return err
	}
	if err := WriteU16(w, uint16(len(encoded))); err != nil {
		return err
	}
	var be bytes.Buffer
	for _, v := range encoded {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		be.Write(tmp[:])
	}
	_, err := w.Write(be.Bytes())
	return errors.Wrap(err, "write legacy ping response body")
}

func readUTF16BEString(r io.Reader, codeUnits uint16) (string, error) {
	raw := make([]byte, int(codeUnits)*2)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", errors.Wrap(err, "read utf16be string")
	}
	decoded, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), raw)
	if err != nil {
		return "", errors.Wrap(err, "decode utf16be string")
	}
	return string(decoded), nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
