package mcproto

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameLength is the protocol's declared maximum frame size: 2^21 - 1,
// https://minecraft.wiki/w/Java_Edition_protocol#Packet_format
const MaxFrameLength = 2097151

// Frame is one length-prefixed envelope off the wire: a VarInt packet id
// followed by the packet's body, with the outer VarInt length already
// consumed and verified.
type Frame struct {
	ID   int32
	Body []byte
}

// ReadFrame reads one frame: a VarInt length, then exactly that many bytes,
// then a VarInt packet id from the start of those bytes with the remainder
// as Body. No unread bytes remain once Body is sliced off.
func ReadFrame(r io.Reader) (*Frame, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read frame length")
	}
	if length < 0 || length > MaxFrameLength {
		return nil, errors.Errorf("mcproto: frame length %d out of range", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}

	buf := bytes.NewReader(payload)
	id, err := ReadVarInt(buf)
	if err != nil {
		return nil, errors.Wrap(err, "read frame packet id")
	}

	body := make([]byte, buf.Len())
	copy(body, payload[len(payload)-buf.Len():])

	return &Frame{ID: id, Body: body}, nil
}

// packetPtr constrains a generic framing function to pointer-receiver
// implementations of Packet, so ReadPacket can allocate a T and decode
// directly into it via its *T methods.
type packetPtr[T any] interface {
	*T
	Packet
}

// ReadPacket reads one frame from r, verifies its id matches PT's PacketID,
// and decodes T's body from the frame's remainder. A mismatched id yields
// PacketIDMismatchError without consuming any further bytes from r, since
// the whole frame was already buffered by ReadFrame.
func ReadPacket[T any, PT packetPtr[T]](r io.Reader) (*T, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}

	var v T
	pv := PT(&v)
	if frame.ID != pv.PacketID() {
		return nil, &PacketIDMismatchError{Expected: pv.PacketID(), Got: frame.ID}
	}

	if err := pv.Decode(bytes.NewReader(frame.Body)); err != nil {
		return nil, errors.Wrap(err, "decode packet body")
	}
	return &v, nil
}

// WritePacket encodes pkt's body, frames it behind its own packet id and a
// VarInt length, and writes the whole frame to w in one call.
func WritePacket[T Packet](w io.Writer, pkt T) error {
	var body bytes.Buffer
	if err := pkt.Encode(&body); err != nil {
		return errors.Wrap(err, "encode packet body")
	}

	var id bytes.Buffer
	if err := WriteVarInt(&id, pkt.PacketID()); err != nil {
		return err
	}

	var frame bytes.Buffer
	if err := WriteVarInt(&frame, int32(id.Len()+body.Len())); err != nil {
		return err
	}
	frame.Write(id.Bytes())
	frame.Write(body.Bytes())

	_, err := w.Write(frame.Bytes())
	return errors.Wrap(err, "write frame")
}
