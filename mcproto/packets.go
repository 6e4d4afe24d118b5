package mcproto

import (
	"io"

	"github.com/google/uuid"
)

// maxServerAddressBytes bounds Handshake.ServerAddress per spec.md's table;
// in practice SRV-rewritten hostnames plus the protocol's domain length cap
// never approach this, but the call site still enforces it on read and write.
const maxServerAddressBytes = 255

// maxPlayerNameBytes bounds LoginStart.Name; Mojang usernames are at most 16
// ASCII characters, so this is also the byte limit.
const maxPlayerNameBytes = 16

// Packet is satisfied by every packet type in this package. ID, Direction
// and State are exposed as methods rather than free constants so that the
// generic framing functions in frame.go can recover them from a zero value.
type Packet interface {
	PacketID() int32
	PacketDirection() Direction
	PacketState() State
	Decode(r io.Reader) error
	Encode(w io.Writer) error
}

// Handshake is packet 0x00, serverbound, in the Handshake state. It is the
// first packet on every connection and selects the Status or Login phase.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

func (*Handshake) PacketID() int32             { return 0x00 }
func (*Handshake) PacketDirection() Direction  { return Serverbound }
func (*Handshake) PacketState() State          { return StateHandshake }

func (h *Handshake) Decode(r io.Reader) error {
	var err error
	if h.ProtocolVersion, err = ReadVarInt(r); err != nil {
		return err
	}
	if h.ServerAddress, err = ReadString(r, maxServerAddressBytes); err != nil {
		return err
	}
	if h.ServerPort, err = ReadU16(r); err != nil {
		return err
	}
	if h.NextState, err = ReadNextState(r); err != nil {
		return err
	}
	return nil
}

func (h *Handshake) Encode(w io.Writer) error {
	if err := WriteVarInt(w, h.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteString(w, h.ServerAddress, maxServerAddressBytes); err != nil {
		return err
	}
	if err := WriteU16(w, h.ServerPort); err != nil {
		return err
	}
	return WriteNextState(w, h.NextState)
}

// StatusRequest is packet 0x00, serverbound, in the Status state. It has no
// body.
type StatusRequest struct{}

func (*StatusRequest) PacketID() int32            { return 0x00 }
func (*StatusRequest) PacketDirection() Direction { return Serverbound }
func (*StatusRequest) PacketState() State         { return StateStatus }
func (*StatusRequest) Decode(io.Reader) error      { return nil }
func (*StatusRequest) Encode(io.Writer) error      { return nil }

// StatusResponse is packet 0x00, clientbound, in the Status state. Response
// is an opaque JSON string; this codec never parses its shape, only the
// state machine and status assembly logic above it do.
type StatusResponse struct {
	Response string
}

func (*StatusResponse) PacketID() int32            { return 0x00 }
func (*StatusResponse) PacketDirection() Direction { return Clientbound }
func (*StatusResponse) PacketState() State         { return StateStatus }

func (s *StatusResponse) Decode(r io.Reader) error {
	v, err := ReadString(r, DefaultMaxStringBytes)
	if err != nil {
		return err
	}
	s.Response = v
	return nil
}

func (s *StatusResponse) Encode(w io.Writer) error {
	return WriteString(w, s.Response, DefaultMaxStringBytes)
}

// PingRequest is packet 0x01, serverbound, in the Status state: the
// client's latency probe, echoed verbatim by PongResponse.
type PingRequest struct {
	Payload int64
}

func (*PingRequest) PacketID() int32            { return 0x01 }
func (*PingRequest) PacketDirection() Direction { return Serverbound }
func (*PingRequest) PacketState() State         { return StateStatus }

func (p *PingRequest) Decode(r io.Reader) error {
	v, err := ReadI64(r)
	p.Payload = v
	return err
}

func (p *PingRequest) Encode(w io.Writer) error {
	return WriteI64(w, p.Payload)
}

// PongResponse is packet 0x01, clientbound, in the Status state.
type PongResponse struct {
	Payload int64
}

func (*PongResponse) PacketID() int32            { return 0x01 }
func (*PongResponse) PacketDirection() Direction { return Clientbound }
func (*PongResponse) PacketState() State         { return StateStatus }

func (p *PongResponse) Decode(r io.Reader) error {
	v, err := ReadI64(r)
	p.Payload = v
	return err
}

func (p *PongResponse) Encode(w io.Writer) error {
	return WriteI64(w, p.Payload)
}

// LoginStart is packet 0x00, serverbound, in the Login state.
type LoginStart struct {
	Name       string
	PlayerUUID uuid.UUID
}

func (*LoginStart) PacketID() int32            { return 0x00 }
func (*LoginStart) PacketDirection() Direction { return Serverbound }
func (*LoginStart) PacketState() State         { return StateLogin }

func (l *LoginStart) Decode(r io.Reader) error {
	name, err := ReadString(r, maxPlayerNameBytes)
	if err != nil {
		return err
	}
	raw, err := ReadU128(r)
	if err != nil {
		return err
	}
	l.Name = name
	l.PlayerUUID = uuid.UUID(raw)
	return nil
}

func (l *LoginStart) Encode(w io.Writer) error {
	if err := WriteString(w, l.Name, maxPlayerNameBytes); err != nil {
		return err
	}
	return WriteU128(w, [16]byte(l.PlayerUUID))
}
