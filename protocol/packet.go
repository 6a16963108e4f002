package protocol

import (
	"encoding/binary"
	"strings"
)

// Kind is the packet type discriminant. The values are fixed by the protocol and
// are not unique: KindAuthResponse and KindExecCommand are both 2, so a decoded
// value only means something next to the kind the caller expected.
type Kind int32

const (
	KindResponseValue Kind = 0 // server -> client, command output
	KindExecCommand   Kind = 2 // client -> server, command to run
	KindAuthResponse  Kind = 2 // server -> client, handshake result
	KindAuth          Kind = 3 // client -> server, password
)

// Wire format: [4 bytes size][4 bytes id][4 bytes type][body][0x00][0x00]
// All integers are signed little-endian. Size counts everything after itself.
const (
	// HeaderSize is the size, id and type fields.
	HeaderSize = 12

	// WrapperSize is the part of Size that is not body: id, type and two NULs.
	WrapperSize = 4 + 4 + 2

	// MaxPacketSize is the largest Size a client is allowed to send.
	MaxPacketSize = 4096

	// MaxFrameSize is the largest Size accepted when reading. Servers may send
	// more than MaxPacketSize; anything past this is treated as garbage.
	MaxFrameSize = 1 << 20
)

// Packet is one decoded frame.
type Packet struct {
	Size int32
	ID   int32
	Kind Kind
	Body string
}

// PacketSize returns the Size field for a body of n bytes.
func PacketSize(n int) int32 {
	return int32(n + WrapperSize)
}

// Encode builds the wire frame for a client request. The body must not contain
// NUL bytes, since the first NUL terminates it on the wire, and the encoded
// size field may not exceed MaxPacketSize, so bodies are limited to
// MaxPacketSize-WrapperSize bytes. Violations fail with ErrMalformedPacket.
func Encode(kind Kind, id int32, body string) ([]byte, error) {
	if err := ValidateBody(body); err != nil {
		return nil, err
	}
	return AppendFrame(make([]byte, 0, 4+len(body)+WrapperSize), kind, id, []byte(body)), nil
}

// ValidateBody reports whether body can be sent as a request body.
func ValidateBody(body string) error {
	if i := strings.IndexByte(body, 0); i >= 0 {
		return NewError(ClassMalformedPacket, "encode", "body contains NUL at offset %d", i)
	}
	if size := len(body) + WrapperSize; size > MaxPacketSize {
		return NewError(ClassMalformedPacket, "encode", "packet size %d exceeds %d", size, MaxPacketSize)
	}
	return nil
}

// AppendFrame appends a frame to dst without validating body. Server side code
// uses it for frames whose body legitimately carries NUL bytes.
func AppendFrame(dst []byte, kind Kind, id int32, body []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(PacketSize(len(body))))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(id))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(kind))
	dst = append(dst, body...)
	return append(dst, 0, 0)
}

// Decode parses exactly one frame, size prefix included.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, NewError(ClassMalformedPacket, "decode", "short header: %d bytes", len(b))
	}

	size := int32(binary.LittleEndian.Uint32(b[0:4]))
	if size < WrapperSize {
		return Packet{}, NewError(ClassMalformedPacket, "decode", "declared size %d below minimum %d", size, WrapperSize)
	}
	if size > MaxFrameSize {
		return Packet{}, NewError(ClassMalformedPacket, "decode", "declared size %d exceeds %d", size, MaxFrameSize)
	}
	if int(size) != len(b)-4 {
		return Packet{}, NewError(ClassMalformedPacket, "decode", "declared size %d, have %d bytes", size, len(b)-4)
	}
	if b[len(b)-2] != 0 || b[len(b)-1] != 0 {
		return Packet{}, NewError(ClassMalformedPacket, "decode", "missing NUL terminators")
	}

	return Packet{
		Size: size,
		ID:   int32(binary.LittleEndian.Uint32(b[4:8])),
		Kind: Kind(int32(binary.LittleEndian.Uint32(b[8:12]))),
		Body: string(b[HeaderSize : len(b)-2]),
	}, nil
}
