package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WritePacket encodes a request into a pooled buffer and writes it with a
// single Write call.
func WritePacket(w io.Writer, kind Kind, id int32, body string) error {
	if err := ValidateBody(body); err != nil {
		return err
	}

	buf := GetBufferWithSize(4 + len(body) + WrapperSize)
	defer PutBuffer(buf)

	buf.Write(AppendFrame(buf.AvailableBuffer(), kind, id, []byte(body)))

	return WriteFrame(w, buf.Bytes())
}

// WriteFrame writes an already encoded frame.
func WriteFrame(w io.Writer, frame []byte) error {
	n, err := w.Write(frame)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("write frame: %w", io.ErrShortWrite)
	}
	return nil
}

// ReadFrame reads exactly one frame, size prefix included. A frame delivered
// across several TCP segments is stitched together by io.ReadFull.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read size: %w", err)
	}

	size := int32(binary.LittleEndian.Uint32(prefix[:]))
	if size < WrapperSize || size > MaxFrameSize {
		return nil, NewError(ClassMalformedPacket, "read", "declared size %d out of range [%d, %d]", size, WrapperSize, MaxFrameSize)
	}

	frame := make([]byte, 4+int(size))
	copy(frame, prefix[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return frame, nil
}

// ReadPacket reads and decodes one frame.
func ReadPacket(r io.Reader) (Packet, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return Packet{}, err
	}
	return Decode(frame)
}
