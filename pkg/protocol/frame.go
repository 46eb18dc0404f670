package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FramePatches  FrameType = 0x02 // Server → Client patches
	FrameControl  FrameType = 0x03 // Ping, pong, resync
	FrameError    FrameType = 0x05 // Error message
	FrameSnapshot FrameType = 0x06 // Server → Client full HTML
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FramePatches:
		return "Patches"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	case FrameSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagContinued FrameFlags = 0x01 // More frames follow for the same sequence number
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a header plus payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a new frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() ([]byte, error) {
	length := len(f.Payload)
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, FrameHeaderSize, FrameHeaderSize+length)
	out[0] = byte(f.Type)
	out[1] = byte(f.Flags)
	binary.BigEndian.PutUint16(out[2:], uint16(length))
	return append(out, f.Payload...), nil
}

// DecodeFrame decodes a frame from bytes. data must hold exactly one frame.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft, err := checkType(data[0])
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	if len(data) > FrameHeaderSize+length {
		return nil, ErrTrailingData
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])

	return &Frame{
		Type:    ft,
		Flags:   FrameFlags(data[1]),
		Payload: payload,
	}, nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, err := checkType(header[0])
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(header[2:]))

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{
		Type:    ft,
		Flags:   FrameFlags(header[1]),
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func checkType(b byte) (FrameType, error) {
	switch ft := FrameType(b); ft {
	case FramePatches, FrameControl, FrameError, FrameSnapshot:
		return ft, nil
	}
	return 0, ErrInvalidFrameType
}
