package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Limits applied to lengths and counts read off the wire.
const (
	// DefaultMaxAllocation caps a single string (4MB).
	DefaultMaxAllocation = 4 << 20

	// MaxCollectionCount caps the patch count of one frame.
	MaxCollectionCount = 100_000
)

// Decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrTrailingData       = errors.New("protocol: trailing data after payload")
)

// Decoder consumes a payload front to back.
type Decoder struct {
	data []byte
}

// NewDecoder returns a decoder over data. data is not copied.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) }

// ReadByte consumes one byte.
func (d *Decoder) ReadByte() (byte, error) {
	if len(d.data) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.data[0]
	d.data = d.data[1:]
	return b, nil
}

// ReadUvarint consumes an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data)
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.data = d.data[n:]
	return v, nil
}

// ReadString consumes a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > DefaultMaxAllocation {
		return "", ErrAllocationTooLarge
	}
	if n > uint64(len(d.data)) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(d.data[:n])
	d.data = d.data[n:]
	return s, nil
}

// ReadBool consumes one byte; anything but 0 is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadCollectionCount consumes a count and checks it against
// MaxCollectionCount and the bytes left, since every item takes at least
// one byte.
func (d *Decoder) ReadCollectionCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if n > uint64(len(d.data)) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

func (d *Decoder) finish() error {
	if len(d.data) > 0 {
		return ErrTrailingData
	}
	return nil
}
