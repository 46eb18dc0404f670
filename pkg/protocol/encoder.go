package protocol

import "encoding/binary"

// Encoder builds a payload. The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with room for a typical patch batch.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset empties the encoder and keeps its buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the payload so far. It aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the payload size.
func (e *Encoder) Len() int { return len(e.buf) }

// WriteByte appends b. It never fails.
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends raw bytes without a length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteUvarint appends v as an unsigned LEB128 varint.
func (e *Encoder) WriteUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }

// WriteString appends s prefixed by its byte length.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 1 for true and 0 for false.
func (e *Encoder) WriteBool(b bool) {
	var v byte
	if b {
		v = 1
	}
	e.buf = append(e.buf, v)
}
