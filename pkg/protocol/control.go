package protocol

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing          ControlType = 0x01 // Client/server ping
	ControlPong          ControlType = 0x02 // Response to ping
	ControlResyncRequest ControlType = 0x10 // Client asks for a fresh snapshot
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlResyncRequest:
		return "ResyncRequest"
	default:
		return "Unknown"
	}
}

// Control is a control message. Value is a millisecond timestamp for
// Ping/Pong and the last applied sequence number for ResyncRequest.
type Control struct {
	Type  ControlType
	Value uint64
}

// EncodeControl encodes a control payload.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	e.WriteUvarint(c.Value)
	return e.Bytes()
}

// DecodeControl decodes a control payload.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	v, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &Control{Type: ControlType(t), Value: v}, nil
}
