package protocol

import "fmt"

// PatchOp is the type of patch operation.
type PatchOp uint8

// Patch operation constants.
const (
	PatchCreateElement PatchOp = 0x01 // Create detached element
	PatchCreateText    PatchOp = 0x02 // Create detached text node
	PatchInsert        PatchOp = 0x03 // Attach a new node
	PatchMove          PatchOp = 0x04 // Reposition an attached node
	PatchRemove        PatchOp = 0x05 // Detach node
	PatchSetAttr       PatchOp = 0x06 // Set attribute
	PatchRemoveAttr    PatchOp = 0x07 // Remove attribute
	PatchSetText       PatchOp = 0x08 // Update text content
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreateElement:
		return "CreateElement"
	case PatchCreateText:
		return "CreateText"
	case PatchInsert:
		return "Insert"
	case PatchMove:
		return "Move"
	case PatchRemove:
		return "Remove"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetText:
		return "SetText"
	default:
		return "Unknown"
	}
}

// Patch is a single surface operation.
type Patch struct {
	Op     PatchOp
	HID    string // Target node
	Parent string // Parent HID for Insert/Move/Remove
	Ref    string // Insert/Move before this HID; "" appends
	Key    string // Tag for CreateElement, attribute name for attributes
	Value  string // Text or attribute value
}

// String renders the patch for logs and the inspect command.
func (p Patch) String() string {
	switch p.Op {
	case PatchCreateElement:
		return fmt.Sprintf("%s %s <%s>", p.Op, p.HID, p.Key)
	case PatchCreateText, PatchSetText:
		return fmt.Sprintf("%s %s %q", p.Op, p.HID, p.Value)
	case PatchInsert, PatchMove:
		if p.Ref == "" {
			return fmt.Sprintf("%s %s into %s", p.Op, p.HID, p.Parent)
		}
		return fmt.Sprintf("%s %s into %s before %s", p.Op, p.HID, p.Parent, p.Ref)
	case PatchRemove:
		return fmt.Sprintf("%s %s from %s", p.Op, p.HID, p.Parent)
	case PatchSetAttr:
		return fmt.Sprintf("%s %s %s=%q", p.Op, p.HID, p.Key, p.Value)
	case PatchRemoveAttr:
		return fmt.Sprintf("%s %s %s", p.Op, p.HID, p.Key)
	default:
		return fmt.Sprintf("%s %s", p.Op, p.HID)
	}
}

// PatchesFrame is the batch of patches produced by one flush.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteString(p.HID)

	switch p.Op {
	case PatchCreateElement:
		e.WriteString(p.Key)
	case PatchCreateText, PatchSetText:
		e.WriteString(p.Value)
	case PatchInsert, PatchMove:
		e.WriteString(p.Parent)
		e.WriteString(p.Ref)
	case PatchRemove:
		e.WriteString(p.Parent)
	case PatchSetAttr:
		e.WriteString(p.Key)
		e.WriteString(p.Value)
	case PatchRemoveAttr:
		e.WriteString(p.Key)
	}
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	pf, err := DecodePatchesFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	patches := make([]Patch, count)
	for i := range patches {
		if err := decodePatch(d, &patches[i]); err != nil {
			return nil, err
		}
	}

	return &PatchesFrame{Seq: seq, Patches: patches}, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)

	if p.HID, err = d.ReadString(); err != nil {
		return err
	}

	switch p.Op {
	case PatchCreateElement, PatchRemoveAttr:
		p.Key, err = d.ReadString()
	case PatchCreateText, PatchSetText:
		p.Value, err = d.ReadString()
	case PatchInsert, PatchMove:
		if p.Parent, err = d.ReadString(); err != nil {
			return err
		}
		p.Ref, err = d.ReadString()
	case PatchRemove:
		p.Parent, err = d.ReadString()
	case PatchSetAttr:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = d.ReadString()
	default:
		return fmt.Errorf("protocol: unknown patch op 0x%02x", op)
	}
	return err
}

// PatchFrames encodes pf into one or more Patches frames that each fit
// MaxPayloadSize. Every frame but the last carries FlagContinued and all of
// them repeat pf.Seq.
func PatchFrames(pf *PatchesFrame) ([]*Frame, error) {
	var frames []*Frame
	one := NewEncoder()
	chunk := make([]Patch, 0, len(pf.Patches))
	size := 0

	flush := func() {
		payload := EncodePatches(&PatchesFrame{Seq: pf.Seq, Patches: chunk})
		frames = append(frames, &Frame{Type: FramePatches, Flags: FlagContinued, Payload: payload})
		chunk = chunk[:0]
		size = 0
	}

	// Seq and count prefixes take at most 10 and 3 bytes.
	const overhead = 13
	for _, p := range pf.Patches {
		one.Reset()
		encodePatch(one, &p)
		if one.Len()+overhead > MaxPayloadSize {
			return nil, ErrFrameTooLarge
		}
		if size+one.Len()+overhead > MaxPayloadSize {
			flush()
		}
		chunk = append(chunk, p)
		size += one.Len()
	}
	flush()

	frames[len(frames)-1].Flags = 0
	return frames, nil
}
