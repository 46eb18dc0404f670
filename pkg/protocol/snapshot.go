package protocol

// Snapshot carries the full HTML of the surface as of sequence number Seq.
// Clients replace their content with it and apply later patch frames.
type Snapshot struct {
	Seq  uint64
	HTML string
}

// EncodeSnapshot encodes a snapshot payload.
func EncodeSnapshot(s *Snapshot) []byte {
	e := NewEncoder()
	e.WriteUvarint(s.Seq)
	e.WriteString(s.HTML)
	return e.Bytes()
}

// DecodeSnapshot decodes a snapshot payload.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	html, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &Snapshot{Seq: seq, HTML: html}, nil
}

// SnapshotFrames splits s into Snapshot frames that each fit MaxPayloadSize.
// Concatenating the HTML of every frame yields s.HTML.
func SnapshotFrames(s *Snapshot) []*Frame {
	// Seq and the string length prefix take at most 10 and 3 bytes.
	const chunkSize = MaxPayloadSize - 13

	html := s.HTML
	var frames []*Frame
	for {
		n := min(len(html), chunkSize)
		payload := EncodeSnapshot(&Snapshot{Seq: s.Seq, HTML: html[:n]})
		html = html[n:]
		f := NewFrame(FrameSnapshot, payload)
		if len(html) > 0 {
			f.Flags = FlagContinued
		}
		frames = append(frames, f)
		if len(html) == 0 {
			return frames
		}
	}
}
