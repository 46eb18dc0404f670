// Package protocol implements the binary wire format used to stream surface
// patches to connected clients.
//
// # Frame Format
//
// Every message is a frame with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Frame types:
//   - 0x02 Patches: server → client surface operations for one flush
//   - 0x03 Control: ping, pong and resync requests
//   - 0x05 Error: error message
//   - 0x06 Snapshot: server → client full HTML of the surface
//
// # Encoding
//
// Integers are varints, strings are varint-length-prefixed UTF-8 and
// booleans are one byte. Nodes are addressed by hydration IDs ("h1", "h2",
// ...) assigned by the streaming surface when it creates them.
//
// # Patch Operations
//
//	0x01 CreateElement  hid, tag
//	0x02 CreateText     hid, text
//	0x03 Insert         hid, parent, ref ("" appends)
//	0x04 Move           hid, parent, ref
//	0x05 Remove         hid, parent
//	0x06 SetAttr        hid, name, value
//	0x07 RemoveAttr     hid, name
//	0x08 SetText        hid, text
//
// Decoders reject collections larger than MaxCollectionCount and strings
// larger than DefaultMaxAllocation.
package protocol
