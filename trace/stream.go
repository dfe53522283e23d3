// Package trace implements the debug-stream slot: a mutex-guarded,
// overwrite-oldest ring per core that logging mirrors every record into,
// which the host drains asynchronously. The ring is not lockless.
package trace

import (
	"encoding/binary"
	"fmt"
)

// Magic is the debug-stream slot's leading signature.
var Magic = [4]byte{0x00, 'G', 'O', 'L'}

// StreamHeader is the fixed header at the start of the whole debug-stream
// window, ahead of the per-core circular buffers.
type StreamHeader struct {
	Magic       [4]byte
	TotalSize   uint32
	NumSections uint32
}

// EncodeHeader serialises a StreamHeader to the front of buf.
func EncodeHeader(buf []byte, totalSize, numSections uint32) error {
	if len(buf) < 12 {
		return fmt.Errorf("trace: header needs 12 bytes, got %d", len(buf))
	}
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], totalSize)
	binary.LittleEndian.PutUint32(buf[8:12], numSections)
	return nil
}

// DecodeHeader parses a StreamHeader and validates the magic.
func DecodeHeader(buf []byte) (StreamHeader, error) {
	if len(buf) < 12 {
		return StreamHeader{}, fmt.Errorf("trace: header needs 12 bytes, got %d", len(buf))
	}
	var h StreamHeader
	copy(h.Magic[:], buf[0:4])
	if h.Magic != Magic {
		return StreamHeader{}, fmt.Errorf("trace: bad magic %q", h.Magic)
	}
	h.TotalSize = binary.LittleEndian.Uint32(buf[4:8])
	h.NumSections = binary.LittleEndian.Uint32(buf[8:12])
	return h, nil
}
