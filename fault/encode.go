package fault

import "encoding/binary"

const recordHeaderSize = 4 + 4 + 8 + 4 // type + core + timestamp + stack length

// Encode serialises a Record as: type, core, timestamp, stack length,
// stack bytes. Fixed-width header fields keep the host's crash-dump
// reader independent of the stack snapshot's length.
func Encode(r Record) []byte {
	buf := make([]byte, recordHeaderSize+len(r.Stack))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Type))
	binary.LittleEndian.PutUint32(buf[4:8], r.Core)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.Timestamp))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(r.Stack)))
	copy(buf[20:], r.Stack)
	return buf
}

// Decode parses a Record previously written by Encode. The stack slice
// is truncated to whatever fits in buf (Panic may have truncated it to
// the EXCEPTION window's size before writing).
func Decode(buf []byte) (Record, bool) {
	if len(buf) < recordHeaderSize {
		return Record{}, false
	}
	r := Record{
		Type:      Type(binary.LittleEndian.Uint32(buf[0:4])),
		Core:      binary.LittleEndian.Uint32(buf[4:8]),
		Timestamp: int64(binary.LittleEndian.Uint64(buf[8:16])),
	}
	n := binary.LittleEndian.Uint32(buf[16:20])
	avail := uint32(len(buf) - recordHeaderSize)
	if n > avail {
		n = avail
	}
	r.Stack = append([]byte(nil), buf[recordHeaderSize:recordHeaderSize+n]...)
	return r, true
}
