// Package ipc implements the host-facing IPC engine: it parses messages
// out of the incoming mailbox, dispatches them by command class to
// topology/stream/component/trace/power-management handlers, and drains
// replies and notifications back to the outgoing mailbox.
package ipc

import (
	"encoding/binary"
	"fmt"
)

// Dialect selects which of the two incompatible wire schemas a header and
// its payload decode under. Both share the bit-packed header format;
// their command payloads diverge, which is why decoding is split between
// dialect3.go and dialect4.go rather than shared.
type Dialect int

const (
	DialectMajor3 Dialect = iota
	DialectMajor4
)

// Class is the command class encoded in a header's high bits.
type Class uint32

const (
	ClassTPLG Class = iota
	ClassStream
	ClassComp
	ClassDMATrace
	ClassPM
	ClassFWReady
)

func (c Class) String() string {
	names := [...]string{"GLB_TPLG", "GLB_STREAM", "GLB_COMP", "GLB_DMA_TRACE", "GLB_PM", "GLB_FW_READY"}
	if int(c) < len(names) {
		return names[c]
	}
	return "GLB_UNKNOWN"
}

// Header is the fixed 32-bit command header shared by both dialects:
// high bits carry the command class and command id, one bit carries the
// reply flag the host clears and the DSP sets. The payload that follows
// a header is fixed-size per command id and is NOT length-prefixed at
// this layer; any variable-length tail (a component's config blob, for
// instance) is simply whatever bytes follow that command's fixed struct.
type Header struct {
	Class     Class
	CommandID uint32
	Reply     bool
}

const (
	classShift   = 24
	classMask    = 0x3f
	commandShift = 16
	commandMask  = 0xff
	replyBit     = 1 << 30
)

// Encode packs the header into its wire representation.
func (h Header) Encode() uint32 {
	var w uint32
	w |= (uint32(h.Class) & classMask) << classShift
	w |= (h.CommandID & commandMask) << commandShift
	if h.Reply {
		w |= replyBit
	}
	return w
}

// DecodeHeader unpacks a header word.
func DecodeHeader(w uint32) Header {
	return Header{
		Class:     Class((w >> classShift) & classMask),
		CommandID: (w >> commandShift) & commandMask,
		Reply:     w&replyBit != 0,
	}
}

// Message is a fully framed command: header plus class-specific payload
// bytes, exactly as staged from the mailbox. Decoded carries the payload
// already parsed into one of the command request types in commands.go.
// Dispatch only ever looks at Decoded; Payload is kept around for
// logging/diagnostics and isn't re-parsed.
type Message struct {
	Dialect Dialect
	Header  Header
	Payload []byte
	Decoded any
}

// byteOrder is the wire byte order for every fixed-size command struct.
var byteOrder = binary.LittleEndian

// DecodeMessage turns raw mailbox bytes into a dispatch-ready Message: the
// first four bytes are the bit-packed header word, and everything after
// is the command's fixed-size payload, decoded under whichever dialect
// the caller says the mailbox is speaking.
func DecodeMessage(dialect Dialect, raw []byte) (Message, error) {
	if len(raw) < 4 {
		return Message{}, fmt.Errorf("ipc: message shorter than a header (%d bytes)", len(raw))
	}
	header := DecodeHeader(byteOrder.Uint32(raw[:4]))
	payload := raw[4:]

	var decode func(Header, []byte) (any, error)
	switch dialect {
	case DialectMajor3:
		decode = decodeDialect3
	case DialectMajor4:
		decode = decodeDialect4
	default:
		return Message{}, fmt.Errorf("ipc: unknown dialect %d", dialect)
	}

	decoded, err := decode(header, payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Dialect: dialect, Header: header, Payload: payload, Decoded: decoded}, nil
}

// Reply is the one-and-only reply a command produces.
type Reply struct {
	Header  Header
	Error   ErrorCode
	Payload []byte
}

// EncodeReply packs a reply's header word and error code into the bytes
// written back to the outgoing mailbox.
func EncodeReply(r Reply) []byte {
	buf := make([]byte, 8+len(r.Payload))
	byteOrder.PutUint32(buf[0:4], r.Header.Encode())
	byteOrder.PutUint32(buf[4:8], uint32(int32(r.Error)))
	copy(buf[8:], r.Payload)
	return buf
}

// NotificationKind enumerates DSP-initiated async messages: stream
// position, xrun, keyword detection, and cross-core crash fan-out.
type NotificationKind int

const (
	NotifyStreamPosition NotificationKind = iota
	NotifyXrun
	NotifyKeywordDetected
	NotifySecondaryCoreCrashed
)

// Notification is queued by component/pipeline contexts and drained FIFO
// onto the outgoing mailbox, preemptible by a reply that's urgently due.
type Notification struct {
	Kind        NotificationKind
	PipelineID  uint32
	ComponentID uint32
	Payload     []byte
}
