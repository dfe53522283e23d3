package ipc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/platform"
)

// encodeMsg4 packs a header word followed by w's little-endian fields,
// the same framing a major-4 host would put on the wire.
func encodeMsg4(t *testing.T, h Header, w any) []byte {
	t.Helper()
	var buf bytes.Buffer
	var hdr [4]byte
	byteOrder.PutUint32(hdr[:], h.Encode())
	buf.Write(hdr[:])
	require.NoError(t, binary.Write(&buf, byteOrder, w))
	return buf.Bytes()
}

func TestDialect4NewBufferRoundTrip(t *testing.T) {
	format := fmt16()
	wire := struct {
		Self      moduleInstance4
		SizeB     uint32
		Format    formatWire4
		CrossCore uint32
		Async     uint32
	}{Self: moduleInstance4{ModuleID: 0, InstanceID: 20}, SizeB: 768, Format: encodeFormat4(format), CrossCore: 1, Async: 0}

	raw := encodeMsg4(t, Header{Class: ClassTPLG, CommandID: CmdNewBuffer}, wire)

	msg, err := DecodeMessage(DialectMajor4, raw)
	require.NoError(t, err)
	req, ok := msg.Decoded.(NewBufferReq)
	require.True(t, ok)
	assert.Equal(t, NewBufferReq{ID: 20, SizeB: 768, Format: format, CrossCore: true, Async: false}, req)
}

func TestDialect4NewComponentRoundTrip(t *testing.T) {
	payload := []byte{0x11, 0x22, 0x33, 0x44}
	wire := struct {
		Self               moduleInstance4
		Kind               uint32
		PipelineID, Core   uint32
		ABIVersion         uint16
		Channels           uint16
	}{
		Self: moduleInstance4{InstanceID: 10}, Kind: uint32(component.KindHost),
		PipelineID: 1, Core: 0, ABIVersion: 1, Channels: 2,
	}

	var buf bytes.Buffer
	var hdr [4]byte
	byteOrder.PutUint32(hdr[:], Header{Class: ClassTPLG, CommandID: CmdNewComponent}.Encode())
	buf.Write(hdr[:])
	require.NoError(t, binary.Write(&buf, byteOrder, wire))
	buf.Write(payload)

	msg, err := DecodeMessage(DialectMajor4, buf.Bytes())
	require.NoError(t, err)
	req, ok := msg.Decoded.(NewComponentReq)
	require.True(t, ok)
	assert.Equal(t, uint32(10), req.ID)
	assert.Equal(t, component.KindHost, req.Kind)
	assert.Equal(t, uint32(1), req.ABIVersion)
	assert.Equal(t, payload, req.Payload)
}

func TestDialect4TriggerAndEncodeReplyRoundTrip(t *testing.T) {
	wire := struct {
		Pipeline moduleInstance4
		Cmd      uint32
	}{Pipeline: moduleInstance4{InstanceID: 3}, Cmd: uint32(component.TriggerStart)}
	raw := encodeMsg4(t, Header{Class: ClassStream, CommandID: CmdTrigger}, wire)

	msg, err := DecodeMessage(DialectMajor4, raw)
	require.NoError(t, err)
	req, ok := msg.Decoded.(TriggerReq)
	require.True(t, ok)
	assert.Equal(t, TriggerReq{PipelineID: 3, Cmd: component.TriggerStart}, req)

	replyBytes := EncodeReply(Reply{Header: replyHeader(msg.Header), Error: ErrInvalidResourceID})
	gotHeader := DecodeHeader(byteOrder.Uint32(replyBytes[0:4]))
	assert.True(t, gotHeader.Reply)
	gotErr := ErrorCode(int32(byteOrder.Uint32(replyBytes[4:8])))
	assert.Equal(t, ErrInvalidResourceID, gotErr)
}

func TestDialect4PCMParamsRoundTrip(t *testing.T) {
	format := fmt16()
	wire := struct {
		Pipeline        moduleInstance4
		Format          formatWire4
		FramesPerPeriod uint32
		Direction       uint32
	}{Pipeline: moduleInstance4{InstanceID: 1}, Format: encodeFormat4(format), FramesPerPeriod: 48, Direction: uint32(platform.DirectionCapture)}

	raw := encodeMsg4(t, Header{Class: ClassStream, CommandID: CmdPCMParams}, wire)

	msg, err := DecodeMessage(DialectMajor4, raw)
	require.NoError(t, err)
	req, ok := msg.Decoded.(PCMParamsReq)
	require.True(t, ok)
	assert.Equal(t, PCMParamsReq{
		PipelineID: 1, Format: format, FramesPerPeriod: 48, Direction: platform.DirectionCapture,
	}, req)
}
