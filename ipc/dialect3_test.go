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

// encodeMsg3 packs a header word followed by w's little-endian fields,
// the same framing a major-3 host would put on the wire, for DecodeMessage
// to parse back.
func encodeMsg3(t *testing.T, h Header, w any) []byte {
	t.Helper()
	var buf bytes.Buffer
	var hdr [4]byte
	byteOrder.PutUint32(hdr[:], h.Encode())
	buf.Write(hdr[:])
	require.NoError(t, binary.Write(&buf, byteOrder, w))
	return buf.Bytes()
}

func TestDialect3NewBufferRoundTrip(t *testing.T) {
	format := fmt16()
	wire := struct {
		ID, SizeB uint32
		Format    formatWire3
		CrossCore uint32
		Async     uint32
	}{ID: 7, SizeB: 768, Format: encodeFormat3(format), CrossCore: 0, Async: 1}

	raw := encodeMsg3(t, Header{Class: ClassTPLG, CommandID: CmdNewBuffer}, wire)

	msg, err := DecodeMessage(DialectMajor3, raw)
	require.NoError(t, err)
	assert.Equal(t, ClassTPLG, msg.Header.Class)
	req, ok := msg.Decoded.(NewBufferReq)
	require.True(t, ok)
	assert.Equal(t, NewBufferReq{ID: 7, SizeB: 768, Format: format, CrossCore: false, Async: true}, req)
}

func TestDialect3PCMParamsRoundTrip(t *testing.T) {
	format := fmt16()
	wire := struct {
		PipelineID      uint32
		Format          formatWire3
		FramesPerPeriod uint32
		Direction       uint32
	}{PipelineID: 1, Format: encodeFormat3(format), FramesPerPeriod: 48, Direction: uint32(platform.DirectionPlayback)}

	raw := encodeMsg3(t, Header{Class: ClassStream, CommandID: CmdPCMParams}, wire)

	msg, err := DecodeMessage(DialectMajor3, raw)
	require.NoError(t, err)
	req, ok := msg.Decoded.(PCMParamsReq)
	require.True(t, ok)
	assert.Equal(t, PCMParamsReq{
		PipelineID: 1, Format: format, FramesPerPeriod: 48, Direction: platform.DirectionPlayback,
	}, req)
}

func TestDialect3TriggerAndEncodeReplyRoundTrip(t *testing.T) {
	wire := struct{ PipelineID, Cmd uint32 }{PipelineID: 3, Cmd: uint32(component.TriggerStart)}
	raw := encodeMsg3(t, Header{Class: ClassStream, CommandID: CmdTrigger}, wire)

	msg, err := DecodeMessage(DialectMajor3, raw)
	require.NoError(t, err)
	req, ok := msg.Decoded.(TriggerReq)
	require.True(t, ok)
	assert.Equal(t, TriggerReq{PipelineID: 3, Cmd: component.TriggerStart}, req)

	replyBytes := EncodeReply(Reply{Header: replyHeader(msg.Header), Error: Success})
	require.Len(t, replyBytes, 8)
	gotHeader := DecodeHeader(byteOrder.Uint32(replyBytes[0:4]))
	assert.True(t, gotHeader.Reply)
	assert.Equal(t, ClassStream, gotHeader.Class)
	assert.Equal(t, CmdTrigger, gotHeader.CommandID)
	gotErr := ErrorCode(int32(byteOrder.Uint32(replyBytes[4:8])))
	assert.Equal(t, Success, gotErr)
}

func TestDialect3UnknownCommandIsRejected(t *testing.T) {
	raw := encodeMsg3(t, Header{Class: ClassTPLG, CommandID: 99}, struct{}{})
	_, err := DecodeMessage(DialectMajor3, raw)
	assert.Error(t, err)
}
