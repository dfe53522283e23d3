package core

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/idc"
	"github.com/avnera-audio/dspfw/ipc"
)

func TestPollHostMailboxEmptyIsNoOp(t *testing.T) {
	c := bootPrimary(t)
	posted, err := c.PollHostMailbox()
	require.NoError(t, err)
	assert.False(t, posted)
}

func TestPollHostMailboxDecodesDispatchesAndReplies(t *testing.T) {
	c, err := Boot(BootConfig{ID: 0, Primary: true, Hub: idc.NewHub(), Sim: testSimConfig(), Dialect: ipc.DialectMajor4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// KindEQFIR resolves to PassthroughDriver, which allocates
	// unconditionally and needs no Config.Extra wiring — unlike
	// KindHost/KindDAI, whose Extra the platform layer fills in before a
	// request reaches the engine, never from the mailbox itself.
	wire := struct {
		Self               [4]byte // moduleInstance4 packs as ModuleID, InstanceID uint16 each
		Kind               uint32
		PipelineID, Core   uint32
		ABIVersion         uint16
		Channels           uint16
	}{Kind: uint32(component.KindEQFIR), PipelineID: 1, Core: 0, ABIVersion: 1, Channels: 2}
	binary.LittleEndian.PutUint16(wire.Self[2:], 10) // InstanceID = 10

	var payload bytes.Buffer
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, wire))

	header := ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewComponent}
	require.NoError(t, PostHostCommand(c.Platform, header, payload.Bytes()))

	posted, err := c.PollHostMailbox()
	require.NoError(t, err)
	assert.True(t, posted)

	reply, err := ReadHostReply(c.Platform)
	require.NoError(t, err)
	require.Len(t, reply, 8)
	gotHeader := ipc.DecodeHeader(binary.LittleEndian.Uint32(reply[0:4]))
	assert.True(t, gotHeader.Reply)
	assert.Equal(t, ipc.ClassTPLG, gotHeader.Class)
	gotErr := ipc.ErrorCode(int32(binary.LittleEndian.Uint32(reply[4:8])))
	assert.Equal(t, ipc.Success, gotErr)
	assert.Contains(t, c.Engine.Components, uint32(10))
}
