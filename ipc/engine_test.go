package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
)

func fmt16() audioformat.Format {
	return audioformat.Format{Frame: audioformat.S16, RateHz: 48000, Channels: 2, ValidBits: 16, ContainerBits: 16}
}

func tplg(id uint32) Message {
	return Message{Header: Header{Class: ClassTPLG, CommandID: id}}
}
func stream(id uint32) Message {
	return Message{Header: Header{Class: ClassStream, CommandID: id}}
}

// TestHostPlaybackTwoComponentPipeline exercises a full host-playback
// pipeline setup end to end through the IPC engine's own command
// surface.
func TestHostPlaybackTwoComponentPipeline(t *testing.T) {
	e := NewEngine(component.NewRegistry(), 0)

	m := tplg(CmdNewComponent)
	m.Decoded = NewComponentReq{ID: 10, Kind: component.KindHost, PipelineID: 1, ABIVersion: component.CurrentABIVersion, Extra: component.HostEndpointConfig{
		Direction: platform.DirectionPlayback,
		Pull:      func(buf []byte) (int, error) { return len(buf), nil },
	}}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdNewComponent)
	m.Decoded = NewComponentReq{ID: 11, Kind: component.KindDAI, PipelineID: 1, ABIVersion: component.CurrentABIVersion, Extra: component.DAIEndpointConfig{
		Direction: platform.DirectionPlayback,
		Write:     func(buf []byte) error { return nil },
	}}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdNewBuffer)
	m.Decoded = NewBufferReq{ID: 20, SizeB: 768, Format: fmt16()}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdConnect)
	m.Decoded = ConnectReq{ProducerID: 10, BufferID: 20, ConsumerID: 11}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdNewPipeline)
	m.Decoded = NewPipelineReq{ID: 1, Core: 0, PeriodUs: 1000, Domain: pipeline.DMATickDriven}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdPipelineComplete)
	m.Decoded = PipelineCompleteReq{PipelineID: 1, SourceID: 10, SinkID: 11}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = stream(CmdPCMParams)
	m.Decoded = PCMParamsReq{PipelineID: 1, Format: fmt16(), FramesPerPeriod: 48, Direction: platform.DirectionPlayback}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = stream(CmdTrigger)
	m.Decoded = TriggerReq{PipelineID: 1, Cmd: component.TriggerStart}
	reply := e.Dispatch(m)
	assert.Equal(t, Success, reply.Error)
	assert.True(t, reply.Header.Reply)

	require.NoError(t, e.Pipelines[1].Tick(time.Now()))
	notifications := e.DrainNotifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyStreamPosition, notifications[0].Kind)
}

// TestConnectBeforeBufferIsInvalidResourceID checks that connecting to a
// not-yet-created buffer fails cleanly, and a subsequent correct
// sequence then succeeds.
func TestConnectBeforeBufferIsInvalidResourceID(t *testing.T) {
	e := NewEngine(component.NewRegistry(), 0)

	m := tplg(CmdNewComponent)
	m.Decoded = NewComponentReq{ID: 11, Kind: component.KindDAI, ABIVersion: component.CurrentABIVersion, Extra: component.DAIEndpointConfig{
		Direction: platform.DirectionPlayback, Write: func([]byte) error { return nil },
	}}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdNewComponent)
	m.Decoded = NewComponentReq{ID: 10, Kind: component.KindHost, ABIVersion: component.CurrentABIVersion, Extra: component.HostEndpointConfig{
		Direction: platform.DirectionPlayback, Pull: func(b []byte) (int, error) { return len(b), nil },
	}}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdConnect)
	m.Decoded = ConnectReq{ProducerID: 10, BufferID: 20, ConsumerID: 11}
	reply := e.Dispatch(m)
	assert.Equal(t, ErrInvalidResourceID, reply.Error)
	assert.Empty(t, e.Components[10].Sinks)

	m = tplg(CmdNewBuffer)
	m.Decoded = NewBufferReq{ID: 20, SizeB: 768, Format: fmt16()}
	require.Equal(t, Success, e.Dispatch(m).Error)

	m = tplg(CmdConnect)
	m.Decoded = ConnectReq{ProducerID: 10, BufferID: 20, ConsumerID: 11}
	require.Equal(t, Success, e.Dispatch(m).Error)
	assert.Len(t, e.Components[10].Sinks, 1)
}

// TestBusyRejectsReentrantDispatch checks the FIFO guard: a Dispatch call
// made while another is still outstanding is rejected with BUSY rather
// than interleaved.
func TestBusyRejectsReentrantDispatch(t *testing.T) {
	e := NewEngine(component.NewRegistry(), 0)
	e.awaitingReply = true
	reply := e.Dispatch(tplg(CmdNewComponent))
	assert.Equal(t, ErrBusy, reply.Error)
}

// TestNewBufferAsyncSelectsDPQueue checks that a buffer requested with
// Async set gets the DP-queue ring flavour rather than SameCore/CrossCore,
// regardless of CrossCore also being set.
func TestNewBufferAsyncSelectsDPQueue(t *testing.T) {
	e := NewEngine(component.NewRegistry(), 0)

	m := tplg(CmdNewBuffer)
	m.Decoded = NewBufferReq{ID: 30, SizeB: 2048, Format: fmt16(), CrossCore: true, Async: true}
	require.Equal(t, Success, e.Dispatch(m).Error)

	require.Contains(t, e.Buffers, uint32(30))
	assert.Equal(t, buffer.DPQueue, e.Buffers[30].Kind)
}
