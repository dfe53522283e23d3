package ipc

import (
	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
)

// Command ids within GLB_TPLG.
const (
	CmdNewComponent uint32 = iota
	CmdNewBuffer
	CmdNewPipeline
	CmdPipelineComplete
	CmdConnect
	CmdFreeComponent
	CmdFreeBuffer
	CmdFreePipeline
)

// Command ids within GLB_STREAM.
const (
	CmdPCMParams uint32 = iota
	CmdPCMFree
	CmdPositionUpdate
	CmdTrigger
)

// Command ids within GLB_COMP.
const (
	CmdSetValue uint32 = iota
	CmdGetValue
	CmdSetData
	CmdGetData
)

// Command ids within GLB_PM.
const (
	CmdCtxSave uint32 = iota
	CmdCtxRestore
	CmdGate
	CmdClockSet
)

// NewComponentReq mirrors the wire struct for GLB_TPLG_MSG new_component.
type NewComponentReq struct {
	ID         uint32
	Kind       component.Kind
	Core       uint32
	PipelineID uint32
	ABIVersion uint32
	Channels   uint32
	Payload    []byte
	// Extra carries kind-specific wiring (DMA handles, host pull/push
	// callbacks, DAI reference) that has no wire representation; it is
	// filled in by the platform layer before the request reaches the
	// engine, never parsed from the mailbox itself.
	Extra any
}

// NewBufferReq mirrors new_buffer.
type NewBufferReq struct {
	ID        uint32
	SizeB     uint32
	Format    audioformat.Format
	CrossCore bool
	// Async requests the DP-queue ring flavour instead of SameCore/CrossCore,
	// for a producer/consumer pair not locked to the same period cadence.
	Async bool
}

// ConnectReq mirrors connect(producer, buffer, consumer).
type ConnectReq struct {
	ProducerID uint32
	BufferID   uint32
	ConsumerID uint32
}

// NewPipelineReq mirrors new_pipeline.
type NewPipelineReq struct {
	ID       uint32
	Core     uint32
	PeriodUs uint32
	Priority uint32
	Domain   pipeline.TimeDomain
}

// PipelineCompleteReq mirrors pipeline_complete.
type PipelineCompleteReq struct {
	PipelineID uint32
	SourceID   uint32
	SinkID     uint32
}

// PCMParamsReq mirrors pcm_params.
type PCMParamsReq struct {
	PipelineID      uint32
	Format          audioformat.Format
	FramesPerPeriod uint32
	Direction       platform.Direction
}

// TriggerReq mirrors the stream trigger command.
type TriggerReq struct {
	PipelineID uint32
	Cmd        component.TriggerCmd
}

func (e *Engine) handleNewComponent(req NewComponentReq) error {
	if _, exists := e.Components[req.ID]; exists {
		return fail(ErrResourceIDExists, nil)
	}
	driver, err := e.Registry.Lookup(req.Kind)
	if err != nil {
		return fail(ErrInvalidRequest, err)
	}
	inst, err := component.New(component.Config{
		ID: req.ID, Kind: req.Kind, Core: req.Core, PipelineID: req.PipelineID,
		ABIVersion: req.ABIVersion, Channels: uint16(req.Channels), Payload: req.Payload, Extra: req.Extra,
	}, driver)
	if err != nil {
		return fail(ErrInvalidRequest, err)
	}
	e.Components[req.ID] = inst
	return nil
}

func (e *Engine) handleFreeComponent(id uint32) error {
	inst, ok := e.Components[id]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	if err := inst.Free(); err != nil {
		return fail(ErrInvalidResourceState, err)
	}
	delete(e.Components, id)
	return nil
}

func (e *Engine) handleNewBuffer(req NewBufferReq) error {
	if _, exists := e.Buffers[req.ID]; exists {
		return fail(ErrResourceIDExists, nil)
	}
	kind := buffer.SameCore
	switch {
	case req.Async:
		kind = buffer.DPQueue
	case req.CrossCore:
		kind = buffer.CrossCore
	}
	ring, err := buffer.New(req.ID, kind, req.SizeB, req.Format, e.CacheOps)
	if err != nil {
		return fail(ErrInvalidRequest, err)
	}
	e.Buffers[req.ID] = ring
	return nil
}

func (e *Engine) handleFreeBuffer(id uint32) error {
	if _, ok := e.Buffers[id]; !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	delete(e.Buffers, id)
	return nil
}

// handleConnect wires a buffer as one component's sink and another's
// source.
func (e *Engine) handleConnect(req ConnectReq) error {
	producer, ok := e.Components[req.ProducerID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	ring, ok := e.Buffers[req.BufferID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	consumer, ok := e.Components[req.ConsumerID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	ring.Producer = producer.ID
	ring.Consumer = consumer.ID
	producer.Sinks = append(producer.Sinks, ring)
	consumer.Sources = append(consumer.Sources, ring)
	return nil
}

func (e *Engine) handleNewPipeline(req NewPipelineReq) error {
	if _, exists := e.Pipelines[req.ID]; exists {
		return fail(ErrResourceIDExists, nil)
	}
	e.Pipelines[req.ID] = &pipeline.Pipeline{
		ID: req.ID, Core: req.Core, PeriodUs: req.PeriodUs, Priority: req.Priority,
		TimeDomain: req.Domain, LocalCore: e.LocalCore, CrossCoreTrigger: e.CrossCoreTrigger,
		PostPosition: e.postPosition,
	}
	return nil
}

func (e *Engine) handlePipelineComplete(req PipelineCompleteReq) error {
	p, ok := e.Pipelines[req.PipelineID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	if err := p.Complete(e.Components, req.SourceID, req.SinkID); err != nil {
		return fail(ErrInvalidRequest, err)
	}
	return nil
}

func (e *Engine) handleFreePipeline(id uint32) error {
	p, ok := e.Pipelines[id]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	if err := p.Free(); err != nil {
		return fail(ErrInvalidResourceState, err)
	}
	delete(e.Pipelines, id)
	return nil
}

func (e *Engine) handlePCMParams(req PCMParamsReq) error {
	p, ok := e.Pipelines[req.PipelineID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	p.Direction = req.Direction
	if err := p.Params(component.StreamParams{Format: req.Format, FramesPerPeriod: req.FramesPerPeriod}); err != nil {
		return fail(ErrInvalidRequest, err)
	}
	if err := p.Prepare(); err != nil {
		return fail(ErrInvalidResourceState, err)
	}
	return nil
}

func (e *Engine) handleTrigger(req TriggerReq) error {
	p, ok := e.Pipelines[req.PipelineID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	if err := p.Trigger(req.Cmd); err != nil {
		return fail(ErrInvalidResourceState, err)
	}
	return nil
}

// SetAttributeReq mirrors GLB_COMP_MSG set_value/set_data.
type SetAttributeReq struct {
	ComponentID uint32
	Key         string
	Value       any
}

func (e *Engine) handleSetAttribute(req SetAttributeReq) error {
	inst, ok := e.Components[req.ComponentID]
	if !ok {
		return fail(ErrInvalidResourceID, nil)
	}
	if err := inst.SetAttribute(req.Key, req.Value); err != nil {
		return fail(ErrInvalidRequest, err)
	}
	return nil
}

// postPosition is the Pipeline.PostPosition hook: it turns a stream
// position update into an outgoing notification.
func (e *Engine) postPosition(pipelineID uint32, pos component.StreamPosition) {
	e.PostNotification(Notification{Kind: NotifyStreamPosition, PipelineID: pipelineID})
}
