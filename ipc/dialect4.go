package ipc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
)

// formatWire4 is the major-4 layout for audioformat.Format: rate and a
// packed channels/valid-bits/container-bits word, matching how module
// configs describe a format more densely than major-3's one-field-per-word
// struct. The two schemas are independent by design; neither embeds the
// other.
type formatWire4 struct {
	Frame        uint32
	RateHz       uint32
	Packed       uint32 // channels:16 | validBits:8 | containerBits:8
	Interleaving uint32
}

func decodeFormat4(w formatWire4) audioformat.Format {
	return audioformat.Format{
		Frame:         audioformat.FrameFormat(w.Frame),
		RateHz:        w.RateHz,
		Channels:      uint16(w.Packed >> 16),
		ValidBits:     uint8(w.Packed >> 8),
		ContainerBits: uint8(w.Packed),
		Interleaving:  audioformat.Interleaving(w.Interleaving),
	}
}

func encodeFormat4(f audioformat.Format) formatWire4 {
	packed := uint32(f.Channels)<<16 | uint32(f.ValidBits)<<8 | uint32(f.ContainerBits)
	return formatWire4{Frame: uint32(f.Frame), RateHz: f.RateHz, Packed: packed, Interleaving: uint32(f.Interleaving)}
}

func decodeDialect4(h Header, payload []byte) (any, error) {
	switch h.Class {
	case ClassTPLG:
		return decodeTPLG4(h, payload)
	case ClassStream:
		return decodeStream4(h, payload)
	case ClassComp:
		return decodeComp4(h, payload)
	default:
		return nil, nil
	}
}

// moduleInstance4 is major-4's module/instance addressing: every
// resource id is a (module id, instance id) pair packed into one word
// rather than a bare 32-bit id, matching SOF's IPC4 module addressing
// scheme. Module id is always 0 here (there is no module catalogue in
// scope); the instance id is the resource id used throughout the rest of
// this core.
type moduleInstance4 struct {
	ModuleID   uint16
	InstanceID uint16
}

func decodeTPLG4(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdNewComponent:
		var w struct {
			Self               moduleInstance4
			Kind               uint32
			PipelineID, Core   uint32
			ABIVersion         uint16
			Channels           uint16
		}
		r := bytes.NewReader(payload)
		if err := binary.Read(r, byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 new_component: %w", err)
		}
		cfg := make([]byte, r.Len())
		copy(cfg, payload[len(payload)-r.Len():])
		return NewComponentReq{
			ID: uint32(w.Self.InstanceID), Kind: component.Kind(w.Kind), Core: w.Core, PipelineID: w.PipelineID,
			ABIVersion: uint32(w.ABIVersion), Channels: uint32(w.Channels), Payload: cfg,
		}, nil
	case CmdFreeComponent, CmdFreeBuffer, CmdFreePipeline:
		return decodeID4(payload)
	case CmdNewBuffer:
		var w struct {
			Self      moduleInstance4
			SizeB     uint32
			Format    formatWire4
			CrossCore uint32
			Async     uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 new_buffer: %w", err)
		}
		return NewBufferReq{
			ID: uint32(w.Self.InstanceID), SizeB: w.SizeB, Format: decodeFormat4(w.Format),
			CrossCore: w.CrossCore != 0, Async: w.Async != 0,
		}, nil
	case CmdConnect:
		var w struct{ Producer, Buffer, Consumer moduleInstance4 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 connect: %w", err)
		}
		return ConnectReq{
			ProducerID: uint32(w.Producer.InstanceID), BufferID: uint32(w.Buffer.InstanceID), ConsumerID: uint32(w.Consumer.InstanceID),
		}, nil
	case CmdNewPipeline:
		var w struct {
			Self               moduleInstance4
			Core               uint32
			PeriodUs, Priority uint32
			Domain             uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 new_pipeline: %w", err)
		}
		return NewPipelineReq{
			ID: uint32(w.Self.InstanceID), Core: w.Core, PeriodUs: w.PeriodUs, Priority: w.Priority,
			Domain: pipeline.TimeDomain(w.Domain),
		}, nil
	case CmdPipelineComplete:
		var w struct{ Pipeline, Source, Sink moduleInstance4 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 pipeline_complete: %w", err)
		}
		return PipelineCompleteReq{
			PipelineID: uint32(w.Pipeline.InstanceID), SourceID: uint32(w.Source.InstanceID), SinkID: uint32(w.Sink.InstanceID),
		}, nil
	default:
		return nil, fmt.Errorf("ipc: dialect4: unknown GLB_TPLG command %d", h.CommandID)
	}
}

func decodeStream4(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdPCMParams:
		var w struct {
			Pipeline        moduleInstance4
			Format          formatWire4
			FramesPerPeriod uint32
			Direction       uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 pcm_params: %w", err)
		}
		return PCMParamsReq{
			PipelineID: uint32(w.Pipeline.InstanceID), Format: decodeFormat4(w.Format),
			FramesPerPeriod: w.FramesPerPeriod, Direction: platform.Direction(w.Direction),
		}, nil
	case CmdTrigger:
		var w struct {
			Pipeline moduleInstance4
			Cmd      uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 trigger: %w", err)
		}
		return TriggerReq{PipelineID: uint32(w.Pipeline.InstanceID), Cmd: component.TriggerCmd(w.Cmd)}, nil
	case CmdPCMFree:
		return decodeID4(payload)
	default:
		return nil, fmt.Errorf("ipc: dialect4: unknown GLB_STREAM command %d", h.CommandID)
	}
}

func decodeComp4(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdSetValue, CmdSetData:
		var w struct {
			Component moduleInstance4
			ControlID uint32
			Value     uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect4 set_value: %w", err)
		}
		return SetAttributeReq{ComponentID: uint32(w.Component.InstanceID), Key: fmt.Sprintf("ctl%d", w.ControlID), Value: w.Value}, nil
	default:
		return nil, fmt.Errorf("ipc: dialect4: unknown GLB_COMP command %d", h.CommandID)
	}
}

func decodeID4(payload []byte) (any, error) {
	var self moduleInstance4
	if err := binary.Read(bytes.NewReader(payload), byteOrder, &self); err != nil {
		return nil, fmt.Errorf("ipc: dialect4: resource id: %w", err)
	}
	return uint32(self.InstanceID), nil
}
