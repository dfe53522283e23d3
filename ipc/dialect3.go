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

// formatWire3 is the major-3 on-the-wire layout for audioformat.Format:
// plain little-endian fixed-width fields, one per struct field, matching
// how a handwritten C struct gets packed with no trailing padding.
type formatWire3 struct {
	Frame         uint32
	RateHz        uint32
	Channels      uint32
	ValidBits     uint32
	ContainerBits uint32
	Interleaving  uint32
}

func decodeFormat3(w formatWire3) audioformat.Format {
	return audioformat.Format{
		Frame: audioformat.FrameFormat(w.Frame), RateHz: w.RateHz, Channels: uint16(w.Channels),
		ValidBits: uint8(w.ValidBits), ContainerBits: uint8(w.ContainerBits),
		Interleaving: audioformat.Interleaving(w.Interleaving),
	}
}

func encodeFormat3(f audioformat.Format) formatWire3 {
	return formatWire3{
		Frame: uint32(f.Frame), RateHz: f.RateHz, Channels: uint32(f.Channels),
		ValidBits: uint32(f.ValidBits), ContainerBits: uint32(f.ContainerBits),
		Interleaving: uint32(f.Interleaving),
	}
}

func decodeDialect3(h Header, payload []byte) (any, error) {
	switch h.Class {
	case ClassTPLG:
		return decodeTPLG3(h, payload)
	case ClassStream:
		return decodeStream3(h, payload)
	case ClassComp:
		return decodeComp3(h, payload)
	default:
		// GLB_DMA_TRACE / GLB_PM / GLB_FW_READY carry no fixed Go struct;
		// the engine's handlers for those classes don't type-assert Decoded.
		return nil, nil
	}
}

func decodeTPLG3(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdNewComponent:
		var w struct {
			ID, Kind, Core, PipelineID, ABIVersion, Channels uint32
		}
		r := bytes.NewReader(payload)
		if err := binary.Read(r, byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 new_component: %w", err)
		}
		cfg := make([]byte, r.Len())
		copy(cfg, payload[len(payload)-r.Len():])
		return NewComponentReq{
			ID: w.ID, Kind: component.Kind(w.Kind), Core: w.Core, PipelineID: w.PipelineID,
			ABIVersion: w.ABIVersion, Channels: w.Channels, Payload: cfg,
		}, nil
	case CmdFreeComponent, CmdFreeBuffer, CmdFreePipeline:
		return decodeID3(payload)
	case CmdNewBuffer:
		var w struct {
			ID, SizeB uint32
			Format    formatWire3
			CrossCore uint32
			Async     uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 new_buffer: %w", err)
		}
		return NewBufferReq{
			ID: w.ID, SizeB: w.SizeB, Format: decodeFormat3(w.Format),
			CrossCore: w.CrossCore != 0, Async: w.Async != 0,
		}, nil
	case CmdConnect:
		var w struct{ ProducerID, BufferID, ConsumerID uint32 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 connect: %w", err)
		}
		return ConnectReq{ProducerID: w.ProducerID, BufferID: w.BufferID, ConsumerID: w.ConsumerID}, nil
	case CmdNewPipeline:
		var w struct{ ID, Core, PeriodUs, Priority, Domain uint32 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 new_pipeline: %w", err)
		}
		return NewPipelineReq{ID: w.ID, Core: w.Core, PeriodUs: w.PeriodUs, Priority: w.Priority, Domain: pipeline.TimeDomain(w.Domain)}, nil
	case CmdPipelineComplete:
		var w struct{ PipelineID, SourceID, SinkID uint32 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 pipeline_complete: %w", err)
		}
		return PipelineCompleteReq{PipelineID: w.PipelineID, SourceID: w.SourceID, SinkID: w.SinkID}, nil
	default:
		return nil, fmt.Errorf("ipc: dialect3: unknown GLB_TPLG command %d", h.CommandID)
	}
}

func decodeStream3(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdPCMParams:
		var w struct {
			PipelineID      uint32
			Format          formatWire3
			FramesPerPeriod uint32
			Direction       uint32
		}
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 pcm_params: %w", err)
		}
		return PCMParamsReq{
			PipelineID: w.PipelineID, Format: decodeFormat3(w.Format),
			FramesPerPeriod: w.FramesPerPeriod, Direction: platform.Direction(w.Direction),
		}, nil
	case CmdTrigger:
		var w struct{ PipelineID, Cmd uint32 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 trigger: %w", err)
		}
		return TriggerReq{PipelineID: w.PipelineID, Cmd: component.TriggerCmd(w.Cmd)}, nil
	case CmdPCMFree:
		return decodeID3(payload)
	default:
		return nil, fmt.Errorf("ipc: dialect3: unknown GLB_STREAM command %d", h.CommandID)
	}
}

// decodeComp3 unpacks set_value/set_data: a component id and a numeric
// control id, real SOF's control addressing scheme, carrying one 32-bit
// value. set_data is decoded through the same fixed struct; the
// page-table path (Engine.FetchLargePayload) is not used by this decoder.
func decodeComp3(h Header, payload []byte) (any, error) {
	switch h.CommandID {
	case CmdSetValue, CmdSetData:
		var w struct{ ComponentID, ControlID, Value uint32 }
		if err := binary.Read(bytes.NewReader(payload), byteOrder, &w); err != nil {
			return nil, fmt.Errorf("ipc: dialect3 set_value: %w", err)
		}
		return SetAttributeReq{ComponentID: w.ComponentID, Key: fmt.Sprintf("ctl%d", w.ControlID), Value: w.Value}, nil
	default:
		return nil, fmt.Errorf("ipc: dialect3: unknown GLB_COMP command %d", h.CommandID)
	}
}

func decodeID3(payload []byte) (any, error) {
	var id uint32
	if err := binary.Read(bytes.NewReader(payload), byteOrder, &id); err != nil {
		return nil, fmt.Errorf("ipc: dialect3: resource id: %w", err)
	}
	return id, nil
}
