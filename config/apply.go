package config

import (
	"fmt"

	"github.com/avnera-audio/dspfw/ipc"
)

// Apply replays a Topology against an engine as the exact command
// sequence a host's topology loader would issue: every component, then
// every buffer, then every connection, then every pipeline (new +
// complete), then every pcm_params.
// It stops at the first command whose reply carries a non-zero error.
func Apply(e *ipc.Engine, t *Topology) error {
	for _, c := range t.Components {
		kind, err := c.ResolveKind()
		if err != nil {
			return err
		}
		msg := ipc.Message{
			Header:  ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewComponent},
			Decoded: ipc.NewComponentReq{
				ID: c.ID, Kind: kind, Core: c.Core, PipelineID: c.PipelineID,
				ABIVersion: c.ABIVersion, Channels: c.Channels,
			},
		}
		if err := dispatchOrErr(e, msg, "new_component", c.ID); err != nil {
			return err
		}
	}

	for _, b := range t.Buffers {
		format, err := b.Format.Resolve()
		if err != nil {
			return err
		}
		msg := ipc.Message{
			Header:  ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewBuffer},
			Decoded: ipc.NewBufferReq{ID: b.ID, SizeB: b.SizeB, Format: format, CrossCore: b.CrossCore, Async: b.Async},
		}
		if err := dispatchOrErr(e, msg, "new_buffer", b.ID); err != nil {
			return err
		}
	}

	for _, c := range t.Connections {
		msg := ipc.Message{
			Header:  ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdConnect},
			Decoded: ipc.ConnectReq{ProducerID: c.Producer, BufferID: c.Buffer, ConsumerID: c.Consumer},
		}
		if err := dispatchOrErr(e, msg, "connect", c.Buffer); err != nil {
			return err
		}
	}

	for _, p := range t.Pipelines {
		domain, err := p.ResolveDomain()
		if err != nil {
			return err
		}
		newMsg := ipc.Message{
			Header: ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewPipeline},
			Decoded: ipc.NewPipelineReq{
				ID: p.ID, Core: p.Core, PeriodUs: p.PeriodUs, Priority: p.Priority, Domain: domain,
			},
		}
		if err := dispatchOrErr(e, newMsg, "new_pipeline", p.ID); err != nil {
			return err
		}
		completeMsg := ipc.Message{
			Header: ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdPipelineComplete},
			Decoded: ipc.PipelineCompleteReq{
				PipelineID: p.ID, SourceID: p.SourceID, SinkID: p.SinkID,
			},
		}
		if err := dispatchOrErr(e, completeMsg, "pipeline_complete", p.ID); err != nil {
			return err
		}
	}

	for _, pp := range t.PCMParams {
		format, err := pp.Format.Resolve()
		if err != nil {
			return err
		}
		direction, err := pp.ResolveDirection()
		if err != nil {
			return err
		}
		msg := ipc.Message{
			Header: ipc.Header{Class: ipc.ClassStream, CommandID: ipc.CmdPCMParams},
			Decoded: ipc.PCMParamsReq{
				PipelineID: pp.PipelineID, Format: format,
				FramesPerPeriod: pp.FramesPerPeriod, Direction: direction,
			},
		}
		if err := dispatchOrErr(e, msg, "pcm_params", pp.PipelineID); err != nil {
			return err
		}
	}

	return nil
}

func dispatchOrErr(e *ipc.Engine, msg ipc.Message, op string, id uint32) error {
	reply := e.Dispatch(msg)
	if reply.Error != ipc.Success {
		return fmt.Errorf("config: apply %s %d: %s", op, id, reply.Error)
	}
	return nil
}
