package idc

import (
	"fmt"

	"github.com/avnera-audio/dspfw/component"
)

// pplStatePayload is the wire shape of a MSG_PPL_STATE payload: the
// target pipeline id and the trigger command to apply.
type pplStatePayload struct {
	PipelineID uint32
	Cmd        component.TriggerCmd
}

func encodePPLState(p pplStatePayload) []byte {
	return []byte{
		byte(p.PipelineID), byte(p.PipelineID >> 8), byte(p.PipelineID >> 16), byte(p.PipelineID >> 24),
		byte(p.Cmd),
	}
}

func decodePPLState(payload []byte) (pplStatePayload, bool) {
	if len(payload) < 5 {
		return pplStatePayload{}, false
	}
	id := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
	return pplStatePayload{PipelineID: id, Cmd: component.TriggerCmd(payload[4])}, true
}

// PipelineTriggerHandler is what a core's dispatcher calls once it
// recognises MsgPipelineState, given the local means to apply a trigger
// to one of its own pipelines.
type PipelineTriggerHandler func(pipelineID uint32, cmd component.TriggerCmd) error

// DispatchPipelineState decodes a MSG_PPL_STATE message and invokes
// handler, translating the result into the (status, error) shape
// Dispatcher expects.
func DispatchPipelineState(msg Message, handler PipelineTriggerHandler) (int32, error) {
	payload, ok := decodePPLState(msg.Payload)
	if !ok {
		return -1, fmt.Errorf("idc: malformed MSG_PPL_STATE payload")
	}
	if err := handler(payload.PipelineID, payload.Cmd); err != nil {
		return -1, err
	}
	return 0, nil
}

// SendPipelineTrigger implements pipeline.CrossCoreTrigger: it blocks,
// bounded by Timeout, for the target core's pipeline-trigger reply.
func SendPipelineTrigger(h *Hub, localCore uint32) func(core, pipelineID uint32, cmd component.TriggerCmd) error {
	return func(core, pipelineID uint32, cmd component.TriggerCmd) error {
		payload := encodePPLState(pplStatePayload{PipelineID: pipelineID, Cmd: cmd})
		status, err := h.Send(localCore, core, Message{
			Header:  Header{Type: MsgPipelineState},
			Size:    uint32(len(payload)),
			Payload: payload,
		}, Blocking)
		if err != nil {
			return fmt.Errorf("idc: pipeline %d trigger to core %d: %w", pipelineID, core, err)
		}
		if status != 0 {
			return fmt.Errorf("idc: pipeline %d trigger to core %d: remote status %d", pipelineID, core, status)
		}
		return nil
	}
}
