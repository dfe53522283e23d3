package core

import (
	"fmt"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/idc"
	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/pipeline"
)

// dispatchIDC is the core's IDC receiver ISR: it recognises the header's type byte and
// routes to the right handler.
func (c *Core) dispatchIDC(msg idc.Message) (int32, error) {
	switch msg.Header.Type {
	case idc.MsgPipelineState:
		return idc.DispatchPipelineState(msg, c.triggerLocalPipeline)
	case idc.MsgSecondaryCoreCrashed:
		return 0, c.handleSecondaryCoreCrashed(msg)
	default:
		return -1, fmt.Errorf("core %d: no handler for idc message type %s", c.ID, msg.Header.Type)
	}
}

// triggerLocalPipeline applies a cross-core trigger to one of this
// core's own pipelines.
func (c *Core) triggerLocalPipeline(pipelineID uint32, cmd component.TriggerCmd) error {
	p, ok := c.Pipelines[pipelineID]
	if !ok {
		return fmt.Errorf("core %d: no such pipeline %d", c.ID, pipelineID)
	}
	if p.Core != c.ID {
		return fmt.Errorf("core %d: pipeline %d is owned by core %d", c.ID, pipelineID, p.Core)
	}
	return p.Trigger(cmd)
}

// handleSecondaryCoreCrashed is the primary core's fan-out for
// MSG_SECONDARY_CORE_CRASHED: every pipeline owned by the crashed core is marked
// ERROR_STOP and gets its own NotifySecondaryCoreCrashed notification to
// the host; a crashed core that owns no pipeline produces none.
func (c *Core) handleSecondaryCoreCrashed(msg idc.Message) error {
	report, ok := idc.DecodeCrashReport(msg.Payload)
	if !ok {
		return fmt.Errorf("core %d: malformed MSG_SECONDARY_CORE_CRASHED payload", c.ID)
	}
	if c.Log != nil {
		c.Log.Warnf("core %d: secondary core %d crashed (%s)", c.ID, report.Core, report.Reason)
	}
	if c.Engine == nil {
		return nil
	}
	for id, p := range c.Engine.Pipelines {
		if p.Core != report.Core {
			continue
		}
		p.RunState = pipeline.RunErrorStop
		c.Engine.PostNotification(ipc.Notification{
			Kind:       ipc.NotifySecondaryCoreCrashed,
			PipelineID: id,
		})
	}
	return nil
}
