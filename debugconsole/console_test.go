package debugconsole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/ipc"
)

func newTestEngine(t *testing.T) *ipc.Engine {
	t.Helper()
	e := ipc.NewEngine(component.NewRegistry(), 0)
	reply := e.Dispatch(ipc.Message{
		Header: ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewComponent},
		Decoded: ipc.NewComponentReq{
			ID: 1, Kind: component.KindHost, Core: 0, PipelineID: 1, ABIVersion: 1, Channels: 2,
		},
	})
	require.Equal(t, ipc.Success, reply.Error)

	reply = e.Dispatch(ipc.Message{
		Header: ipc.Header{Class: ipc.ClassTPLG, CommandID: ipc.CmdNewPipeline},
		Decoded: ipc.NewPipelineReq{ID: 1, Core: 0, PeriodUs: 1000, Priority: 1},
	})
	require.Equal(t, ipc.Success, reply.Error)
	return e
}

func TestEvalHelp(t *testing.T) {
	c := &Console{engine: newTestEngine(t)}
	assert.Contains(t, c.eval("help"), "dump pipeline")
}

func TestEvalListComponentsAndPipelines(t *testing.T) {
	c := &Console{engine: newTestEngine(t)}
	assert.Equal(t, "1", c.eval("list components"))
	assert.Equal(t, "1", c.eval("list pipelines"))
}

func TestEvalDumpComponent(t *testing.T) {
	c := &Console{engine: newTestEngine(t)}
	out := c.eval("dump component 1")
	assert.Contains(t, out, "component 1")
	assert.Contains(t, out, "kind=host")
}

func TestEvalDumpPipeline(t *testing.T) {
	c := &Console{engine: newTestEngine(t)}
	out := c.eval("dump pipeline 1")
	assert.Contains(t, out, "pipeline 1")
}

func TestEvalUnknownCommandAndMissingIDs(t *testing.T) {
	c := &Console{engine: newTestEngine(t)}
	assert.Contains(t, c.eval("frobnicate"), "unknown command")
	assert.Contains(t, c.eval("dump component 999"), "no such component")
	assert.Contains(t, c.eval("dump"), "usage")
	assert.Equal(t, "", c.eval(""))
}
