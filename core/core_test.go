package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/idc"
	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform/sim"
)

func testSimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.ArenaBytes = 1 << 20
	cfg.DiscoverDAIs = false
	return cfg
}

func bootPrimary(t *testing.T) *Core {
	t.Helper()
	c, err := Boot(BootConfig{ID: 0, Primary: true, Hub: idc.NewHub(), Sim: testSimConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBootPrimaryCoreWiresEngine(t *testing.T) {
	c := bootPrimary(t)
	require.NotNil(t, c.Engine)
	assert.NotNil(t, c.Engine.CrossCoreTrigger)
	assert.NotNil(t, c.Pipelines)
}

func TestBootSecondaryCoreSharesPipelineMap(t *testing.T) {
	hub := idc.NewHub()
	primary, err := Boot(BootConfig{ID: 0, Primary: true, Hub: hub, Sim: testSimConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = primary.Close() })

	secondaryCfg := testSimConfig()
	secondary, err := Boot(BootConfig{ID: 1, Primary: false, Hub: hub, Sim: secondaryCfg, Pipelines: primary.Pipelines})
	require.NoError(t, err)
	t.Cleanup(func() { _ = secondary.Close() })

	primary.Pipelines[7] = &pipeline.Pipeline{ID: 7, Core: 1}
	p, ok := secondary.Pipelines[7]
	require.True(t, ok)
	assert.Equal(t, uint32(1), p.Core)
}

func TestHandleSecondaryCoreCrashedMarksOwnedPipelinesErrorStop(t *testing.T) {
	c := bootPrimary(t)
	c.Engine.Pipelines[1] = &pipeline.Pipeline{ID: 1, Core: 2}
	c.Engine.Pipelines[2] = &pipeline.Pipeline{ID: 2, Core: 3}

	msg := idc.Message{
		Header: idc.Header{Type: idc.MsgSecondaryCoreCrashed},
		Payload: func() []byte {
			return encodeCrashReportForTest(2, idc.CrashException)
		}(),
	}
	status, err := c.dispatchIDC(msg)
	require.NoError(t, err)
	assert.Equal(t, int32(0), status)

	assert.Equal(t, pipeline.RunErrorStop, c.Engine.Pipelines[1].RunState)
	assert.Equal(t, pipeline.RunCreated, c.Engine.Pipelines[2].RunState)

	notes := c.Engine.DrainNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, ipc.NotifySecondaryCoreCrashed, notes[0].Kind)
	assert.Equal(t, uint32(1), notes[0].PipelineID)
}

func TestTriggerLocalPipelineRejectsWrongOwnerCore(t *testing.T) {
	c := bootPrimary(t)
	c.Pipelines[5] = &pipeline.Pipeline{ID: 5, Core: 9}
	err := c.triggerLocalPipeline(5, component.TriggerStart)
	assert.Error(t, err)
}

func TestTriggerLocalPipelineRejectsUnknownID(t *testing.T) {
	c := bootPrimary(t)
	err := c.triggerLocalPipeline(999, component.TriggerStart)
	assert.Error(t, err)
}

// encodeCrashReportForTest mirrors idc.encodeCrashReport (unexported), so
// tests build the wire payload the same way ReportCrash would.
func encodeCrashReportForTest(core uint32, reason idc.CrashReason) []byte {
	return []byte{byte(core), byte(core >> 8), byte(core >> 16), byte(core >> 24), byte(reason)}
}
