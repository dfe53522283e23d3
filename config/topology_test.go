package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/ipc"
)

func TestLoadParsesFixture(t *testing.T) {
	top, err := Load("testdata/playback.yaml")
	require.NoError(t, err)
	require.Len(t, top.Components, 2)
	require.Len(t, top.Buffers, 1)
	require.Len(t, top.Connections, 1)
	require.Len(t, top.Pipelines, 1)
	require.Len(t, top.PCMParams, 1)

	assert.Equal(t, "host", top.Components[0].Kind)
	kind, err := top.Components[0].ResolveKind()
	require.NoError(t, err)
	assert.Equal(t, component.KindHost, kind)
}

func TestApplyReplaysFixtureAgainstEngine(t *testing.T) {
	top, err := Load("testdata/playback.yaml")
	require.NoError(t, err)

	e := ipc.NewEngine(component.NewRegistry(), 0)
	require.NoError(t, Apply(e, top))

	require.Contains(t, e.Components, uint32(10))
	require.Contains(t, e.Components, uint32(11))
	require.Contains(t, e.Buffers, uint32(100))
	require.Contains(t, e.Pipelines, uint32(1))

	assert.Len(t, e.Components[10].Sinks, 1)
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	top := &Topology{Components: []Component{{ID: 1, Kind: "not-a-kind"}}}
	e := ipc.NewEngine(component.NewRegistry(), 0)
	assert.Error(t, Apply(e, top))
}

func TestApplyStopsOnFirstError(t *testing.T) {
	top := &Topology{
		Connections: []Connection{{Producer: 1, Buffer: 2, Consumer: 3}},
	}
	e := ipc.NewEngine(component.NewRegistry(), 0)
	err := Apply(e, top)
	assert.Error(t, err)
}

// TestApplyAsyncBufferSelectsDPQueue checks that a buffer fixture marked
// async in YAML reaches the engine as a DP-queue ring, the flavour a host
// endpoint's buffer needs since the host drains it off its own schedule
// rather than the DSP period boundary.
func TestApplyAsyncBufferSelectsDPQueue(t *testing.T) {
	top := &Topology{
		Buffers: []Buffer{{
			ID: 200, SizeB: 4096, Async: true,
			Format: Format{Frame: "s16", RateHz: 48000, Channels: 2, ValidBits: 16, ContainerBits: 16},
		}},
	}
	e := ipc.NewEngine(component.NewRegistry(), 0)
	require.NoError(t, Apply(e, top))

	require.Contains(t, e.Buffers, uint32(200))
	assert.Equal(t, buffer.DPQueue, e.Buffers[200].Kind)
}
