package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/platform"
)

func fmt16() audioformat.Format {
	return audioformat.Format{
		Frame: audioformat.S16, RateHz: 48000, Channels: 2,
		ValidBits: 16, ContainerBits: 16,
	}
}

// TestTwoComponentPlaybackPipeline exercises a host endpoint feeding a DAI
// endpoint over one buffer, on a single pipeline.
func TestTwoComponentPlaybackPipeline(t *testing.T) {
	format := fmt16()
	frames := uint32(48)
	period := format.PeriodBytes(frames)

	var pulled int
	hostCfg := component.HostEndpointConfig{
		Direction: platform.DirectionPlayback,
		Pull: func(buf []byte) (int, error) {
			pulled++
			return len(buf), nil
		},
	}
	host, err := component.New(component.Config{ID: 10, Kind: component.KindHost, PipelineID: 1, ABIVersion: component.CurrentABIVersion, Extra: hostCfg}, &component.HostEndpointDriver{})
	require.NoError(t, err)

	var written int
	daiCfg := component.DAIEndpointConfig{
		Direction: platform.DirectionPlayback,
		Write: func(buf []byte) error {
			written += len(buf)
			return nil
		},
	}
	dai, err := component.New(component.Config{ID: 11, Kind: component.KindDAI, PipelineID: 1, ABIVersion: component.CurrentABIVersion, Extra: daiCfg}, &component.DAIEndpointDriver{})
	require.NoError(t, err)

	buf, err := buffer.New(20, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)
	buf.Producer = host.ID
	buf.Consumer = dai.ID
	host.Sinks = []*buffer.Ring{buf}
	dai.Sources = []*buffer.Ring{buf}

	components := map[uint32]*component.Instance{host.ID: host, dai.ID: dai}

	p := &Pipeline{ID: 1, TimeDomain: DMATickDriven, Direction: platform.DirectionPlayback}
	require.NoError(t, p.Complete(components, host.ID, dai.ID))
	assert.Equal(t, dai, p.SchedulingComponent)
	assert.Equal(t, []*component.Instance{host, dai}, p.Members)

	require.NoError(t, p.Params(component.StreamParams{Format: format, FramesPerPeriod: frames}))
	require.NoError(t, p.Prepare())
	require.NoError(t, p.Trigger(component.TriggerStart))
	assert.Equal(t, RunRunning, p.RunState)

	require.NoError(t, p.Tick(time.Now()))
	assert.Equal(t, 1, pulled)
	assert.EqualValues(t, period, written)

	require.NoError(t, p.Trigger(component.TriggerStop))
	assert.Equal(t, RunPaused, p.RunState)
}

func TestCompleteRejectsCycle(t *testing.T) {
	a, err := component.New(component.Config{ID: 1, Kind: component.KindEQFIR, PipelineID: 9, ABIVersion: component.CurrentABIVersion}, &component.PassthroughDriver{})
	require.NoError(t, err)
	b, err := component.New(component.Config{ID: 2, Kind: component.KindEQFIR, PipelineID: 9, ABIVersion: component.CurrentABIVersion}, &component.PassthroughDriver{})
	require.NoError(t, err)

	format := fmt16()
	bufAB, err := buffer.New(100, buffer.SameCore, 192, format, buffer.CacheOps{})
	require.NoError(t, err)
	bufAB.Producer, bufAB.Consumer = a.ID, b.ID
	bufBA, err := buffer.New(101, buffer.SameCore, 192, format, buffer.CacheOps{})
	require.NoError(t, err)
	bufBA.Producer, bufBA.Consumer = b.ID, a.ID

	a.Sinks = []*buffer.Ring{bufAB}
	a.Sources = []*buffer.Ring{bufBA}
	b.Sinks = []*buffer.Ring{bufBA}
	b.Sources = []*buffer.Ring{bufAB}

	components := map[uint32]*component.Instance{a.ID: a, b.ID: b}
	p := &Pipeline{ID: 9, TimeDomain: TimerDriven, Direction: platform.DirectionPlayback}
	err = p.Complete(components, a.ID, b.ID)
	assert.Error(t, err)
}
