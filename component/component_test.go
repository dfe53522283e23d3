package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/platform"
)

func fmt16() audioformat.Format {
	return audioformat.Format{
		Frame:         audioformat.S16,
		RateHz:        48000,
		Channels:      2,
		ValidBits:     16,
		ContainerBits: 16,
	}
}

func newPassthrough(t *testing.T) *Instance {
	t.Helper()
	inst, err := New(Config{ID: 1, Kind: KindEQFIR, ABIVersion: CurrentABIVersion}, &PassthroughDriver{})
	require.NoError(t, err)
	return inst
}

func TestStateMachineHappyPath(t *testing.T) {
	inst := newPassthrough(t)
	assert.Equal(t, StateReady, inst.State())

	require.NoError(t, inst.Params(StreamParams{Format: fmt16(), FramesPerPeriod: 48}))

	status, err := inst.Prepare()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, StatePaused, inst.State())

	// idempotent re-prepare
	status, err = inst.Prepare()
	require.NoError(t, err)
	assert.Equal(t, StatusAlready, status)
	assert.Equal(t, StatePaused, inst.State())

	require.NoError(t, inst.Trigger(TriggerStart))
	assert.Equal(t, StateActive, inst.State())

	require.NoError(t, inst.Trigger(TriggerStop))
	assert.Equal(t, StatePaused, inst.State())

	require.NoError(t, inst.Trigger(TriggerReset))
	assert.Equal(t, StateReady, inst.State())

	require.NoError(t, inst.Free())
}

func TestIllegalTriggerLeavesStateUnchanged(t *testing.T) {
	inst := newPassthrough(t)
	// READY cannot go straight to ACTIVE.
	err := inst.Trigger(TriggerStart)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StateReady, inst.State())
}

func TestCopyIllegalOutsideActive(t *testing.T) {
	inst := newPassthrough(t)
	_, err := inst.Copy()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFreeRequiresReady(t *testing.T) {
	inst := newPassthrough(t)
	require.NoError(t, inst.Params(StreamParams{Format: fmt16(), FramesPerPeriod: 48}))
	_, err := inst.Prepare()
	require.NoError(t, err)

	err = inst.Free()
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, inst.Trigger(TriggerReset))
	assert.NoError(t, inst.Free())
}

// TestLosslessPassthroughRoundTrip checks that for every lossless
// component (pass-through, mixer with one input at unity), on a sequence
// of N frames input with no xrun, the output is exactly N frames equal
// to the input.
func TestLosslessPassthroughRoundTrip(t *testing.T) {
	format := fmt16()
	frames := uint32(48)
	period := format.PeriodBytes(frames)

	src, err := buffer.New(1, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)
	sink, err := buffer.New(2, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)

	inst := newPassthrough(t)
	inst.Sources = []*buffer.Ring{src}
	inst.Sinks = []*buffer.Ring{sink}
	require.NoError(t, inst.Params(StreamParams{Format: format, FramesPerPeriod: frames}))
	_, err = inst.Prepare()
	require.NoError(t, err)
	require.NoError(t, inst.Trigger(TriggerStart))

	res, err := src.WriteReserve(period)
	require.NoError(t, err)
	for i := range res.First {
		res.First[i] = byte(i)
	}
	src.WriteCommit(period)

	result, err := inst.Copy()
	require.NoError(t, err)
	assert.Equal(t, CopyOK, result)

	assert.EqualValues(t, period, sink.AvailableData())
	out, err := sink.ReadReserve(period)
	require.NoError(t, err)
	for i, b := range out.First {
		assert.Equal(t, byte(i), b)
	}
}

// TestMixerWithOneUnityInputIsLossless checks the same §8 invariant for a
// mixer with a single unity-gain input.
func TestMixerWithOneUnityInputIsLossless(t *testing.T) {
	format := fmt16()
	frames := uint32(48)
	period := format.PeriodBytes(frames)

	src, err := buffer.New(1, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)
	sink, err := buffer.New(2, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)

	inst, err := New(Config{ID: 3, Kind: KindMixer, ABIVersion: CurrentABIVersion}, &MixerDriver{})
	require.NoError(t, err)
	inst.Sources = []*buffer.Ring{src}
	inst.Sinks = []*buffer.Ring{sink}
	require.NoError(t, inst.Params(StreamParams{Format: format, FramesPerPeriod: frames}))
	_, err = inst.Prepare()
	require.NoError(t, err)
	require.NoError(t, inst.Trigger(TriggerStart))

	samples := make([]int16, period/2)
	for i := range samples {
		samples[i] = int16(i * 7)
	}
	res, err := src.WriteReserve(period)
	require.NoError(t, err)
	buf := make([]byte, period)
	encodeS16LE(samples, buf)
	writeReservation(res, buf)
	src.WriteCommit(period)

	result, err := inst.Copy()
	require.NoError(t, err)
	assert.Equal(t, CopyOK, result)

	out, err := sink.ReadReserve(period)
	require.NoError(t, err)
	got := decodeS16LE(reservationBytes(out))
	assert.Equal(t, samples, got)
}

func TestHostEndpointUnderrunInsertsSilenceAndCountsXrun(t *testing.T) {
	format := fmt16()
	frames := uint32(48)
	period := format.PeriodBytes(frames)

	sink, err := buffer.New(1, buffer.SameCore, period, format, buffer.CacheOps{})
	require.NoError(t, err)

	var notified []StreamPosition
	cfg := HostEndpointConfig{
		Direction: platform.DirectionPlayback,
		Pull: func(buf []byte) (int, error) {
			return 0, ErrHostNoData
		},
		Notify: func(pos StreamPosition) { notified = append(notified, pos) },
	}
	inst, err := New(Config{ID: 10, Kind: KindHost, ABIVersion: CurrentABIVersion, Extra: cfg}, &HostEndpointDriver{})
	require.NoError(t, err)
	inst.Sinks = []*buffer.Ring{sink}
	require.NoError(t, inst.Params(StreamParams{Format: format, FramesPerPeriod: frames}))
	_, err = inst.Prepare()
	require.NoError(t, err)
	require.NoError(t, inst.Trigger(TriggerStart))

	result, err := inst.Copy()
	require.NoError(t, err)
	assert.Equal(t, CopyOK, result)
	assert.EqualValues(t, period, sink.AvailableData())
	require.Len(t, notified, 1)
	assert.EqualValues(t, 1, notified[0].XrunCount)

	data, err := sink.ReadReserve(period)
	require.NoError(t, err)
	for _, b := range reservationBytes(data) {
		assert.Equal(t, byte(0), b)
	}
}
