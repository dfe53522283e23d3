package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/platform"
)

func TestRingDrainOrderBeforeOverrun(t *testing.T) {
	r := NewRing(0, 4)
	r.Write(platform.LogInfo, platform.ClassPipeline, "a", nil)
	r.Write(platform.LogInfo, platform.ClassPipeline, "b", nil)
	r.Write(platform.LogInfo, platform.ClassPipeline, "c", nil)

	got := r.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Msg, got[1].Msg, got[2].Msg})
	assert.Equal(t, []uint64{0, 1, 2}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestRingOverwritesOldestOnOverrun(t *testing.T) {
	r := NewRing(0, 3)
	for i := 0; i < 5; i++ {
		r.Write(platform.LogDebug, platform.ClassIPC, string(rune('a'+i)), nil)
	}

	got := r.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{got[0].Msg, got[1].Msg, got[2].Msg})
	assert.Equal(t, uint64(2), got[0].Seq)
}

func TestRingCopiesParamsPerRecord(t *testing.T) {
	r := NewRing(1, 2)
	params := []uint32{1, 2, 3}
	r.Write(platform.LogWarn, platform.ClassBuffer, "xrun", params)
	params[0] = 99

	got := r.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, []uint32{1, 2, 3}, got[0].Params)
}

func TestRingLenTracksFillState(t *testing.T) {
	r := NewRing(2, 4)
	assert.Equal(t, 0, r.Len())
	r.Write(platform.LogInfo, platform.ClassScheduler, "x", nil)
	assert.Equal(t, 1, r.Len())
	for i := 0; i < 10; i++ {
		r.Write(platform.LogInfo, platform.ClassScheduler, "y", nil)
	}
	assert.Equal(t, 4, r.Len())
}

func TestStreamHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 12)
	require.NoError(t, EncodeHeader(buf, 65536, 4))

	h, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, Magic, h.Magic)
	assert.Equal(t, uint32(65536), h.TotalSize)
	assert.Equal(t, uint32(4), h.NumSections)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 12)
	copy(buf, "nope")
	_, err := DecodeHeader(buf)
	assert.Error(t, err)
}
