// Package audioformat describes the PCM format carried on a component pin.
package audioformat

import "fmt"

// FrameFormat is the sample container layout.
type FrameFormat int

const (
	S16 FrameFormat = iota
	S24In32
	S32
)

func (f FrameFormat) String() string {
	switch f {
	case S16:
		return "s16"
	case S24In32:
		return "s24_in_s32"
	case S32:
		return "s32"
	default:
		return "unknown"
	}
}

// Interleaving describes how channels are laid out in memory.
type Interleaving int

const (
	Interleaved Interleaving = iota
	Planar
)

// Format is the audio format negotiated on a single component pin.
//
// Two connected pins must carry an identical Format; conversion between
// different formats is always performed by an explicit component, never
// implied by a buffer.
type Format struct {
	Frame        FrameFormat
	RateHz       uint32
	Channels     uint16
	ValidBits    uint8
	ContainerBits uint8
	Interleaving Interleaving
}

// BytesPerFrame is the number of bytes one frame (one sample per channel,
// all channels) occupies in this format.
func (f Format) BytesPerFrame() uint32 {
	return uint32(f.Channels) * uint32(f.ContainerBits/8)
}

// Equal reports whether two formats are pin-compatible.
func (f Format) Equal(other Format) bool {
	return f.Frame == other.Frame &&
		f.RateHz == other.RateHz &&
		f.Channels == other.Channels &&
		f.ValidBits == other.ValidBits &&
		f.ContainerBits == other.ContainerBits &&
		f.Interleaving == other.Interleaving
}

// Validate rejects formats that cannot legally exist (zero rate, zero
// channels, a container too narrow for the declared valid bits).
func (f Format) Validate() error {
	if f.RateHz == 0 {
		return fmt.Errorf("audioformat: zero sample rate")
	}
	if f.Channels == 0 {
		return fmt.Errorf("audioformat: zero channel count")
	}
	if f.ContainerBits == 0 || f.ContainerBits%8 != 0 {
		return fmt.Errorf("audioformat: container bits %d not a whole byte count", f.ContainerBits)
	}
	if f.ValidBits == 0 || f.ValidBits > f.ContainerBits {
		return fmt.Errorf("audioformat: valid bits %d exceeds container bits %d", f.ValidBits, f.ContainerBits)
	}
	return nil
}

// PeriodBytes returns the number of bytes one period of framesPerPeriod
// frames occupies in this format.
func (f Format) PeriodBytes(framesPerPeriod uint32) uint32 {
	return f.BytesPerFrame() * framesPerPeriod
}
