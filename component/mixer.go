package component

import (
	"errors"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
)

// MixerConfig is the Config.Extra payload a mixer component expects.
// Gains parallels Sources by index; a missing entry defaults to unity, so
// "a mixer with one input at unity" needs no explicit config.
type MixerConfig struct {
	Gains []float32
}

type mixerState struct {
	cfg    MixerConfig
	format audioformat.Format
	frames uint32
}

// MixerDriver sums N source pins into one sink pin.
type MixerDriver struct{}

func (MixerDriver) New(cfg Config) (Private, error) {
	mcfg, _ := cfg.Extra.(MixerConfig)
	return &mixerState{cfg: mcfg}, nil
}

func (MixerDriver) Free(p Private) error { return nil }

func (MixerDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*mixerState)
	if params.Format.ContainerBits != 16 {
		return audioformat.Format{}, errors.New("component: mixer only supports 16-bit containers")
	}
	st.format = params.Format
	st.frames = params.FramesPerPeriod
	return params.Format, nil
}

func (MixerDriver) Prepare(p Private) error { return nil }

func (MixerDriver) Trigger(p Private, cmd TriggerCmd) error { return nil }

func (MixerDriver) Reset(p Private) error { return nil }

func (MixerDriver) SetAttribute(p Private, key string, value any) error {
	st := p.(*mixerState)
	if key == "gain" {
		gains, ok := value.([]float32)
		if !ok {
			return errors.New("component: mixer gain attribute requires []float32")
		}
		st.cfg.Gains = gains
	}
	return nil
}

func (MixerDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*mixerState)
	if len(sinks) == 0 {
		return CopyOK, nil
	}
	periodBytes := st.format.PeriodBytes(st.frames)
	samplesPerPeriod := periodBytes / 2

	acc := make([]int32, samplesPerPeriod)
	anyInput := false
	for i, src := range sources {
		res, err := src.ReadReserve(periodBytes)
		if err != nil {
			continue // a starved branch contributes silence rather than stalling the whole mix
		}
		anyInput = true
		gain := float32(1.0)
		if i < len(st.cfg.Gains) {
			gain = st.cfg.Gains[i]
		}
		samples := decodeS16LE(reservationBytes(res))
		for j, s := range samples {
			acc[j] += int32(float32(s) * gain)
		}
		src.ReadCommit(periodBytes)
	}
	if !anyInput {
		return CopyPathStop, nil
	}

	out := make([]int16, samplesPerPeriod)
	for i, v := range acc {
		out[i] = clipToInt16(v)
	}

	res, err := sinks[0].WriteReserve(periodBytes)
	if err != nil {
		return CopyPathStop, nil
	}
	buf := make([]byte, periodBytes)
	encodeS16LE(out, buf)
	writeReservation(res, buf)
	sinks[0].WriteCommit(periodBytes)
	return CopyOK, nil
}
