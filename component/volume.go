package component

import (
	"errors"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
)

// VolumeConfig is the Config.Extra payload a volume component expects.
type VolumeConfig struct {
	ChannelGains []float32 // per-channel linear gain, 1.0 = unity
	Muted        bool
}

type volumeState struct {
	cfg    VolumeConfig
	format audioformat.Format
	frames uint32
}

// VolumeDriver applies a per-channel linear gain (and mute) to interleaved
// 16-bit PCM. It is the one DSP-algorithm kind given a concrete body,
// rather than the passthrough stand-in, because it is exercised directly
// by the component-kind catalogue and by set_attribute-driven runtime
// controls.
type VolumeDriver struct{}

func (VolumeDriver) New(cfg Config) (Private, error) {
	vcfg, _ := cfg.Extra.(VolumeConfig)
	return &volumeState{cfg: vcfg}, nil
}

func (VolumeDriver) Free(p Private) error { return nil }

func (VolumeDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*volumeState)
	if params.Format.ContainerBits != 16 {
		return audioformat.Format{}, errors.New("component: volume only supports 16-bit containers")
	}
	st.format = params.Format
	st.frames = params.FramesPerPeriod
	if len(st.cfg.ChannelGains) == 0 {
		st.cfg.ChannelGains = make([]float32, params.Format.Channels)
		for i := range st.cfg.ChannelGains {
			st.cfg.ChannelGains[i] = 1.0
		}
	}
	return params.Format, nil
}

func (VolumeDriver) Prepare(p Private) error { return nil }

func (VolumeDriver) Trigger(p Private, cmd TriggerCmd) error { return nil }

func (VolumeDriver) Reset(p Private) error { return nil }

func (VolumeDriver) SetAttribute(p Private, key string, value any) error {
	st := p.(*volumeState)
	switch key {
	case "gain":
		gains, ok := value.([]float32)
		if !ok {
			return errors.New("component: volume gain attribute requires []float32")
		}
		st.cfg.ChannelGains = gains
	case "mute":
		muted, ok := value.(bool)
		if !ok {
			return errors.New("component: volume mute attribute requires bool")
		}
		st.cfg.Muted = muted
	}
	return nil
}

func (VolumeDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*volumeState)
	if len(sources) == 0 || len(sinks) == 0 {
		return CopyOK, nil
	}
	period := st.format.PeriodBytes(st.frames)
	res, err := sources[0].ReadReserve(period)
	if err != nil {
		return CopyPathStop, nil
	}
	samples := decodeS16LE(reservationBytes(res))
	channels := int(st.format.Channels)
	if channels == 0 {
		channels = 1
	}
	for i := range samples {
		if st.cfg.Muted {
			samples[i] = 0
			continue
		}
		ch := i % channels
		gain := float32(1.0)
		if ch < len(st.cfg.ChannelGains) {
			gain = st.cfg.ChannelGains[ch]
		}
		samples[i] = clipToInt16(int32(float32(samples[i]) * gain))
	}
	sources[0].ReadCommit(period)

	out, err := sinks[0].WriteReserve(period)
	if err != nil {
		return CopyPathStop, nil
	}
	buf := make([]byte, period)
	encodeS16LE(samples, buf)
	writeReservation(out, buf)
	sinks[0].WriteCommit(period)
	return CopyOK, nil
}
