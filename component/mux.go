package component

import (
	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
)

type muxState struct {
	frames uint32
	period uint32
	active int
}

// MuxDriver selects one of N source pins and copies it, unmodified, to
// the single sink pin.
type MuxDriver struct{}

func (MuxDriver) New(cfg Config) (Private, error) {
	return &muxState{active: 0}, nil
}

func (MuxDriver) Free(p Private) error { return nil }

func (MuxDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*muxState)
	st.frames = params.FramesPerPeriod
	st.period = params.Format.PeriodBytes(params.FramesPerPeriod)
	return params.Format, nil
}

func (MuxDriver) Prepare(p Private) error { return nil }

func (MuxDriver) Trigger(p Private, cmd TriggerCmd) error { return nil }

func (MuxDriver) Reset(p Private) error { return nil }

func (MuxDriver) SetAttribute(p Private, key string, value any) error {
	st := p.(*muxState)
	if key == "active_source" {
		if idx, ok := value.(int); ok {
			st.active = idx
		}
	}
	return nil
}

func (MuxDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*muxState)
	if len(sinks) == 0 || st.active >= len(sources) {
		return CopyPathStop, nil
	}
	src := sources[st.active]
	res, err := src.ReadReserve(st.period)
	if err != nil {
		return CopyPathStop, nil
	}
	data := reservationBytes(res)
	out, err := sinks[0].WriteReserve(st.period)
	if err != nil {
		src.ReadCommit(0)
		return CopyPathStop, nil
	}
	writeReservation(out, data)
	src.ReadCommit(st.period)
	sinks[0].WriteCommit(st.period)
	return CopyOK, nil
}
