package component

import (
	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
)

type passthroughState struct {
	period uint32
}

// PassthroughDriver is the uniform stand-in for every out-of-scope DSP
// algorithm kind. It moves one period of bytes, unmodified, from its one
// source pin to its one sink pin — the component a pipeline round-trip
// test exercises directly.
type PassthroughDriver struct{}

func (PassthroughDriver) New(cfg Config) (Private, error) {
	return &passthroughState{}, nil
}

func (PassthroughDriver) Free(p Private) error { return nil }

func (PassthroughDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*passthroughState)
	st.period = params.Format.PeriodBytes(params.FramesPerPeriod)
	return params.Format, nil
}

func (PassthroughDriver) Prepare(p Private) error { return nil }

func (PassthroughDriver) Trigger(p Private, cmd TriggerCmd) error { return nil }

func (PassthroughDriver) Reset(p Private) error { return nil }

func (PassthroughDriver) SetAttribute(p Private, key string, value any) error { return nil }

func (PassthroughDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*passthroughState)
	if len(sources) == 0 || len(sinks) == 0 {
		return CopyOK, nil
	}
	res, err := sources[0].ReadReserve(st.period)
	if err != nil {
		return CopyPathStop, nil
	}
	data := reservationBytes(res)
	out, err := sinks[0].WriteReserve(st.period)
	if err != nil {
		sources[0].ReadCommit(0)
		return CopyPathStop, nil
	}
	writeReservation(out, data)
	sources[0].ReadCommit(st.period)
	sinks[0].WriteCommit(st.period)
	return CopyOK, nil
}
