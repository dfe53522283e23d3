package component

import (
	"errors"
	"time"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/platform"
)

// DAIEndpointConfig is the Config.Extra payload a DAI-endpoint component
// expects: the same shape as a host endpoint, with the codec/DAI driver
// in place of the host ring. A DAI endpoint usually drives the
// pipeline's cadence, since the DMA interrupt is the clock.
type DAIEndpointConfig struct {
	Direction platform.Direction
	DAI       platform.DAI
	// Write pushes buf to the codec (playback).
	Write func(buf []byte) error
	// Read fills buf from the codec (capture).
	Read func(buf []byte) (int, error)
	// Notify is called once per period with the updated stream position.
	Notify func(pos StreamPosition)
}

type daiEndpointState struct {
	cfg        DAIEndpointConfig
	format     audioformat.Format
	frames     uint32
	daiFrames  uint64
	xrunCount  uint32
}

// DAIEndpointDriver implements the "DAI endpoint" special component kind.
type DAIEndpointDriver struct{}

func (DAIEndpointDriver) New(cfg Config) (Private, error) {
	dcfg, ok := cfg.Extra.(DAIEndpointConfig)
	if !ok {
		return nil, errors.New("component: dai endpoint requires DAIEndpointConfig in Config.Extra")
	}
	if dcfg.Direction == platform.DirectionPlayback && dcfg.Write == nil {
		return nil, errors.New("component: playback dai endpoint requires Write")
	}
	if dcfg.Direction == platform.DirectionCapture && dcfg.Read == nil {
		return nil, errors.New("component: capture dai endpoint requires Read")
	}
	return &daiEndpointState{cfg: dcfg}, nil
}

func (DAIEndpointDriver) Free(p Private) error { return nil }

func (DAIEndpointDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*daiEndpointState)
	st.format = params.Format
	st.frames = params.FramesPerPeriod
	if st.cfg.DAI != nil {
		if err := st.cfg.DAI.Configure(st.cfg.Direction, params.Format.RateHz, params.Format.Channels); err != nil {
			return audioformat.Format{}, err
		}
	}
	return params.Format, nil
}

func (DAIEndpointDriver) Prepare(p Private) error {
	st := p.(*daiEndpointState)
	st.daiFrames = 0
	st.xrunCount = 0
	return nil
}

func (DAIEndpointDriver) Trigger(p Private, cmd TriggerCmd) error {
	st := p.(*daiEndpointState)
	if st.cfg.DAI == nil {
		return nil
	}
	switch cmd {
	case TriggerStart, TriggerRelease:
		return st.cfg.DAI.Start()
	case TriggerStop, TriggerPause:
		return st.cfg.DAI.Stop()
	}
	return nil
}

func (DAIEndpointDriver) Reset(p Private) error {
	st := p.(*daiEndpointState)
	st.daiFrames = 0
	return nil
}

func (DAIEndpointDriver) SetAttribute(p Private, key string, value any) error { return nil }

func (DAIEndpointDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*daiEndpointState)
	periodBytes := st.format.PeriodBytes(st.frames)

	switch st.cfg.Direction {
	case platform.DirectionPlayback:
		if len(sources) == 0 {
			return CopyOK, nil
		}
		source := sources[0]
		res, err := source.ReadReserve(periodBytes)
		if err != nil {
			// Upstream underrun: push silence to the codec so the hardware
			// clock never stalls.
			silence := make([]byte, periodBytes)
			if werr := st.cfg.Write(silence); werr != nil {
				return 0, werr
			}
			st.xrunCount++
			st.advance(true)
			return CopyPathStop, nil
		}
		if err := st.cfg.Write(res.First); err != nil {
			return 0, err
		}
		if len(res.Second) > 0 {
			if err := st.cfg.Write(res.Second); err != nil {
				return 0, err
			}
		}
		source.ReadCommit(periodBytes)
		st.advance(false)
		return CopyOK, nil

	case platform.DirectionCapture:
		if len(sinks) == 0 {
			return CopyOK, nil
		}
		sink := sinks[0]
		res, err := sink.WriteReserve(periodBytes)
		if err != nil {
			st.xrunCount++
			st.advance(true)
			return CopyPathStop, nil
		}
		n, rerr := st.cfg.Read(res.First)
		if len(res.Second) > 0 && rerr == nil {
			m, err2 := st.cfg.Read(res.Second)
			n += m
			rerr = err2
		}
		if rerr != nil {
			return 0, rerr
		}
		if uint32(n) < periodBytes {
			zeroFillReservation(res, uint32(n))
			st.xrunCount++
		}
		sink.WriteCommit(periodBytes)
		st.advance(uint32(n) < periodBytes)
		return CopyOK, nil
	}
	return CopyOK, nil
}

func (st *daiEndpointState) advance(xrun bool) {
	st.daiFrames += uint64(st.frames)
	if st.cfg.Notify == nil {
		return
	}
	st.cfg.Notify(StreamPosition{
		DAIFrames: st.daiFrames,
		Timestamp: time.Now(),
		XrunCount: st.xrunCount,
		Valid:     true,
	})
}
