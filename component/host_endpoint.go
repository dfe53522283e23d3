package component

import (
	"errors"
	"time"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/platform"
)

// ErrHostNoData is returned by a HostEndpointConfig.Pull callback when the
// host has not deposited a full period by its deadline.
var ErrHostNoData = errors.New("component: host has not provided a full period")

// StreamPosition is the position-report record a host or DAI endpoint
// contributes to and the owning pipeline posts to the notification
// mailbox.
type StreamPosition struct {
	HostFrames uint64
	DAIFrames  uint64
	Timestamp  time.Time
	XrunCount  uint32
	Valid      bool
}

// HostEndpointConfig is the Config.Extra payload a host-endpoint component
// expects. Pull/Push abstract the DMA-backed host shared-memory ring.
type HostEndpointConfig struct {
	Direction  platform.Direction
	StopOnXrun bool
	// Pull fills buf from the host ring (playback) returning bytes
	// filled, or (0, ErrHostNoData) if the host hasn't deposited a period.
	Pull func(buf []byte) (int, error)
	// Push drains buf into the host ring (capture).
	Push func(buf []byte) error
	// Notify is called once per period with the updated stream position.
	Notify func(pos StreamPosition)
}

type hostEndpointState struct {
	cfg        HostEndpointConfig
	format     audioformat.Format
	frames     uint32
	hostFrames uint64
	xrunCount  uint32
}

// HostEndpointDriver implements the "Host endpoint" special component
// kind: the pipeline's boundary onto the host's own shared-memory ring.
type HostEndpointDriver struct{}

func (HostEndpointDriver) New(cfg Config) (Private, error) {
	hcfg, ok := cfg.Extra.(HostEndpointConfig)
	if !ok {
		return nil, errors.New("component: host endpoint requires HostEndpointConfig in Config.Extra")
	}
	if hcfg.Direction == platform.DirectionPlayback && hcfg.Pull == nil {
		return nil, errors.New("component: playback host endpoint requires Pull")
	}
	if hcfg.Direction == platform.DirectionCapture && hcfg.Push == nil {
		return nil, errors.New("component: capture host endpoint requires Push")
	}
	return &hostEndpointState{cfg: hcfg}, nil
}

func (HostEndpointDriver) Free(p Private) error {
	return nil
}

func (HostEndpointDriver) Params(p Private, params StreamParams) (audioformat.Format, error) {
	st := p.(*hostEndpointState)
	st.format = params.Format
	st.frames = params.FramesPerPeriod
	return params.Format, nil
}

func (HostEndpointDriver) Prepare(p Private) error {
	st := p.(*hostEndpointState)
	st.hostFrames = 0
	st.xrunCount = 0
	return nil
}

func (HostEndpointDriver) Trigger(p Private, cmd TriggerCmd) error {
	return nil
}

func (HostEndpointDriver) Reset(p Private) error {
	st := p.(*hostEndpointState)
	st.hostFrames = 0
	return nil
}

func (HostEndpointDriver) SetAttribute(p Private, key string, value any) error {
	return nil
}

func (HostEndpointDriver) Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error) {
	st := p.(*hostEndpointState)
	periodBytes := st.format.PeriodBytes(st.frames)

	switch st.cfg.Direction {
	case platform.DirectionPlayback:
		if len(sinks) == 0 {
			return CopyOK, nil
		}
		sink := sinks[0]
		res, err := sink.WriteReserve(periodBytes)
		if err != nil {
			// Downstream hasn't drained enough; treat as a stalled
			// pipeline branch this tick rather than an error.
			return CopyPathStop, nil
		}
		n, pullErr := st.cfg.Pull(res.First)
		if len(res.Second) > 0 && pullErr == nil {
			m, err2 := st.cfg.Pull(res.Second)
			n += m
			pullErr = err2
		}
		if pullErr != nil && !errors.Is(pullErr, ErrHostNoData) {
			return 0, pullErr
		}
		if uint32(n) < periodBytes {
			// Underrun: zero-fill the remainder and count it.
			zeroFillReservation(res, uint32(n))
			st.xrunCount++
			if st.cfg.StopOnXrun {
				sink.WriteCommit(periodBytes)
				st.notify(true)
				return CopyPathStop, errors.New("component: host xrun with stop-on-xrun configured")
			}
		}
		sink.WriteCommit(periodBytes)
		st.hostFrames += uint64(st.frames)
		st.notify(uint32(n) < periodBytes)
		return CopyOK, nil

	case platform.DirectionCapture:
		if len(sources) == 0 {
			return CopyOK, nil
		}
		source := sources[0]
		res, err := source.ReadReserve(periodBytes)
		if err != nil {
			st.xrunCount++
			st.notify(true)
			if st.cfg.StopOnXrun {
				return CopyPathStop, errors.New("component: host underrun with stop-on-xrun configured")
			}
			return CopyPathStop, nil
		}
		if err := st.cfg.Push(res.First); err != nil {
			return 0, err
		}
		if len(res.Second) > 0 {
			if err := st.cfg.Push(res.Second); err != nil {
				return 0, err
			}
		}
		source.ReadCommit(periodBytes)
		st.hostFrames += uint64(st.frames)
		st.notify(false)
		return CopyOK, nil
	}
	return CopyOK, nil
}

func (st *hostEndpointState) notify(xrun bool) {
	if st.cfg.Notify == nil {
		return
	}
	st.cfg.Notify(StreamPosition{
		HostFrames: st.hostFrames,
		Timestamp:  time.Now(),
		XrunCount:  st.xrunCount,
		Valid:      true,
	})
}

func zeroFillReservation(res buffer.Reservation, filled uint32) {
	// filled bytes in First (and, if First was shorter than filled,
	// spilling into Second) are valid; the rest must be silence.
	if filled >= uint32(len(res.First)) {
		rem := filled - uint32(len(res.First))
		for i := rem; i < uint32(len(res.Second)); i++ {
			res.Second[i] = 0
		}
		return
	}
	for i := filled; i < uint32(len(res.First)); i++ {
		res.First[i] = 0
	}
	for i := range res.Second {
		res.Second[i] = 0
	}
}
