package sim

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/avnera-audio/dspfw/platform"
)

// PortAudioDAI is the sim backend for platform.DAI: it drives one
// PortAudio stream per DAI instance, standing in for a codec/SSP/I2S
// link.
type PortAudioDAI struct {
	name string

	mu        sync.Mutex
	stream    *portaudio.Stream
	direction platform.Direction
	frames    uint64
	periodISR func()
	buf       []int16
}

var _ platform.DAI = (*PortAudioDAI)(nil)

// NewPortAudioDAI names a DAI after a host device description; Configure opens the actual stream once rate/channels
// are known.
func NewPortAudioDAI(name string) *PortAudioDAI {
	return &PortAudioDAI{name: name}
}

func (d *PortAudioDAI) Name() string { return d.name }

// Configure opens a PortAudio stream for the given direction/format. Each
// call to the stream's callback represents one DMA period boundary; it
// advances the frame counter and invokes the registered period ISR,
// mirroring the real DAI's "raise interrupt on period boundaries"
// contract.
func (d *PortAudioDAI) Configure(direction platform.Direction, rateHz uint32, channels uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			return fmt.Errorf("sim: dai %s: close previous stream: %w", d.name, err)
		}
		d.stream = nil
	}

	d.direction = direction
	const framesPerCallback = 256
	d.buf = make([]int16, framesPerCallback*int(channels))

	callback := func(in, out []int16) {
		if direction == platform.DirectionPlayback {
			copy(out, d.buf)
		} else {
			copy(d.buf, in)
		}
		d.mu.Lock()
		d.frames += uint64(framesPerCallback)
		isr := d.periodISR
		d.mu.Unlock()
		if isr != nil {
			isr()
		}
	}

	var stream *portaudio.Stream
	var err error
	if direction == platform.DirectionPlayback {
		stream, err = portaudio.OpenDefaultStream(0, int(channels), float64(rateHz), framesPerCallback, callback)
	} else {
		stream, err = portaudio.OpenDefaultStream(int(channels), 0, float64(rateHz), framesPerCallback, callback)
	}
	if err != nil {
		return fmt.Errorf("sim: dai %s: open stream: %w", d.name, err)
	}
	d.stream = stream
	return nil
}

func (d *PortAudioDAI) Start() error {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("sim: dai %s: start before configure", d.name)
	}
	return stream.Start()
}

func (d *PortAudioDAI) Stop() error {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Stop()
}

func (d *PortAudioDAI) GetPosition() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames, nil
}

func (d *PortAudioDAI) RegisterPeriodISR(fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.periodISR = fn
	return nil
}
