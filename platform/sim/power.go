package sim

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/avnera-audio/dspfw/platform"
)

// GPIOPower is the sim backend for platform.Power: each core's wake/sleep
// rail is simulated by one GPIO line on a gpio-cdev chip, the way a real
// board's PMIC enable lines would be wired.
type GPIOPower struct {
	chipName string

	mu    sync.Mutex
	lines map[uint32]*gpiocdev.Line
}

var _ platform.Power = (*GPIOPower)(nil)

// NewGPIOPower opens no lines up front; lines are requested lazily per
// core the first time it's woken or slept, using the core number as the
// line offset.
func NewGPIOPower(chipName string) *GPIOPower {
	return &GPIOPower{chipName: chipName, lines: make(map[uint32]*gpiocdev.Line)}
}

func (p *GPIOPower) line(core uint32) (*gpiocdev.Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.lines[core]; ok {
		return l, nil
	}
	l, err := gpiocdev.RequestLine(p.chipName, int(core), gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("sim: power: request line for core %d: %w", core, err)
	}
	p.lines[core] = l
	return l, nil
}

// WakeCore drives the core's power-enable line high.
func (p *GPIOPower) WakeCore(core uint32) error {
	l, err := p.line(core)
	if err != nil {
		return err
	}
	return l.SetValue(1)
}

// SleepCore drives the core's power-enable line low.
func (p *GPIOPower) SleepCore(core uint32) error {
	l, err := p.line(core)
	if err != nil {
		return err
	}
	return l.SetValue(0)
}

// Close releases every requested line.
func (p *GPIOPower) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, l := range p.lines {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
