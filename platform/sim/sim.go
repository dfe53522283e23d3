package sim

import (
	"fmt"

	"github.com/avnera-audio/dspfw/logging"
	"github.com/avnera-audio/dspfw/platform"
)

// Config selects the sim backend's sizing and device names; it stands in
// for the boot manifest a real image would parse.
type Config struct {
	ArenaBytes   int
	MailboxBase  uint32
	GPIOChip     string
	DiscoverDAIs bool
}

// DefaultConfig sizes the arena to fit every mailbox region with room to
// spare for DMA scratch space.
func DefaultConfig() Config {
	return Config{
		ArenaBytes:   4 << 20,
		MailboxBase:  0,
		GPIOChip:     "gpiochip0",
		DiscoverDAIs: true,
	}
}

// New assembles a full platform.Platform backed by host facilities: an
// mmap'd arena standing in for SRAM/cache-coherent DRAM, a PortAudio DAI
// per discovered sound card, a gpio-cdev line per core for power, and the
// console+debug-stream log facade. Callers own the returned Arena's
// Close.
func New(cfg Config) (*platform.Platform, *Arena, *logging.Facade, error) {
	arena, err := NewArena(cfg.ArenaBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sim: new arena: %w", err)
	}

	mailbox := NewMailbox(arena, cfg.MailboxBase, DefaultWindowSizes)
	dma := NewDMA(arena)
	timer := NewTimer()
	log := logging.New()

	var dais map[string]platform.DAI
	if cfg.DiscoverDAIs {
		dais, err = DiscoverDAIs()
		if err != nil {
			arena.Close()
			return nil, nil, nil, fmt.Errorf("sim: discover dais: %w", err)
		}
	} else {
		dais = make(map[string]platform.DAI)
	}

	power := NewGPIOPower(cfg.GPIOChip)

	p := &platform.Platform{
		Timer:   timer,
		DMA:     dma,
		Mailbox: mailbox,
		Cache:   arena,
		Log:     log,
		Power:   power,
		DAIs:    dais,
	}
	return p, arena, log, nil
}
