package sim

import (
	"fmt"
	"sync"

	"github.com/avnera-audio/dspfw/platform"
)

// DMA is the sim backend for platform.DMA: channels are created on
// request, one per device/direction/access key, request/release spinlocked (spec
// §5 "DMA channel pool: request/release are spinlocked").
type DMA struct {
	mu       sync.Mutex
	channels map[string]*dmaChannel
	arena    *Arena
}

var _ platform.DMA = (*DMA)(nil)

// NewDMA constructs a DMA request pool backed by the given arena for
// local-memory copy destinations.
func NewDMA(arena *Arena) *DMA {
	return &DMA{channels: make(map[string]*dmaChannel), arena: arena}
}

func caKey(caps platform.DMACaps) string {
	return fmt.Sprintf("%s/%d/%s", caps.Device, caps.Direction, caps.Access)
}

// Request hands back a fresh channel for the given capability set,
// refusing a second concurrent request for the same device/direction.
func (d *DMA) Request(caps platform.DMACaps) (platform.DMAChannel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := caKey(caps)
	if ch, busy := d.channels[key]; busy && ch.acquired {
		return nil, fmt.Errorf("sim: dma: channel %s already acquired", key)
	}
	ch := &dmaChannel{key: key, caps: caps, arena: d.arena, acquired: true}
	d.channels[key] = ch
	return ch, nil
}

type dmaChannel struct {
	mu       sync.Mutex
	key      string
	caps     platform.DMACaps
	arena    *Arena
	acquired bool
	desc     []platform.DMADesc
	running  bool
	pending  uint32
}

var _ platform.DMAChannel = (*dmaChannel)(nil)

func (c *dmaChannel) Configure(desc []platform.DMADesc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desc = desc
	var total uint32
	for _, d := range desc {
		total += d.Length
	}
	c.pending = total
	return nil
}

func (c *dmaChannel) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *dmaChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *dmaChannel) Status() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, nil
}

func (c *dmaChannel) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquired = false
	return nil
}

// Copy performs the blocking page-table fetch: in sim, the
// "host physical address" is just an offset into the same arena, so the
// copy is a memmove followed by a flush of the destination window; no
// invalidate is issued.
func (c *dmaChannel) Copy(dst uint32, hostPhysAddr uint64, length uint32) error {
	src, err := c.arena.Slice(uint32(hostPhysAddr), length)
	if err != nil {
		return fmt.Errorf("sim: dma copy: source: %w", err)
	}
	dstWin, err := c.arena.Slice(dst, length)
	if err != nil {
		return fmt.Errorf("sim: dma copy: dest: %w", err)
	}
	copy(dstWin, src)
	c.arena.Flush(dst, length)
	return nil
}
