package sim

import (
	"fmt"

	"github.com/avnera-audio/dspfw/platform"
)

// regionLayout carves fixed offset/size windows for each mailbox region
// out of one arena.
type regionLayout struct {
	offset uint32
	size   uint32
}

// DefaultWindowSizes gives each region a generous fixed size; real
// firmware reads these from the signed image's manifest, which
// is out of scope here.
var DefaultWindowSizes = map[platform.MailboxRegion]uint32{
	platform.MailboxDSPBox:    8 * 1024,
	platform.MailboxHostBox:   8 * 1024,
	platform.MailboxDebug:     4 * 1024,
	platform.MailboxStream:    1024,
	platform.MailboxTrace:     64 * 1024,
	platform.MailboxException: 4 * 1024,
}

// Mailbox is the sim backend for platform.Mailbox: every region is a
// window into one Arena.
type Mailbox struct {
	arena   *Arena
	regions map[platform.MailboxRegion]regionLayout
}

var _ platform.Mailbox = (*Mailbox)(nil)

// NewMailbox lays the regions out back to back starting at base and
// returns the mailbox; TotalSize reports how many bytes that layout spans.
func NewMailbox(arena *Arena, base uint32, sizes map[platform.MailboxRegion]uint32) *Mailbox {
	regions := make(map[platform.MailboxRegion]regionLayout, len(sizes))
	offset := base
	// Deterministic order so the same sizes map always lays out the same
	// way across runs.
	order := []platform.MailboxRegion{
		platform.MailboxDSPBox, platform.MailboxHostBox, platform.MailboxDebug,
		platform.MailboxStream, platform.MailboxTrace, platform.MailboxException,
	}
	for _, region := range order {
		size, ok := sizes[region]
		if !ok {
			continue
		}
		regions[region] = regionLayout{offset: offset, size: size}
		offset += size
	}
	return &Mailbox{arena: arena, regions: regions}
}

// TotalSize returns the arena span the mailbox's regions consume.
func TotalSize(sizes map[platform.MailboxRegion]uint32) uint32 {
	var total uint32
	for _, s := range sizes {
		total += s
	}
	return total
}

func (m *Mailbox) window(region platform.MailboxRegion, offset, length uint32) ([]byte, error) {
	layout, ok := m.regions[region]
	if !ok {
		return nil, fmt.Errorf("sim: mailbox region %d not configured", region)
	}
	if offset+length > layout.size {
		return nil, fmt.Errorf("sim: mailbox region %d: [%d,%d) exceeds window size %d", region, offset, offset+length, layout.size)
	}
	return m.arena.Slice(layout.offset+offset, length)
}

// Read copies buf's length worth of bytes from region at offset.
func (m *Mailbox) Read(region platform.MailboxRegion, offset uint32, buf []byte) error {
	win, err := m.window(region, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	copy(buf, win)
	return nil
}

// Write copies buf into region at offset.
func (m *Mailbox) Write(region platform.MailboxRegion, offset uint32, buf []byte) error {
	win, err := m.window(region, offset, uint32(len(buf)))
	if err != nil {
		return err
	}
	copy(win, buf)
	return nil
}

// Size reports a region's configured window size.
func (m *Mailbox) Size(region platform.MailboxRegion) uint32 {
	return m.regions[region].size
}
