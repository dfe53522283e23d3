// Package sim is the host-mode backend for the platform facade: it
// stands in for the real SoC when the core runs on a development
// machine, backing the mailbox/cache windows with an mmap'd arena, DAIs
// with PortAudio streams, and core power with GPIO lines.
package sim

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/avnera-audio/dspfw/platform"
)

// Arena is a single mmap'd region standing in for the DSP's memory-mapped
// mailbox/cache windows. Real hardware
// would keep producer/consumer cache lines coherent by discipline; a
// single host process has no incoherent caches to flush, so Arena's
// Flush/Invalidate calls exist to preserve the call sequence the buffer
// and mailbox code depends on, backed by a real msync so the discipline
// is exercised rather than stubbed out entirely.
type Arena struct {
	mem []byte
}

// NewArena mmaps size bytes anonymously, matching how the real firmware's
// windows table carves up one physically contiguous region.
func NewArena(size int) (*Arena, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("sim: mmap arena: %w", err)
	}
	return &Arena{mem: mem}, nil
}

// Close unmaps the arena.
func (a *Arena) Close() error {
	return unix.Munmap(a.mem)
}

// Slice returns the byte window [offset, offset+length).
func (a *Arena) Slice(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(a.mem)) {
		return nil, fmt.Errorf("sim: arena window [%d,%d) exceeds arena size %d", offset, end, len(a.mem))
	}
	return a.mem[offset:end], nil
}

var _ platform.Cache = (*Arena)(nil)

// Flush msyncs the given range, standing in for a cache-line flush: the
// producer must flush before its write-pointer store becomes visible to
// the consumer.
func (a *Arena) Flush(offset, length uint32) {
	win, err := a.Slice(offset, length)
	if err != nil {
		return
	}
	_ = unix.Msync(win, unix.MS_SYNC)
}

// Invalidate has no stale cache lines to discard in a single address
// space; it still issues msync with MS_INVALIDATE, the closest POSIX analogue to a cache-line invalidate and is issued
// for the same reason Flush issues MS_SYNC: to exercise the discipline.
func (a *Arena) Invalidate(offset, length uint32) {
	win, err := a.Slice(offset, length)
	if err != nil {
		return
	}
	_ = unix.Msync(win, unix.MS_INVALIDATE)
}

// FlushInvalidate does both in the order a real flush-then-invalidate
// round trip would.
func (a *Arena) FlushInvalidate(offset, length uint32) {
	a.Flush(offset, length)
	a.Invalidate(offset, length)
}
