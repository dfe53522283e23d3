// Package buffer implements a lockless single-producer/single-consumer
// ring: a fixed-size byte ring carrying audio-format metadata, with an
// optional cross-core cache-flush/invalidate discipline standing in for
// locks on the hot path.
package buffer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/avnera-audio/dspfw/audioformat"
)

var (
	// ErrBusy is returned by a reserve call when a reservation on the same
	// side is already outstanding.
	ErrBusy = errors.New("buffer: reservation already outstanding")
	// ErrNoData is returned when the requested size exceeds what is
	// currently free (write side) or available (read side).
	ErrNoData = errors.New("buffer: requested size exceeds available space")
)

// CacheOps is the cache-flush/invalidate discipline a cross-core buffer
// uses in place of locking. Flush publishes a byte range
// written by the producer; Invalidate discards any stale cached copy
// before the consumer reads a byte range. Both take a byte offset into the
// ring's backing array and a length. Same-core buffers pass a nil CacheOps.
type CacheOps struct {
	Flush      func(offset, length uint32)
	Invalidate func(offset, length uint32)
}

// Kind selects one of the buffer flavours a topology can request.
type Kind int

const (
	// SameCore is a plain ring in cached memory; producer and consumer run
	// on the same core, so no flush/invalidate is needed.
	SameCore Kind = iota
	// CrossCore is a ring in cache-coherent-by-discipline shared memory;
	// producer and consumer run on different cores.
	CrossCore
	// DPQueue is the flavour requested for a producer/consumer pair that
	// isn't locked to the same period cadence — a host endpoint's ring is
	// the usual case, since the host deposits/drains on its own schedule
	// rather than the DSP's period boundary. Sized by the caller to
	// 2*max(producer period, consumer period) to absorb the worst-case
	// mismatch; the ring mechanics are identical to SameCore/CrossCore.
	DPQueue
)

// Ring is a fixed-size SPSC byte ring with audio-format metadata.
type Ring struct {
	ID       uint32
	Format   audioformat.Format
	Producer uint32 // producer component id
	Consumer uint32 // consumer component id
	Kind     Kind

	UnderrunPermitted bool
	OverrunPermitted  bool
	MinFreeSpace      uint32
	MinAvailable      uint32

	data  []byte
	cache CacheOps

	// readPos/writePos are monotonically increasing logical byte positions.
	// available = writePos - readPos always holds (never wraps negative)
	// because a write can only advance writePos by at most free_space, and
	// free_space = size - available. Indexing into data wraps via modulo
	// size, equivalent to ranging the counters over 2*size without needing
	// to wrap them explicitly.
	readPos  atomic.Uint64
	writePos atomic.Uint64

	writeReserved atomic.Bool
	readReserved  atomic.Bool
	writeReserveLen uint32
	readReserveLen  uint32
}

// New allocates a ring of the given size (bytes) for the given format.
// cache may be the zero value for a SameCore ring.
func New(id uint32, kind Kind, size uint32, format audioformat.Format, cache CacheOps) (*Ring, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %d: zero size", id)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("buffer %d: %w", id, err)
	}
	return &Ring{
		ID:     id,
		Format: format,
		Kind:   kind,
		data:   make([]byte, size),
		cache:  cache,
	}, nil
}

// Size is the ring's total capacity in bytes.
func (r *Ring) Size() uint32 { return uint32(len(r.data)) }

// AvailableData is the number of bytes the consumer may currently read.
func (r *Ring) AvailableData() uint32 {
	return uint32(r.writePos.Load() - r.readPos.Load())
}

// FreeSpace is the number of bytes the producer may currently write.
func (r *Ring) FreeSpace() uint32 {
	return r.Size() - r.AvailableData()
}

// AvailableFrames is AvailableData expressed in whole frames.
func (r *Ring) AvailableFrames() uint32 {
	bpf := r.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return r.AvailableData() / bpf
}

// FreeFrames is FreeSpace expressed in whole frames.
func (r *Ring) FreeFrames() uint32 {
	bpf := r.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return r.FreeSpace() / bpf
}

// Reservation is a contiguous-or-wrapped view into the ring's backing
// array, handed out by WriteReserve/ReadReserve. Callers that need to
// write/read the entire reserved size must consider both First and
// Second (Second is non-empty only when the reservation wraps past the
// end of the ring).
type Reservation struct {
	First  []byte
	Second []byte
}

// Len is the total length of the reservation.
func (res Reservation) Len() int { return len(res.First) + len(res.Second) }

func (r *Ring) window(start uint32, size uint32) Reservation {
	capacity := r.Size()
	off := start % capacity
	if off+size <= capacity {
		return Reservation{First: r.data[off : off+size]}
	}
	firstLen := capacity - off
	return Reservation{
		First:  r.data[off:capacity],
		Second: r.data[0 : size-firstLen],
	}
}

// WriteReserve hands the producer a (possibly wrapped) region of at least
// size bytes. Only one write reservation may be outstanding at a time.
func (r *Ring) WriteReserve(size uint32) (Reservation, error) {
	if !r.writeReserved.CompareAndSwap(false, true) {
		return Reservation{}, ErrBusy
	}
	if size > r.FreeSpace() {
		r.writeReserved.Store(false)
		return Reservation{}, ErrNoData
	}
	r.writeReserveLen = size
	return r.window(uint32(r.writePos.Load()), size), nil
}

// WriteCommit publishes min(actual, reserved) bytes: if the ring is
// cross-core, it flushes the written range from the producer's cache
// before the release-ordered store to the write pointer.
func (r *Ring) WriteCommit(actual uint32) {
	n := actual
	if n > r.writeReserveLen {
		n = r.writeReserveLen
	}
	start := uint32(r.writePos.Load())
	if n > 0 && r.cache.Flush != nil {
		off := start % r.Size()
		if off+n <= r.Size() {
			r.cache.Flush(off, n)
		} else {
			firstLen := r.Size() - off
			r.cache.Flush(off, firstLen)
			r.cache.Flush(0, n-firstLen)
		}
	}
	r.writePos.Add(uint64(n))
	r.writeReserveLen = 0
	r.writeReserved.Store(false)
}

// ReadReserve hands the consumer a (possibly wrapped) region of at least
// size bytes currently available. If the ring is cross-core, the region is
// invalidated from cache before being returned, so the
// consumer observes bytes the producer committed with an acquire-ordered
// load of the write pointer happening-before this call.
func (r *Ring) ReadReserve(size uint32) (Reservation, error) {
	if !r.readReserved.CompareAndSwap(false, true) {
		return Reservation{}, ErrBusy
	}
	if size > r.AvailableData() {
		r.readReserved.Store(false)
		return Reservation{}, ErrNoData
	}
	r.readReserveLen = size
	start := uint32(r.readPos.Load())
	if r.cache.Invalidate != nil {
		off := start % r.Size()
		if off+size <= r.Size() {
			r.cache.Invalidate(off, size)
		} else {
			firstLen := r.Size() - off
			r.cache.Invalidate(off, firstLen)
			r.cache.Invalidate(0, size-firstLen)
		}
	}
	return r.window(start, size), nil
}

// ReadCommit retires min(actual, reserved) bytes, advancing the read
// pointer.
func (r *Ring) ReadCommit(actual uint32) {
	n := actual
	if n > r.readReserveLen {
		n = r.readReserveLen
	}
	r.readPos.Add(uint64(n))
	r.readReserveLen = 0
	r.readReserved.Store(false)
}
