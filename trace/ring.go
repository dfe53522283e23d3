package trace

import (
	"sync"

	"github.com/avnera-audio/dspfw/platform"
)

// Record is one debug-stream entry: level/class plus up to four 32-bit
// parameters, matching the fixed shape logging.Facade.Emit hands to every
// sink.
type Record struct {
	Seq    uint64
	Level  platform.LogLevel
	Class  platform.LogClass
	Msg    string
	Params []uint32
}

// Ring is a per-core circular buffer of Records. It implements
// logging.Sink: every Emit call on the facade mirrors into the ring
// that's registered for the emitting core, and Drain hands the records
// back; nothing in this package copies them into the MailboxTrace region.
// Write, Drain and Len share one mutex, so a Write waits while another
// call holds it. Writes never grow the ring — once full, the oldest
// record is overwritten rather than stalling the DSP waiting on the host
// to drain.
type Ring struct {
	core uint32

	mu      sync.Mutex
	records []Record
	next    int
	filled  bool
	seq     uint64
}

// NewRing allocates a ring of the given record capacity for one core.
func NewRing(core uint32, capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{core: core, records: make([]Record, capacity)}
}

// Core reports which core this ring mirrors.
func (r *Ring) Core() uint32 { return r.core }

// Write implements logging.Sink.
func (r *Ring) Write(level platform.LogLevel, class platform.LogClass, msg string, params []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]uint32, len(params))
	copy(cp, params)

	r.records[r.next] = Record{Seq: r.seq, Level: level, Class: class, Msg: msg, Params: cp}
	r.seq++
	r.next++
	if r.next == len(r.records) {
		r.next = 0
		r.filled = true
	}
}

// Drain returns every live record in chronological (oldest-first) order,
// the shape a reverse scan after overrun is meant to reconstruct.
func (r *Ring) Drain() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]Record, r.next)
		copy(out, r.records[:r.next])
		return out
	}

	out := make([]Record, len(r.records))
	copy(out, r.records[r.next:])
	copy(out[len(r.records)-r.next:], r.records[:r.next])
	return out
}

// Len reports how many live records the ring currently holds.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.records)
	}
	return r.next
}
