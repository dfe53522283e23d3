// Package fault is the fatal-error path: stack overflow, bus
// error, uncorrectable memory error, or a failed invariant all funnel
// into Panic, which never returns. It writes the exception type and a
// stack snapshot to the EXCEPTION mailbox region, flushes caches, and
// parks the core; the host learns of the crash from a reserved status
// register value, modeled here as StatusPanic.
package fault

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/avnera-audio/dspfw/platform"
)

// Type identifies the class of fatal error recorded in the exception
// dump.
type Type uint32

const (
	TypeAssertion Type = iota
	TypeStackOverflow
	TypeBusError
	TypeUncorrectableMemory
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeAssertion:
		return "assertion"
	case TypeStackOverflow:
		return "stack-overflow"
	case TypeBusError:
		return "bus-error"
	case TypeUncorrectableMemory:
		return "uncorrectable-memory"
	default:
		return "unknown"
	}
}

// Status is the reserved status-register value the host polls or reads
// out-of-band to learn a core has panicked.
type Status uint32

const (
	StatusOK    Status = 0
	StatusPanic Status = 0xDEAD0000
)

// Record is the fixed-shape exception dump written to the EXCEPTION
// mailbox region.
type Record struct {
	Type      Type
	Core      uint32
	Timestamp int64 // unix nanos, stamped by the caller (time.Now is unavailable mid-panic on real hardware)
	Stack     []byte
}

// Handler owns the mailbox/cache platform calls Panic needs. Exactly one
// Handler exists per core; core wiring constructs it at boot alongside
// the rest of the platform facade.
type Handler struct {
	Core    uint32
	Mailbox platform.Mailbox
	Cache   platform.Cache
	Power   platform.Power

	// StatusSink receives StatusPanic once the exception record has been
	// durably written; on real hardware this would be a memory-mapped
	// status register, here it is whatever the core wiring supplies (an
	// atomic word, a channel close, a callback to IDC's crash fan-out).
	StatusSink func(Status)
}

// Panic records the fault and parks the core. It never returns; Recover,
// which both schedulers defer around every task run, calls it, turning a
// bare process abort into a structured exception dump the host can read
// back out of the EXCEPTION mailbox region.
func (h *Handler) Panic(t Type, cause error) {
	rec := Record{
		Type:      t,
		Core:      h.Core,
		Timestamp: nowNanos(),
		Stack:     debug.Stack(),
	}
	if cause != nil {
		rec.Stack = append([]byte(cause.Error()+"\n"), rec.Stack...)
	}

	buf := Encode(rec)
	size := h.Mailbox.Size(platform.MailboxException)
	if uint32(len(buf)) > size {
		buf = buf[:size]
	}
	_ = h.Mailbox.Write(platform.MailboxException, 0, buf)
	h.Cache.FlushInvalidate(0, uint32(len(buf)))

	if h.StatusSink != nil {
		h.StatusSink(StatusPanic)
	}
	if h.Power != nil {
		_ = h.Power.SleepCore(h.Core)
	}

	// Park. A real core would halt via wfi/wfe; here we block forever so
	// the panicking goroutine never returns into the scheduler.
	select {}
}

// Recover is the deferred call each scheduler installs around every task
// run, in the goroutine that calls the scheduler's Run: it
// turns a recovered Go panic into a fault.Handler.Panic call instead of
// letting the process crash uncontrolled.
func (h *Handler) Recover() {
	if r := recover(); r != nil {
		var cause error
		if err, ok := r.(error); ok {
			cause = err
		} else {
			cause = errString(fmt.Sprint(r))
		}
		h.Panic(TypeAssertion, cause)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

// nowNanos is isolated so tests can stub it without reaching for a real
// wall clock mid-fault.
var nowNanos = func() int64 { return time.Now().UnixNano() }
