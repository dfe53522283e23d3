package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/avnera-audio/dspfw/platform"
)

// Timer is the sim backend for platform.Timer: a free-running tick
// counter plus a one-shot deadline that invokes the registered ISR
// callback from a dedicated goroutine, standing in for a hardware timer
// interrupt.
type Timer struct {
	ticks atomic.Uint64

	mu       sync.Mutex
	running  bool
	deadline time.Duration
	stop     chan struct{}
	isr      func()

	startedAt time.Time
}

var _ platform.Timer = (*Timer)(nil)

// NewTimer constructs a stopped timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Start begins the free-running tick counter and, if a deadline was set,
// arms the one-shot ISR fire.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	t.running = true
	t.startedAt = time.Now()
	t.stop = make(chan struct{})
	stop := t.stop
	go t.tick(stop)
	return nil
}

func (t *Timer) tick(stop chan struct{}) {
	ticker := time.NewTicker(time.Microsecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.ticks.Add(1)
			t.mu.Lock()
			deadline, isr := t.deadline, t.isr
			elapsed := time.Since(t.startedAt)
			fire := isr != nil && deadline > 0 && elapsed >= deadline
			if fire {
				// One-shot: disarm until the next SetDeadline.
				t.deadline = 0
			}
			t.mu.Unlock()
			if fire {
				isr()
			}
		}
	}
}

// Stop halts the tick goroutine.
func (t *Timer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	close(t.stop)
	t.running = false
	return nil
}

// SetDeadline arms the next ISR fire, relative to Start.
func (t *Timer) SetDeadline(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = d
	return nil
}

// Ticks returns the free-running 64-bit tick count.
func (t *Timer) Ticks() uint64 { return t.ticks.Load() }

// RegisterISR installs the deadline callback.
func (t *Timer) RegisterISR(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isr = fn
	return nil
}
