package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/avnera-audio/dspfw/fault"
)

// Domain selects what drives a low-latency scheduler's tick.
type Domain int

const (
	DomainTimer Domain = iota
	DomainDMAMultiChannel
)

// OverrunFunc is called whenever a task's Run exceeds its declared period.
type OverrunFunc func(t *Task, elapsed time.Duration)

// MissedTickFunc is called when a task's tick is skipped because its
// deadline has already passed by more than one period.
type MissedTickFunc func(t *Task, missedBy time.Duration)

// LowLatencyScheduler runs a fixed set of periodic, non-blocking tasks on
// one core, cooperatively and without preemption. Tasks run in
// priority order within one tick; a task never preempts another mid-Run.
type LowLatencyScheduler struct {
	Core   uint32
	Domain Domain

	OnOverrun    OverrunFunc
	OnMissedTick MissedTickFunc

	// Fault, when set, guards every task Run: a panicking driver is
	// recovered and routed to Fault.Panic instead of crashing the whole
	// core wiring constructs this scheduler with.
	Fault *fault.Handler

	tasks []*Task
}

var _ Ops = (*LowLatencyScheduler)(nil)

// TaskInit sets a freshly constructed task to INIT state and validates it
// belongs to this scheduler's class.
func (s *LowLatencyScheduler) TaskInit(t *Task) error {
	if t.Class != ClassLowLatency {
		return wrongClass(t, ClassLowLatency)
	}
	if t.Period <= 0 {
		return fmt.Errorf("scheduler: low-latency task %d has non-positive period", t.ID)
	}
	t.state = TaskInit
	return nil
}

// TaskFree releases a task; it must not be queued.
func (s *LowLatencyScheduler) TaskFree(t *Task) error {
	if t.state == TaskQueued || t.state == TaskPending || t.state == TaskRunning {
		return fmt.Errorf("scheduler: cannot free task %d in state %s", t.ID, t.state)
	}
	t.state = TaskFree
	return nil
}

// ScheduleTask admits a task to the periodic tick set. Its first deadline
// is one period from now.
func (s *LowLatencyScheduler) ScheduleTask(t *Task) error {
	if t.Class != ClassLowLatency {
		return wrongClass(t, ClassLowLatency)
	}
	t.nextDeadline = time.Now().Add(t.Period)
	t.state = TaskQueued
	s.tasks = append(s.tasks, t)
	return nil
}

// RescheduleTask re-arms a task's next deadline relative to now, used when
// a task's period changes at runtime (e.g. a pipeline's rate change).
func (s *LowLatencyScheduler) RescheduleTask(t *Task) error {
	for _, tt := range s.tasks {
		if tt == t {
			t.nextDeadline = time.Now().Add(t.Period)
			return nil
		}
	}
	return fmt.Errorf("scheduler: reschedule: task %d not queued", t.ID)
}

// CancelTask removes a task from the tick set. Safe to call from the
// owning core only; cross-core cancellation goes through idc.
func (s *LowLatencyScheduler) CancelTask(t *Task) error {
	for i, tt := range s.tasks {
		if tt == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			t.state = TaskCancel
			return nil
		}
	}
	return fmt.Errorf("scheduler: cancel: task %d not queued", t.ID)
}

// TaskRunning reports whether t is mid-Run.
func (s *LowLatencyScheduler) TaskRunning(t *Task) bool { return t.state == TaskRunning }

// TaskComplete marks a task COMPLETED and re-arms its next deadline.
func (s *LowLatencyScheduler) TaskComplete(t *Task) error {
	t.state = TaskCompleted
	t.nextDeadline = t.nextDeadline.Add(t.Period)
	return nil
}

// Run executes every task whose deadline has arrived, in priority order
// (highest first), running each to completion before starting the next:
// non-preemptive scheduling among tasks on the same core. It applies no
// channel filter; RunChannels is the DMA-multi-channel variant.
func (s *LowLatencyScheduler) Run(now time.Time) error {
	return s.run(now, nil)
}

// RunChannels is Run for DomainDMAMultiChannel schedulers: only tasks
// whose Channel appears in readyChannels are ticked.
func (s *LowLatencyScheduler) RunChannels(now time.Time, readyChannels map[string]bool) error {
	return s.run(now, readyChannels)
}

func (s *LowLatencyScheduler) run(now time.Time, readyChannels map[string]bool) error {
	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.state == TaskCancel || t.state == TaskFree {
			continue
		}
		if s.Domain == DomainDMAMultiChannel && readyChannels != nil {
			if !readyChannels[t.Channel] {
				continue
			}
		} else if now.Before(t.nextDeadline) {
			continue
		}
		if missedBy := now.Sub(t.nextDeadline) - t.Period; missedBy > 0 {
			if s.OnMissedTick != nil {
				s.OnMissedTick(t, missedBy)
			}
			// Dropped, not caught up: re-arm relative to now so a stall
			// doesn't cause a burst of back-to-back runs.
			t.nextDeadline = now.Add(t.Period)
		}
		due = append(due, t)
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Priority > due[j].Priority })

	for _, t := range due {
		t.state = TaskRunning
		start := time.Now()
		err := s.runOne(t)
		t.lastRunElapsed = time.Since(start)
		if t.lastRunElapsed > t.Period && s.OnOverrun != nil {
			s.OnOverrun(t, t.lastRunElapsed)
		}
		if err != nil {
			t.state = TaskPreempted
			return fmt.Errorf("scheduler: core %d: task %d: %w", s.Core, t.ID, err)
		}
		if err := s.TaskComplete(t); err != nil {
			return err
		}
	}
	return nil
}

// runOne calls a task's Fn under the scheduler's fault guard, when one is
// installed, so a panic inside a driver routes through Fault.Panic instead
// of unwinding into the caller's tick loop.
func (s *LowLatencyScheduler) runOne(t *Task) error {
	if s.Fault != nil {
		defer s.Fault.Recover()
	}
	return t.Fn(t.Arg)
}
