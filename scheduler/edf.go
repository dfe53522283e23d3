package scheduler

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/avnera-audio/dspfw/fault"
)

// EDFScheduler is the earliest-deadline-first scheduler used for IPC
// replies, IDC handling, and other control-plane work that shares a core
// with low-latency audio tasks but isn't itself periodic. It
// is cooperative: the task that sorts earliest always runs next, but once
// running it is not physically preempted.
type EDFScheduler struct {
	Core uint32

	OnOverrun OverrunFunc

	// Fault, when set, guards every task Run the same way
	// LowLatencyScheduler.Fault does.
	Fault *fault.Handler

	queue edfHeap
}

var _ Ops = (*EDFScheduler)(nil)

// TaskInit validates class and sets state.
func (s *EDFScheduler) TaskInit(t *Task) error {
	if t.Class != ClassEDF {
		return wrongClass(t, ClassEDF)
	}
	t.state = TaskInit
	return nil
}

// TaskFree releases a task; it must not be queued or running.
func (s *EDFScheduler) TaskFree(t *Task) error {
	if t.state == TaskQueued || t.state == TaskPending || t.state == TaskRunning {
		return fmt.Errorf("scheduler: cannot free task %d in state %s", t.ID, t.state)
	}
	t.state = TaskFree
	return nil
}

// ScheduleTask computes the task's absolute deadline from now and inserts
// it into the ready queue.
func (s *EDFScheduler) ScheduleTask(t *Task) error {
	if t.Class != ClassEDF {
		return wrongClass(t, ClassEDF)
	}
	t.absoluteDeadline = time.Now().Add(t.Deadline)
	t.state = TaskQueued
	heap.Push(&s.queue, t)
	return nil
}

// RescheduleTask recomputes a still-queued task's deadline and re-heapifies.
func (s *EDFScheduler) RescheduleTask(t *Task) error {
	idx := s.queue.indexOf(t)
	if idx < 0 {
		return fmt.Errorf("scheduler: reschedule: task %d not queued", t.ID)
	}
	t.absoluteDeadline = time.Now().Add(t.Deadline)
	heap.Fix(&s.queue, idx)
	return nil
}

// CancelTask removes a queued task before it runs.
func (s *EDFScheduler) CancelTask(t *Task) error {
	idx := s.queue.indexOf(t)
	if idx < 0 {
		return fmt.Errorf("scheduler: cancel: task %d not queued", t.ID)
	}
	heap.Remove(&s.queue, idx)
	t.state = TaskCancel
	return nil
}

// TaskRunning reports whether t is mid-Run.
func (s *EDFScheduler) TaskRunning(t *Task) bool { return t.state == TaskRunning }

// TaskComplete marks a task COMPLETED. EDF tasks are one-shot: a caller
// that wants recurrence must ScheduleTask it again.
func (s *EDFScheduler) TaskComplete(t *Task) error {
	t.state = TaskCompleted
	return nil
}

// Run pops and executes every task whose absolute deadline is <= now, in
// deadline order, earliest first, ties broken by Priority descending.
func (s *EDFScheduler) Run(now time.Time) error {
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.absoluteDeadline.After(now) {
			break
		}
		t := heap.Pop(&s.queue).(*Task)
		t.state = TaskRunning
		start := time.Now()
		err := s.runOne(t)
		t.lastRunElapsed = time.Since(start)
		if err != nil {
			t.state = TaskPreempted
			return fmt.Errorf("scheduler: core %d: edf task %d: %w", s.Core, t.ID, err)
		}
		if err := s.TaskComplete(t); err != nil {
			return err
		}
	}
	return nil
}

// runOne calls a task's Fn under the scheduler's fault guard, when one is
// installed.
func (s *EDFScheduler) runOne(t *Task) error {
	if s.Fault != nil {
		defer s.Fault.Recover()
	}
	return t.Fn(t.Arg)
}

// NextDeadline reports the earliest deadline still queued, for a caller
// that wants to arm a one-shot timer rather than poll Run.
func (s *EDFScheduler) NextDeadline() (time.Time, bool) {
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].absoluteDeadline, true
}

// edfHeap is a container/heap-ordered min-heap on (absoluteDeadline,
// -Priority).
type edfHeap []*Task

func (h edfHeap) Len() int { return len(h) }

func (h edfHeap) Less(i, j int) bool {
	if !h[i].absoluteDeadline.Equal(h[j].absoluteDeadline) {
		return h[i].absoluteDeadline.Before(h[j].absoluteDeadline)
	}
	return h[i].Priority > h[j].Priority
}

func (h edfHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *edfHeap) Push(x any) { *h = append(*h, x.(*Task)) }

func (h *edfHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

func (h edfHeap) indexOf(t *Task) int {
	for i, tt := range h {
		if tt == t {
			return i
		}
	}
	return -1
}
