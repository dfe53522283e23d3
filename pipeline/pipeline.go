// Package pipeline implements the directed acyclic sub-graph of
// components sharing one scheduling period and driving endpoint,
// including graph completion, params/prepare/trigger sequencing, and
// position reporting.
package pipeline

import (
	"fmt"
	"time"

	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/platform"
)

// TimeDomain selects what drives a pipeline's cadence.
type TimeDomain int

const (
	TimerDriven TimeDomain = iota
	DMATickDriven
)

// RunState is the pipeline-wide stream state.
type RunState int

const (
	RunCreated RunState = iota
	RunRunning
	RunPaused
	RunEOS
	RunErrorStop
	RunSaved
	RunRestored
)

// CrossCoreTrigger is invoked when Trigger targets a pipeline owned by a
// different core; the implementation (package idc) sends MSG_PPL_STATE
// and blocks for the reply, bounded by IDC_TIMEOUT.
type CrossCoreTrigger func(core uint32, pipelineID uint32, cmd component.TriggerCmd) error

// Pipeline is one scheduled sub-graph.
type Pipeline struct {
	ID              uint32
	Priority        uint32
	Core            uint32
	PeriodUs        uint32
	TimeDomain      TimeDomain
	FramesPerPeriod uint32
	Direction       platform.Direction

	Members             []*component.Instance // topological order, source to sink
	SchedulingComponent *component.Instance
	SourceComponent     *component.Instance
	SinkComponent       *component.Instance

	RunState RunState

	// MinNotifyInterval throttles stream_position posts so a fast pipeline
	// doesn't flood the notification mailbox once per period.
	MinNotifyInterval time.Duration
	lastNotify        time.Time

	// xrunCount survives Trigger(RESET) and is only cleared by Free or
	// ResetCounters, so an
	// operator reading it after a reset still sees the run's total.
	xrunCount uint32

	LatestPosition component.StreamPosition
	PostPosition   func(pipelineID uint32, pos component.StreamPosition)

	CrossCoreTrigger CrossCoreTrigger
	LocalCore        uint32
}

// Complete walks the component/buffer graph rooted at source (upstream-
// most) to sink (downstream-most), verifies acyclicity, and records the
// topological member order and the driving core.
func (p *Pipeline) Complete(components map[uint32]*component.Instance, sourceID, sinkID uint32) error {
	source, ok := components[sourceID]
	if !ok {
		return fmt.Errorf("pipeline %d: complete: unknown source component %d", p.ID, sourceID)
	}
	sink, ok := components[sinkID]
	if !ok {
		return fmt.Errorf("pipeline %d: complete: unknown sink component %d", p.ID, sinkID)
	}
	if source.PipelineID != p.ID || sink.PipelineID != p.ID {
		return fmt.Errorf("pipeline %d: complete: source/sink not owned by this pipeline", p.ID)
	}

	// Collect all components the pipeline owns, then topologically sort
	// them by producer/consumer buffer edges (Kahn's algorithm), so a
	// cycle shows up as "not all nodes consumed".
	var owned []*component.Instance
	for _, inst := range components {
		if inst.PipelineID == p.ID {
			owned = append(owned, inst)
		}
	}

	inDegree := make(map[uint32]int, len(owned))
	byID := make(map[uint32]*component.Instance, len(owned))
	for _, inst := range owned {
		inDegree[inst.ID] = 0
		byID[inst.ID] = inst
	}
	consumerOf := make(map[*buffer.Ring]uint32)
	for _, inst := range owned {
		for _, sinkBuf := range inst.Sinks {
			consumerOf[sinkBuf] = sinkBuf.Consumer
		}
	}
	for _, inst := range owned {
		for _, srcBuf := range inst.Sources {
			if _, ok := byID[srcBuf.Producer]; ok {
				inDegree[inst.ID]++
			}
		}
	}

	var queue []*component.Instance
	for _, inst := range owned {
		if inDegree[inst.ID] == 0 {
			queue = append(queue, inst)
		}
	}
	var order []*component.Instance
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, sinkBuf := range n.Sinks {
			consumerID := sinkBuf.Consumer
			if _, ok := byID[consumerID]; !ok {
				continue
			}
			inDegree[consumerID]--
			if inDegree[consumerID] == 0 {
				queue = append(queue, byID[consumerID])
			}
		}
	}
	if len(order) != len(owned) {
		return fmt.Errorf("pipeline %d: complete: component graph is not acyclic", p.ID)
	}

	p.Members = order
	p.SourceComponent = source
	p.SinkComponent = sink
	p.SchedulingComponent = pickSchedulingComponent(source, sink, p.TimeDomain)
	p.Core = p.SchedulingComponent.Core
	return nil
}

func pickSchedulingComponent(source, sink *component.Instance, domain TimeDomain) *component.Instance {
	wantKind := component.KindHost
	if domain == DMATickDriven {
		wantKind = component.KindDAI
	}
	if source.Kind == wantKind {
		return source
	}
	if sink.Kind == wantKind {
		return sink
	}
	// Neither endpoint matches convention; fall back to sink, the usual
	// driving point for host-driven pipelines.
	return sink
}

// Params propagates the host's requested stream parameters through every
// member, sink-to-source for playback or source-to-sink for capture. A
// format a member rejects is a terminal error; members negotiated before
// the failing one keep their new formats, as nothing is rolled back.
// Once a member negotiates its format, every buffer wired
// to one of its pins must carry that exact format — a buffer declared
// with something else is a pin mismatch, caught here rather than left to
// surface as a silent byte-count error once Copy starts running.
func (p *Pipeline) Params(requested component.StreamParams) error {
	order := p.Members
	if p.Direction == platform.DirectionPlayback {
		order = reversed(p.Members)
	}
	current := requested
	for _, inst := range order {
		inst.SourceFormat = current.Format
		if err := inst.Params(current); err != nil {
			return fmt.Errorf("pipeline %d: params: %w", p.ID, err)
		}
		if err := checkPinFormats(p.ID, inst); err != nil {
			return err
		}
		current = component.StreamParams{Format: inst.SinkFormat, FramesPerPeriod: requested.FramesPerPeriod}
	}
	p.FramesPerPeriod = requested.FramesPerPeriod
	return nil
}

// checkPinFormats verifies every buffer wired to inst's source and sink
// pins carries the format inst just negotiated for that pin.
func checkPinFormats(pipelineID uint32, inst *component.Instance) error {
	for _, b := range inst.Sinks {
		if !b.Format.Equal(inst.SinkFormat) {
			return fmt.Errorf("pipeline %d: params: component %d negotiated sink format %+v but buffer %d was declared %+v",
				pipelineID, inst.ID, inst.SinkFormat, b.ID, b.Format)
		}
	}
	for _, b := range inst.Sources {
		if !b.Format.Equal(inst.SourceFormat) {
			return fmt.Errorf("pipeline %d: params: component %d expects source format %+v but buffer %d was declared %+v",
				pipelineID, inst.ID, inst.SourceFormat, b.ID, b.Format)
		}
	}
	return nil
}

// Prepare calls Prepare on every member in dependency order.
func (p *Pipeline) Prepare() error {
	for _, inst := range p.Members {
		if _, err := inst.Prepare(); err != nil {
			return fmt.Errorf("pipeline %d: prepare: %w", p.ID, err)
		}
	}
	return nil
}

func reversed(in []*component.Instance) []*component.Instance {
	out := make([]*component.Instance, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// triggerOrder returns the member order a given command must be applied
// in.
func (p *Pipeline) triggerOrder(cmd component.TriggerCmd) []*component.Instance {
	switch cmd {
	case component.TriggerStart, component.TriggerRelease, component.TriggerPreStart, component.TriggerPreRelease:
		if p.Direction == platform.DirectionPlayback {
			return p.Members
		}
		return reversed(p.Members)
	case component.TriggerStop, component.TriggerPause:
		if p.Direction == platform.DirectionPlayback {
			return reversed(p.Members)
		}
		return p.Members
	default: // RESET, XRUN: order is irrelevant
		return p.Members
	}
}

// Trigger dispatches cmd across the pipeline's members in triggerOrder, or
// delegates to another core via CrossCoreTrigger if this pipeline is not
// owned by the local core.
func (p *Pipeline) Trigger(cmd component.TriggerCmd) error {
	if p.Core != p.LocalCore && p.CrossCoreTrigger != nil {
		return p.CrossCoreTrigger(p.Core, p.ID, cmd)
	}
	for _, inst := range p.triggerOrder(cmd) {
		if err := inst.Trigger(cmd); err != nil {
			return fmt.Errorf("pipeline %d: trigger: %w", p.ID, err)
		}
	}
	switch cmd {
	case component.TriggerStart, component.TriggerRelease:
		p.RunState = RunRunning
	case component.TriggerStop:
		p.RunState = RunPaused
	case component.TriggerPause:
		p.RunState = RunPaused
	case component.TriggerReset:
		p.RunState = RunCreated
		// xrun/underrun counters deliberately survive RESET; only Free or
		// an explicit ResetCounters call clears them.
	}
	return nil
}

// ResetCounters explicitly clears the pipeline's xrun statistics without
// touching component state.
func (p *Pipeline) ResetCounters() { p.xrunCount = 0 }

// XrunCount returns the pipeline's running xrun/underrun occurrence count.
func (p *Pipeline) XrunCount() uint32 { return p.xrunCount }

// Free tears the pipeline down. This is the only operation besides
// ResetCounters that clears xrun statistics.
func (p *Pipeline) Free() error {
	for _, inst := range p.Members {
		if err := inst.Free(); err != nil {
			return fmt.Errorf("pipeline %d: free: %w", p.ID, err)
		}
	}
	p.xrunCount = 0
	return nil
}

// Tick runs one period: walks the members in topological order calling
// Copy, then opportunistically posts LatestPosition, which only
// UpdatePosition changes.
func (p *Pipeline) Tick(now time.Time) error {
	for _, inst := range p.Members {
		result, err := inst.Copy()
		if err != nil {
			p.xrunCount++
			return fmt.Errorf("pipeline %d: tick: %w", p.ID, err)
		}
		if result == component.CopyPathStop {
			break
		}
	}
	if p.PostPosition == nil {
		return nil
	}
	if p.lastNotify.IsZero() || now.Sub(p.lastNotify) >= p.MinNotifyInterval {
		p.PostPosition(p.ID, p.LatestPosition)
		p.lastNotify = now
	}
	return nil
}

// UpdatePosition merges a new position sample reported by a host or DAI
// endpoint's Notify callback into the pipeline's latest record.
func (p *Pipeline) UpdatePosition(pos component.StreamPosition) {
	if pos.HostFrames > 0 {
		p.LatestPosition.HostFrames = pos.HostFrames
	}
	if pos.DAIFrames > 0 {
		p.LatestPosition.DAIFrames = pos.DAIFrames
	}
	p.LatestPosition.Timestamp = pos.Timestamp
	p.LatestPosition.XrunCount = pos.XrunCount
	p.LatestPosition.Valid = pos.Valid
	if pos.XrunCount > 0 {
		p.xrunCount = pos.XrunCount
	}
}
