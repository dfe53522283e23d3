// Package component implements the uniform behavioural interface every
// processing stage in the graph satisfies, plus the centrally
// enforced state machine and the kind registry the engine dispatches
// through.
package component

import (
	"errors"
	"fmt"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/buffer"
)

// Kind enumerates the closed set of component types. The DSP-algorithm
// kinds (eq-fir, eq-iir, drc, tone, smart-amp, dcblock, crossover, tdfb,
// mfcc, aec, kpb, kwd-detect) are out of scope — only their uniform
// interface is implemented, by passthrough.go.
type Kind int

const (
	KindHost Kind = iota
	KindDAI
	KindMixer
	KindMux
	KindVolume
	KindSRC
	KindEQFIR
	KindEQIIR
	KindDRC
	KindTone
	KindSmartAmp
	KindDCBlock
	KindCrossover
	KindTDFB
	KindMFCC
	KindAEC
	KindKPB
	KindKWDDetect
	KindPipelineEndpoint
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindDAI:
		return "dai"
	case KindMixer:
		return "mixer"
	case KindMux:
		return "mux"
	case KindVolume:
		return "volume"
	case KindSRC:
		return "src"
	case KindEQFIR:
		return "eq-fir"
	case KindEQIIR:
		return "eq-iir"
	case KindDRC:
		return "drc"
	case KindTone:
		return "tone"
	case KindSmartAmp:
		return "smart-amp"
	case KindDCBlock:
		return "dcblock"
	case KindCrossover:
		return "crossover"
	case KindTDFB:
		return "tdfb"
	case KindMFCC:
		return "mfcc"
	case KindAEC:
		return "aec"
	case KindKPB:
		return "kpb"
	case KindKWDDetect:
		return "kwd-detect"
	case KindPipelineEndpoint:
		return "pipeline-endpoint"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is the component instance's lifecycle state.
type State int

const (
	StateReady State = iota
	StatePaused
	StateActive
	stateFreed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StateActive:
		return "ACTIVE"
	case stateFreed:
		return "FREED"
	default:
		return "UNKNOWN"
	}
}

// TriggerCmd is the set of trigger commands a component accepts.
type TriggerCmd int

const (
	TriggerStart TriggerCmd = iota
	TriggerStop
	TriggerPause
	TriggerRelease
	TriggerReset
	TriggerPreStart
	TriggerPreRelease
	TriggerXrun
)

// ErrInvalidState is returned when a command is illegal for the instance's
// current state.
var ErrInvalidState = errors.New("component: command invalid for current state")

// Status is the result of Prepare.
type Status int

const (
	StatusOK Status = iota
	StatusAlready
)

// CopyResult is the result of Copy.
type CopyResult int

const (
	CopyOK CopyResult = iota
	CopyPathStop
)

// StreamParams is the proposed audio format and period size a pipeline
// negotiates with each member component during Params.
type StreamParams struct {
	Format          audioformat.Format
	FramesPerPeriod uint32
}

// CurrentABIVersion is the component ABI this build implements. A
// NewComponentReq quoting anything else is rejected by New before any
// driver state is allocated, rather than left to surface as a garbled
// Payload once a driver tries to interpret it.
const CurrentABIVersion uint32 = 1

// MaxConfigPayload bounds Config.Payload (e.g. an EQ coefficient blob);
// New rejects anything larger before handing it to a driver.
const MaxConfigPayload = 4096

// ErrConfig is returned by New when cfg fails validation: an unsupported
// ABI version or an oversized Payload.
var ErrConfig = errors.New("component: invalid configuration")

// Config is the validated configuration a component is created from. Size
// and ABI-version validation happens in component.New before any driver
// state is allocated.
type Config struct {
	ID         uint32
	Kind       Kind
	Core       uint32
	PipelineID uint32
	ABIVersion uint32
	Channels   uint16
	Payload    []byte // e.g. EQ coefficient blob, carried opaque to the driver

	// Extra carries kind-specific wiring that cannot be expressed as a
	// byte blob (DMA channel handles, notification callbacks). Each
	// driver documents the concrete type it expects, if any.
	Extra any
}

// Private is the opaque, driver-owned instance state. Only the driver that
// created it may interpret its contents; the engine only ever passes it
// back to the same driver.
type Private interface{}

// Driver is the one-vtable-per-kind behavioural contract every component
// kind implements.
type Driver interface {
	// New allocates private state from config. It must not acquire DMA or
	// start hardware, and must validate size/ABI/format before allocating
	// anything.
	New(cfg Config) (Private, error)
	// Free releases private state. Must be idempotent after Reset.
	Free(p Private) error
	// Params accepts or rejects a proposed format, returning the format
	// this component will actually produce on its sink pin(s).
	Params(p Private, params StreamParams) (audioformat.Format, error)
	// Prepare computes per-period byte counts, sizes delay lines, zeroes
	// state.
	Prepare(p Private) error
	// Trigger performs the kind-specific side effect of a state
	// transition (e.g. host endpoint arms its DMA channel on START).
	Trigger(p Private, cmd TriggerCmd) error
	// Copy processes one period: reads from sources, writes to sinks.
	Copy(p Private, sources, sinks []*buffer.Ring) (CopyResult, error)
	// Reset returns to READY without freeing, dropping queued samples.
	Reset(p Private) error
	// SetAttribute is the setter for runtime controls (gain, mute, bypass,
	// coefficient blobs, ...).
	SetAttribute(p Private, key string, value any) error
}

// Instance is one node in the processing graph. Only the owning core may mutate its private state; other
// cores must request work via IDC.
type Instance struct {
	ID         uint32
	Kind       Kind
	PipelineID uint32
	Core       uint32

	FramesPerPeriod uint32
	PeriodCount     uint32

	SourceFormat audioformat.Format
	SinkFormat   audioformat.Format

	Sources []*buffer.Ring
	Sinks   []*buffer.Ring

	state  State
	driver Driver
	priv   Private
}

// New allocates a component instance from cfg using driver. Config is
// validated before driver.New runs: on a validation failure, nothing is
// allocated.
func New(cfg Config, driver Driver) (*Instance, error) {
	if cfg.ABIVersion != CurrentABIVersion {
		return nil, fmt.Errorf("component %d (%s): %w: abi version %d unsupported, want %d",
			cfg.ID, cfg.Kind, ErrConfig, cfg.ABIVersion, CurrentABIVersion)
	}
	if len(cfg.Payload) > MaxConfigPayload {
		return nil, fmt.Errorf("component %d (%s): %w: payload %d bytes exceeds max %d",
			cfg.ID, cfg.Kind, ErrConfig, len(cfg.Payload), MaxConfigPayload)
	}
	priv, err := driver.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("component %d (%s): %w", cfg.ID, cfg.Kind, err)
	}
	return &Instance{
		ID:         cfg.ID,
		Kind:       cfg.Kind,
		PipelineID: cfg.PipelineID,
		Core:       cfg.Core,
		state:      StateReady,
		driver:     driver,
		priv:       priv,
	}, nil
}

// State returns the instance's current lifecycle state.
func (inst *Instance) State() State { return inst.state }

// Params negotiates the format this instance will produce on its sink
// pin(s). Upstream sink formats must equal downstream source formats after
// this step; the pipeline enforces that, not the component.
func (inst *Instance) Params(params StreamParams) error {
	format, err := inst.driver.Params(inst.priv, params)
	if err != nil {
		return fmt.Errorf("component %d: params: %w", inst.ID, err)
	}
	inst.FramesPerPeriod = params.FramesPerPeriod
	inst.SinkFormat = format
	return nil
}

// Prepare computes per-period byte counts and acquires resources. A second
// Prepare on an already-prepared (PAUSED) instance is idempotent and
// returns StatusAlready without side effects.
func (inst *Instance) Prepare() (Status, error) {
	if inst.state == StatePaused {
		return StatusAlready, nil
	}
	if inst.state != StateReady {
		return 0, fmt.Errorf("component %d: prepare: %w (state %s)", inst.ID, ErrInvalidState, inst.state)
	}
	if err := inst.driver.Prepare(inst.priv); err != nil {
		return 0, fmt.Errorf("component %d: prepare: %w", inst.ID, err)
	}
	inst.state = StatePaused
	return StatusOK, nil
}

var triggerTransition = map[State]map[TriggerCmd]State{
	StatePaused: {
		TriggerStart:   StateActive,
		TriggerRelease: StateActive,
	},
	StateActive: {
		TriggerPause: StatePaused,
		TriggerStop:  StatePaused,
	},
}

// nonTransitioning commands act on any live state without moving the
// instance's major state (pre-roll hooks and xrun notification).
var nonTransitioning = map[TriggerCmd]bool{
	TriggerPreStart:   true,
	TriggerPreRelease: true,
	TriggerXrun:       true,
}

// Trigger performs a state-machine transition. It either
// returns success and leaves the instance in the state the state machine
// dictates, or returns an error and leaves the instance in its prior
// state — it never applies a partial transition.
func (inst *Instance) Trigger(cmd TriggerCmd) error {
	if cmd == TriggerReset {
		if err := inst.driver.Reset(inst.priv); err != nil {
			return fmt.Errorf("component %d: reset: %w", inst.ID, err)
		}
		inst.state = StateReady
		return nil
	}

	if nonTransitioning[cmd] {
		if inst.state == StateReady {
			return fmt.Errorf("component %d: trigger %d: %w (state %s)", inst.ID, cmd, ErrInvalidState, inst.state)
		}
		if err := inst.driver.Trigger(inst.priv, cmd); err != nil {
			return fmt.Errorf("component %d: trigger %d: %w", inst.ID, cmd, err)
		}
		return nil
	}

	next, ok := triggerTransition[inst.state][cmd]
	if !ok {
		return fmt.Errorf("component %d: trigger %d: %w (state %s)", inst.ID, cmd, ErrInvalidState, inst.state)
	}
	if err := inst.driver.Trigger(inst.priv, cmd); err != nil {
		return fmt.Errorf("component %d: trigger %d: %w", inst.ID, cmd, err)
	}
	inst.state = next
	return nil
}

// Copy runs one period of processing. It is only legal while ACTIVE.
func (inst *Instance) Copy() (CopyResult, error) {
	if inst.state != StateActive {
		return 0, fmt.Errorf("component %d: copy: %w (state %s)", inst.ID, ErrInvalidState, inst.state)
	}
	result, err := inst.driver.Copy(inst.priv, inst.Sources, inst.Sinks)
	if err != nil {
		return 0, fmt.Errorf("component %d: copy: %w", inst.ID, err)
	}
	return result, nil
}

// SetAttribute sets a runtime control (gain, mute, coefficient blob, ...).
// Legal in any live state.
func (inst *Instance) SetAttribute(key string, value any) error {
	if inst.state == stateFreed {
		return fmt.Errorf("component %d: set_attribute: %w (state %s)", inst.ID, ErrInvalidState, inst.state)
	}
	if err := inst.driver.SetAttribute(inst.priv, key, value); err != nil {
		return fmt.Errorf("component %d: set_attribute: %w", inst.ID, err)
	}
	return nil
}

// Free releases the instance's private state. Only legal from READY;
// idempotent after Reset because Reset always returns to READY.
func (inst *Instance) Free() error {
	if inst.state != StateReady {
		return fmt.Errorf("component %d: free: %w (state %s)", inst.ID, ErrInvalidState, inst.state)
	}
	if err := inst.driver.Free(inst.priv); err != nil {
		return fmt.Errorf("component %d: free: %w", inst.ID, err)
	}
	inst.state = stateFreed
	return nil
}
