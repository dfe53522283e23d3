// Package config loads a declarative pipeline topology from YAML and
// replays it as a sequence of the same IPC commands a real host's
// topology loader would send. It's the simulator's substitute for the
// signed boot-manifest and topology-binary parsing a real boot loader
// does.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avnera-audio/dspfw/audioformat"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
)

// Format mirrors audioformat.Format with YAML-friendly field names.
type Format struct {
	Frame        string `yaml:"frame"`     // "s16", "s24_in_s32", "s32"
	RateHz       uint32 `yaml:"rate_hz"`
	Channels     uint16 `yaml:"channels"`
	ValidBits    uint8  `yaml:"valid_bits"`
	ContainerBits uint8 `yaml:"container_bits"`
	Planar       bool   `yaml:"planar"`
}

// Resolve converts the YAML form to audioformat.Format.
func (f Format) Resolve() (audioformat.Format, error) {
	var frame audioformat.FrameFormat
	switch f.Frame {
	case "s16":
		frame = audioformat.S16
	case "s24_in_s32":
		frame = audioformat.S24In32
	case "s32":
		frame = audioformat.S32
	default:
		return audioformat.Format{}, fmt.Errorf("config: unknown frame format %q", f.Frame)
	}
	interleaving := audioformat.Interleaved
	if f.Planar {
		interleaving = audioformat.Planar
	}
	return audioformat.Format{
		Frame: frame, RateHz: f.RateHz, Channels: f.Channels,
		ValidBits: f.ValidBits, ContainerBits: f.ContainerBits, Interleaving: interleaving,
	}, nil
}

// Component describes one new_component command.
type Component struct {
	ID         uint32 `yaml:"id"`
	Kind       string `yaml:"kind"`
	Core       uint32 `yaml:"core"`
	PipelineID uint32 `yaml:"pipeline_id"`
	ABIVersion uint32 `yaml:"abi_version"`
	Channels   uint32 `yaml:"channels"`
}

// Buffer describes one new_buffer command.
type Buffer struct {
	ID    uint32 `yaml:"id"`
	SizeB uint32 `yaml:"size_bytes"`
	Format Format `yaml:"format"`
	CrossCore bool `yaml:"cross_core"`
	// Async requests the DP-queue ring flavour, for a producer/consumer
	// pair not locked to the same period cadence (a host endpoint's ring,
	// most commonly).
	Async bool `yaml:"async"`
}

// Connection describes one connect(producer, buffer, consumer) command.
type Connection struct {
	Producer uint32 `yaml:"producer"`
	Buffer   uint32 `yaml:"buffer"`
	Consumer uint32 `yaml:"consumer"`
}

// Pipeline describes one new_pipeline + pipeline_complete pair.
type Pipeline struct {
	ID       uint32 `yaml:"id"`
	Core     uint32 `yaml:"core"`
	PeriodUs uint32 `yaml:"period_us"`
	Priority uint32 `yaml:"priority"`
	Domain   string `yaml:"domain"` // "timer" or "dma"
	SourceID uint32 `yaml:"source_id"`
	SinkID   uint32 `yaml:"sink_id"`
}

// ResolveDomain maps the YAML domain name to pipeline.TimeDomain.
func (p Pipeline) ResolveDomain() (pipeline.TimeDomain, error) {
	switch p.Domain {
	case "timer":
		return pipeline.TimerDriven, nil
	case "dma":
		return pipeline.DMATickDriven, nil
	default:
		return 0, fmt.Errorf("config: pipeline %d: unknown domain %q", p.ID, p.Domain)
	}
}

// PCMParams describes one pcm_params command.
type PCMParams struct {
	PipelineID      uint32 `yaml:"pipeline_id"`
	Format          Format `yaml:"format"`
	FramesPerPeriod uint32 `yaml:"frames_per_period"`
	Direction       string `yaml:"direction"` // "playback" or "capture"
}

// ResolveDirection maps the YAML direction name to platform.Direction.
func (p PCMParams) ResolveDirection() (platform.Direction, error) {
	switch p.Direction {
	case "playback":
		return platform.DirectionPlayback, nil
	case "capture":
		return platform.DirectionCapture, nil
	default:
		return 0, fmt.Errorf("config: pcm_params %d: unknown direction %q", p.PipelineID, p.Direction)
	}
}

// Topology is the full declarative graph a simulator boots with.
type Topology struct {
	Components  []Component  `yaml:"components"`
	Buffers     []Buffer     `yaml:"buffers"`
	Connections []Connection `yaml:"connections"`
	Pipelines   []Pipeline   `yaml:"pipelines"`
	PCMParams   []PCMParams  `yaml:"pcm_params"`
}

// Load reads and parses a topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &t, nil
}

// componentKinds maps the YAML kind string to component.Kind, mirroring
// component.Kind.String() in reverse.
var componentKinds = map[string]component.Kind{
	"host": component.KindHost, "dai": component.KindDAI, "mixer": component.KindMixer,
	"mux": component.KindMux, "volume": component.KindVolume, "src": component.KindSRC,
	"eq-fir": component.KindEQFIR, "eq-iir": component.KindEQIIR, "drc": component.KindDRC,
	"tone": component.KindTone, "smart-amp": component.KindSmartAmp, "dcblock": component.KindDCBlock,
	"crossover": component.KindCrossover, "tdfb": component.KindTDFB, "mfcc": component.KindMFCC,
	"aec": component.KindAEC, "kpb": component.KindKPB, "kwd-detect": component.KindKWDDetect,
	"pipeline-endpoint": component.KindPipelineEndpoint,
}

// ResolveKind maps the YAML kind string to component.Kind.
func (c Component) ResolveKind() (component.Kind, error) {
	k, ok := componentKinds[c.Kind]
	if !ok {
		return 0, fmt.Errorf("config: component %d: unknown kind %q", c.ID, c.Kind)
	}
	return k, nil
}
