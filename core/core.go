// Package core boots the process-wide singletons every other package
// only takes as already-constructed dependencies, in a fixed order: heap
// → cache lines → platform clock → timers → scheduler → IPC → IDC →
// components. Each later stage assumes the earlier ones are already
// live, so Boot constructs them in that order and nothing else. There is
// no runtime teardown; a reboot replaces the whole process.
package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/fault"
	"github.com/avnera-audio/dspfw/idc"
	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/logging"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
	"github.com/avnera-audio/dspfw/platform/sim"
	"github.com/avnera-audio/dspfw/scheduler"
)

// TraceRing is the narrow interface core needs from package trace,
// declared here instead of imported directly so core doesn't need to
// know trace's concrete Ring type to wire it as a logging.Sink.
type TraceRing interface {
	Write(level platform.LogLevel, class platform.LogClass, msg string, params []uint32)
}

// Core is one DSP core's booted runtime: its slice of the platform
// facade, its own scheduler pair, and (on the primary core) the IPC
// engine that talks to the host.
type Core struct {
	ID       uint32
	Primary  bool
	Platform *platform.Platform
	Log      *logging.Facade
	Trace    TraceRing
	Fault    *fault.Handler
	LowLat   *scheduler.LowLatencyScheduler
	EDF      *scheduler.EDFScheduler
	Engine   *ipc.Engine // nil on secondary cores
	Hub      *idc.Hub
	Registry *component.Registry

	// Dialect is the wire schema PollHostMailbox decodes the DSP box
	// under. Only meaningful on the primary core.
	Dialect ipc.Dialect

	// Pipelines is shared across every core booted in the same process:
	// on real hardware each pipeline struct lives in memory addressable
	// from any core, just through the shared-memory windows rather than a
	// Go map. The primary core's Engine owns the map; secondary cores are
	// handed the same reference at Boot.
	Pipelines map[uint32]*pipeline.Pipeline

	mu     sync.Mutex
	booted bool
	arena  *sim.Arena
}

// BootConfig selects what a booting core wires together.
type BootConfig struct {
	ID      uint32
	Primary bool
	Hub     *idc.Hub // shared across every core in the process
	Trace   TraceRing
	Sim     sim.Config

	// Dialect selects the wire schema the primary core's mailbox speaks.
	// Ignored on a secondary core, which has no host mailbox to poll.
	Dialect ipc.Dialect

	// Pipelines is required for a non-primary core: the same map the
	// primary core's Engine owns, so a cross-core trigger can reach a
	// pipeline this core hosts.
	Pipelines map[uint32]*pipeline.Pipeline
}

// Boot constructs one core's singletons in the documented order and
// returns it ready to accept IPC dispatch (if primary) and IDC messages.
func Boot(cfg BootConfig) (*Core, error) {
	// heap: the arena backs every mailbox/cache window.
	platformFacade, arena, log, err := sim.New(cfg.Sim)
	if err != nil {
		return nil, fmt.Errorf("core: boot core %d: platform: %w", cfg.ID, err)
	}
	if cfg.Trace != nil {
		log.AddSink(cfg.Trace)
	}

	// cache lines: arena already implements platform.Cache; nothing
	// further to initialise.

	// platform clock / timers.
	if err := platformFacade.Timer.Start(); err != nil {
		arena.Close()
		return nil, fmt.Errorf("core: boot core %d: timer start: %w", cfg.ID, err)
	}

	faultHandler := &fault.Handler{
		Core: cfg.ID, Mailbox: platformFacade.Mailbox, Cache: platformFacade.Cache, Power: platformFacade.Power,
	}

	// scheduler.
	lowLat := &scheduler.LowLatencyScheduler{Core: cfg.ID, Domain: scheduler.DomainTimer, Fault: faultHandler}
	edf := &scheduler.EDFScheduler{Core: cfg.ID, Fault: faultHandler}

	registry := component.NewRegistry()

	c := &Core{
		ID: cfg.ID, Primary: cfg.Primary, Platform: platformFacade, Log: log,
		Trace: cfg.Trace, Fault: faultHandler, LowLat: lowLat, EDF: edf,
		Hub: cfg.Hub, Registry: registry, arena: arena, Dialect: cfg.Dialect,
	}

	// IPC: only the primary core talks to the host.
	if cfg.Primary {
		engine := ipc.NewEngine(registry, cfg.ID)
		engine.CacheOps = cacheOpsFrom(platformFacade.Cache)
		engine.Log = log
		c.Engine = engine
		c.Pipelines = engine.Pipelines
	} else {
		c.Pipelines = cfg.Pipelines
	}

	// IDC: register this core's dispatcher and boot probe on the shared
	// hub so cross-core sends can reach it.
	if cfg.Hub != nil {
		cfg.Hub.RegisterCore(cfg.ID, c.dispatchIDC)
		cfg.Hub.RegisterBootProbe(cfg.ID, c.isBooted)
		if cfg.Primary {
			c.Engine.CrossCoreTrigger = idc.SendPipelineTrigger(cfg.Hub, cfg.ID)
		}
	}

	c.mu.Lock()
	c.booted = true
	c.mu.Unlock()

	return c, nil
}

func (c *Core) isBooted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.booted
}

// Close stops the timer, unregisters the core from its IDC hub and
// unmaps the arena. There is no other teardown path; tests and
// cmd/dspfw-sim call it on the way out.
func (c *Core) Close() error {
	_ = c.Platform.Timer.Stop()
	if c.Hub != nil {
		c.Hub.Unregister(c.ID)
	}
	return c.arena.Close()
}

// RunReadyTasks drains both schedulers once, the way a core's main loop
// would on each timer tick.
func (c *Core) RunReadyTasks(now time.Time) {
	c.LowLat.Run(now)
	c.EDF.Run(now)
}

// cacheOpsFrom adapts a platform.Cache to buffer.CacheOps. A cross-core
// buffer.Ring allocates its own Go slice rather than a window into the
// arena, so these calls don't flush the literal bytes a real SoC's shared
// DRAM window would — they exist to exercise the same flush-before-
// publish discipline Arena's own Flush/Invalidate already do for the
// mailbox windows, for the same single-process reason documented there.
func cacheOpsFrom(cache platform.Cache) buffer.CacheOps {
	return buffer.CacheOps{
		Flush:      cache.Flush,
		Invalidate: cache.Invalidate,
	}
}
