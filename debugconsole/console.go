// Package debugconsole backs the GLB_GDB_DEBUG command class with an
// interactive console attached over a pseudo-terminal, the way an
// operator would attach gdbserver to inspect live pipeline/component
// state without going through the host IPC mailbox at all.
package debugconsole

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"

	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/pipeline"
	"github.com/avnera-audio/dspfw/platform"
)

// Console is one pty-attached debug shell. The slave side's path is
// logged on open; an operator connects to it with any terminal program
// (screen, minicom, cu).
type Console struct {
	ptmx ptyFile
	pts  ptyFile

	engine *ipc.Engine
	log    platform.Log

	mu     sync.Mutex
	closed bool
}

// ptyFile is the subset of *os.File the console needs; it exists only so
// tests can substitute an in-memory pipe instead of opening a real pty.
type ptyFile interface {
	io.ReadWriteCloser
	Name() string
}

// New opens a pty and starts serving commands against engine in the
// background. Close tears down both ends.
func New(engine *ipc.Engine, log platform.Log) (*Console, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("debugconsole: open pty: %w", err)
	}
	c := &Console{ptmx: ptmx, pts: pts, engine: engine, log: log}
	if log != nil {
		log.Emit(platform.LogInfo, platform.ClassIPC, "debugconsole: attach at "+pts.Name())
	}
	go c.serve()
	return c, nil
}

// SlaveName is the path an operator connects a terminal program to.
func (c *Console) SlaveName() string { return c.pts.Name() }

// Close shuts down both ends of the pty.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	ptmxErr := c.ptmx.Close()
	ptsErr := c.pts.Close()
	if ptmxErr != nil {
		return ptmxErr
	}
	return ptsErr
}

func (c *Console) serve() {
	scanner := bufio.NewScanner(c.ptmx)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := c.eval(line)
		fmt.Fprintln(c.ptmx, reply)
	}
}

func (c *Console) eval(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "help":
		return "commands: dump pipeline <id> | dump component <id> | list pipelines | list components"
	case "list":
		if len(fields) < 2 {
			return "usage: list pipelines|components"
		}
		return c.list(fields[1])
	case "dump":
		if len(fields) < 3 {
			return "usage: dump pipeline|component <id>"
		}
		id, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return "bad id: " + fields[2]
		}
		return c.dump(fields[1], uint32(id))
	default:
		return "unknown command: " + fields[0]
	}
}

func (c *Console) list(what string) string {
	switch what {
	case "pipelines":
		var ids []string
		for id := range c.engine.Pipelines {
			ids = append(ids, strconv.FormatUint(uint64(id), 10))
		}
		return strings.Join(ids, " ")
	case "components":
		var ids []string
		for id := range c.engine.Components {
			ids = append(ids, strconv.FormatUint(uint64(id), 10))
		}
		return strings.Join(ids, " ")
	default:
		return "unknown: " + what
	}
}

func (c *Console) dump(what string, id uint32) string {
	switch what {
	case "pipeline":
		p, ok := c.engine.Pipelines[id]
		if !ok {
			return "no such pipeline"
		}
		return dumpPipeline(p)
	case "component":
		inst, ok := c.engine.Components[id]
		if !ok {
			return "no such component"
		}
		return dumpComponent(inst)
	default:
		return "unknown: " + what
	}
}

func dumpPipeline(p *pipeline.Pipeline) string {
	return fmt.Sprintf("pipeline %d: core=%d period_us=%d domain=%v state=%v members=%d",
		p.ID, p.Core, p.PeriodUs, p.TimeDomain, p.RunState, len(p.Members))
}

func dumpComponent(inst *component.Instance) string {
	return fmt.Sprintf("component %d: kind=%v core=%d pipeline=%d sources=%d sinks=%d state=%v",
		inst.ID, inst.Kind, inst.Core, inst.PipelineID, len(inst.Sources), len(inst.Sinks), inst.State())
}
