// Command dspfw-sim is the host development harness: it boots one
// primary core (and optionally a handful of secondary cores sharing its
// IDC hub), replays a YAML topology fixture against the primary's IPC
// engine, and drives both schedulers off a wall-clock ticker in place of
// the real platform clock's timer ISR. Its flag parsing and
// signal-driven run loop follow the usual top-level shape for a
// single-binary audio daemon, minus any cgo audio pipeline.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/avnera-audio/dspfw/config"
	"github.com/avnera-audio/dspfw/core"
	"github.com/avnera-audio/dspfw/debugconsole"
	"github.com/avnera-audio/dspfw/discovery"
	"github.com/avnera-audio/dspfw/idc"
	"github.com/avnera-audio/dspfw/ipc"
	"github.com/avnera-audio/dspfw/platform"
	"github.com/avnera-audio/dspfw/platform/sim"
)

func main() {
	var topologyPath = pflag.StringP("topology", "t", "", "YAML topology fixture to replay against the primary core on boot.")
	var secondaryCores = pflag.IntP("secondary-cores", "n", 0, "Number of secondary cores to boot alongside the primary.")
	var arenaBytes = pflag.Int("arena-bytes", 4<<20, "Size of the mmap'd arena backing the mailbox/cache windows.")
	var discoverDAIs = pflag.Bool("discover-dais", true, "Enumerate host sound cards as DAI instances at boot.")
	var tickInterval = pflag.Duration("tick", 1*time.Millisecond, "Interval between scheduler ticks.")
	var enableConsole = pflag.BoolP("console", "c", true, "Open a pty-backed debug console (GLB_GDB_DEBUG).")
	var dialectFlag = pflag.String("dialect", "major4", "IPC wire dialect the primary core's mailbox speaks: major3 or major4.")
	var advertise = pflag.BoolP("advertise", "a", false, "Advertise the simulator's IPC endpoint over mDNS.")
	var advertisePort = pflag.Int("advertise-port", 17301, "Port to advertise (informational only; no socket listens on it).")
	var serviceName = pflag.String("name", "", "mDNS service name (default: dspfw-sim-core<N>).")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dspfw-sim - host development harness for the DSP firmware core.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dspfw-sim [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var dialect ipc.Dialect
	switch *dialectFlag {
	case "major3":
		dialect = ipc.DialectMajor3
	case "major4":
		dialect = ipc.DialectMajor4
	default:
		fmt.Fprintf(os.Stderr, "dspfw-sim: unknown --dialect %q (want major3 or major4)\n", *dialectFlag)
		os.Exit(1)
	}

	hub := idc.NewHub()
	simCfg := sim.DefaultConfig()
	simCfg.ArenaBytes = *arenaBytes
	simCfg.DiscoverDAIs = *discoverDAIs

	primary, err := core.Boot(core.BootConfig{ID: 0, Primary: true, Hub: hub, Sim: simCfg, Dialect: dialect})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dspfw-sim: boot primary core: %v\n", err)
		os.Exit(1)
	}
	defer primary.Close()

	cores := []*core.Core{primary}
	for i := 0; i < *secondaryCores; i++ {
		id := uint32(i + 1)
		secCfg := simCfg
		secCfg.DiscoverDAIs = false // only the primary owns the host's sound cards
		sc, err := core.Boot(core.BootConfig{ID: id, Primary: false, Hub: hub, Sim: secCfg, Pipelines: primary.Pipelines})
		if err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-sim: boot secondary core %d: %v\n", id, err)
			os.Exit(1)
		}
		defer sc.Close()
		cores = append(cores, sc)
	}
	primary.Log.Emit(platform.LogInfo, platform.ClassPlatform, "booted cores", uint32(len(cores)))

	if *topologyPath != "" {
		topo, err := config.Load(*topologyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-sim: load topology: %v\n", err)
			os.Exit(1)
		}
		if err := config.Apply(primary.Engine, topo); err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-sim: apply topology: %v\n", err)
			os.Exit(1)
		}
	}

	if *enableConsole {
		console, err := debugconsole.New(primary.Engine, primary.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-sim: open debug console: %v\n", err)
			os.Exit(1)
		}
		defer console.Close()
		fmt.Fprintf(os.Stderr, "dspfw-sim: debug console attached at %s\n", console.SlaveName())
	}

	if *advertise {
		name := *serviceName
		if name == "" {
			name = discovery.DefaultName(primary.ID)
		}
		adv, err := discovery.Announce(name, *advertisePort, primary.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-sim: mDNS announce: %v\n", err)
			os.Exit(1)
		}
		defer adv.Close()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if _, err := primary.PollHostMailbox(); err != nil {
				primary.Log.Emit(platform.LogError, platform.ClassIPC, "mailbox poll failed")
			}
			for _, c := range cores {
				c.RunReadyTasks(now)
			}
		case <-sigc:
			return
		}
	}
}
