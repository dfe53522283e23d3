// Command dspfw-ctl is a small companion tool that attaches to a running
// dspfw-sim instance's debug console (the pty path it prints on boot)
// and speaks its line protocol: connect to a transport, send a command,
// print what comes back. One-shot by default; with no command it drops
// into an interactive REPL.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

func main() {
	var consolePath = pflag.StringP("console", "c", "", "Path to the dspfw-sim debug console pty (printed on simulator boot).")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dspfw-ctl - drive a running dspfw-sim debug console.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dspfw-ctl --console /dev/pts/N [command ...]\n\n")
		fmt.Fprintf(os.Stderr, "With no command, reads commands from stdin until EOF.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *consolePath == "" {
		fmt.Fprintln(os.Stderr, "dspfw-ctl: --console is required")
		pflag.Usage()
		os.Exit(1)
	}

	conn, err := os.OpenFile(*consolePath, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dspfw-ctl: open %s: %v\n", *consolePath, err)
		os.Exit(1)
	}
	defer conn.Close()

	if args := pflag.Args(); len(args) > 0 {
		if err := runOne(conn, strings.Join(args, " ")); err != nil {
			fmt.Fprintf(os.Stderr, "dspfw-ctl: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := repl(conn); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "dspfw-ctl: %v\n", err)
		os.Exit(1)
	}
}

// runOne sends a single command line and prints the one reply line back.
func runOne(conn io.ReadWriter, command string) error {
	if _, err := fmt.Fprintln(conn, command); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read reply: %w", err)
	}
	fmt.Println(strings.TrimRight(reply, "\n"))
	return nil
}

// replStdin is the source of REPL commands; a package var so tests can
// substitute a fixed script instead of the real stdin.
var replStdin io.Reader = os.Stdin

// repl reads commands from replStdin, one per line, forwarding each to
// the console and printing its reply, until it closes.
func repl(conn io.ReadWriter) error {
	in := bufio.NewScanner(replStdin)
	out := bufio.NewReader(conn)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(conn, line); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
		reply, err := out.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read reply: %w", err)
		}
		fmt.Println(strings.TrimRight(reply, "\n"))
	}
	return in.Err()
}
