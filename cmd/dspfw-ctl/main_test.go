package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback echoes a fixed reply for anything written to it, mirroring
// what a debugconsole.Console would send back for one command.
type loopback struct {
	written bytes.Buffer
	reader  *strings.Reader
	reply   string
}

func (l *loopback) Write(p []byte) (int, error) { return l.written.Write(p) }

func (l *loopback) Read(p []byte) (int, error) {
	if l.reader == nil {
		l.reader = strings.NewReader(l.reply)
	}
	return l.reader.Read(p)
}

func TestRunOneWritesCommandAndPrintsReply(t *testing.T) {
	conn := &loopback{reply: "pipeline 1: core=0 period_us=1000\n"}
	err := runOne(conn, "dump pipeline 1")
	require.NoError(t, err)
	assert.Equal(t, "dump pipeline 1\n", conn.written.String())
}

func TestRunOneToleratesReplyWithoutTrailingNewline(t *testing.T) {
	conn := &loopback{reply: "ok"}
	err := runOne(conn, "help")
	require.NoError(t, err)
}

func TestReplReadsUntilEOF(t *testing.T) {
	conn := &loopback{reply: "1\n"}
	in := strings.NewReader("list pipelines\n")
	old := replStdin
	replStdin = in
	defer func() { replStdin = old }()

	err := repl(conn)
	assert.True(t, err == nil || err == io.EOF)
}
