// Package logging is the core's single log facade. Every subsystem logs
// through a Facade; Facade.Emit matches platform.Log so the same call
// that lands on the console sink also feeds the debug-stream ring
// (package trace).
package logging

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/avnera-audio/dspfw/platform"
)

// Sink receives every emitted record, in addition to the console. Package
// trace's Ring implements this to mirror records into the debug-stream
// slot.
type Sink interface {
	Write(level platform.LogLevel, class platform.LogClass, msg string, params []uint32)
}

// Facade is the concrete platform.Log backend used everywhere in the
// core.
type Facade struct {
	console   *charmlog.Logger
	timestamp *strftime.Strftime
	sinks     []Sink
}

var _ platform.Log = (*Facade)(nil)

// New builds a console-backed facade. The console stamps each record in
// charmbracelet/log's own default time format; the "%Y-%m-%d %H:%M:%S"
// strftime pattern compiled here is kept on the facade but not applied
// to console output.
func New() *Facade {
	console := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})
	ts, err := strftime.New("%Y-%m-%d %H:%M:%S")
	if err != nil {
		// A literal format string can't fail to compile; treat a failure as
		// a programmer error.
		panic(err)
	}
	return &Facade{console: console, timestamp: ts}
}

// AddSink registers an additional destination for every emitted record.
func (f *Facade) AddSink(s Sink) {
	f.sinks = append(f.sinks, s)
}

var classNames = map[platform.LogClass]string{
	platform.ClassComponent: "component", platform.ClassBuffer: "buffer",
	platform.ClassPipeline: "pipeline", platform.ClassScheduler: "scheduler",
	platform.ClassIPC: "ipc", platform.ClassIDC: "idc", platform.ClassPlatform: "platform",
}

// Emit logs one record, carrying its level, class, and up to four 32-bit
// parameters, to the console and to every registered sink.
func (f *Facade) Emit(level platform.LogLevel, class platform.LogClass, msg string, params ...uint32) {
	fields := make([]any, 0, 2+2*len(params))
	fields = append(fields, "class", classNames[class])
	for i, p := range params {
		fields = append(fields, fieldName(i), p)
	}

	switch level {
	case platform.LogDebug:
		f.console.Debug(msg, fields...)
	case platform.LogInfo:
		f.console.Info(msg, fields...)
	case platform.LogWarn:
		f.console.Warn(msg, fields...)
	case platform.LogError:
		f.console.Error(msg, fields...)
	}

	for _, sink := range f.sinks {
		sink.Write(level, class, msg, params)
	}
}

func fieldName(i int) string {
	names := [...]string{"p0", "p1", "p2", "p3"}
	if i < len(names) {
		return names[i]
	}
	return "pN"
}

// Warnf and Errorf adapt Facade to ipc.Logger without every caller having
// to spell out a LogClass for ad hoc messages.
func (f *Facade) Warnf(format string, args ...any) { f.console.Warnf(format, args...) }
func (f *Facade) Errorf(format string, args ...any) { f.console.Errorf(format, args...) }
