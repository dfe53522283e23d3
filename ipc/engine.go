package ipc

import (
	"fmt"
	"sync"

	"github.com/avnera-audio/dspfw/buffer"
	"github.com/avnera-audio/dspfw/component"
	"github.com/avnera-audio/dspfw/pipeline"
)

// Logger is the minimal facade the engine logs through; package logging
// satisfies it.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// PageTableDescriptor names a host physical page list a large payload
// (topology blob, EQ coefficients) can be fetched from.
type PageTableDescriptor struct {
	HostPhysAddr uint64
	ByteCount    uint32
}

// DMAFetch runs a DMA copy from host memory into local memory on a
// dedicated DMA channel owned by the IPC engine, for payloads too large
// to fit in a command's fixed-size mailbox struct.
type DMAFetch func(desc PageTableDescriptor) ([]byte, error)

// Engine is the host IPC subsystem: it owns the component list, buffer
// list, and pipeline list, dispatches mailbox commands against them, and
// queues replies/notifications for the outgoing mailbox.
type Engine struct {
	Components map[uint32]*component.Instance
	Buffers    map[uint32]*buffer.Ring
	Pipelines  map[uint32]*pipeline.Pipeline
	Registry   *component.Registry
	CacheOps   buffer.CacheOps

	LocalCore        uint32
	CrossCoreTrigger pipeline.CrossCoreTrigger

	FetchPage DMAFetch
	Log       Logger

	mu            sync.Mutex
	awaitingReply bool
	notifications []Notification
}

// NewEngine constructs an empty engine ready to dispatch GLB_FW_READY and
// topology commands.
func NewEngine(registry *component.Registry, localCore uint32) *Engine {
	return &Engine{
		Components: make(map[uint32]*component.Instance),
		Buffers:    make(map[uint32]*buffer.Ring),
		Pipelines:  make(map[uint32]*pipeline.Pipeline),
		Registry:   registry,
		LocalCore:  localCore,
		Log:        nopLogger{},
	}
}

// Dispatch handles one incoming mailbox message and returns its reply.
// The mailbox protocol is strict FIFO: the next message is not accepted
// until the current one has been replied to. Dispatch itself is the
// synchronous boundary that enforces this — a caller must not invoke it
// again concurrently for the same engine — and it always returns exactly
// one reply.
func (e *Engine) Dispatch(msg Message) Reply {
	e.mu.Lock()
	if e.awaitingReply {
		e.mu.Unlock()
		return Reply{Header: replyHeader(msg.Header), Error: ErrBusy}
	}
	e.awaitingReply = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.awaitingReply = false
		e.mu.Unlock()
	}()

	err := e.route(msg)
	code := codeOf(err)
	if err != nil && code == ErrInvalidRequest {
		e.Log.Warnf("ipc: %s cmd %d: %v", msg.Header.Class, msg.Header.CommandID, err)
	}
	return Reply{Header: replyHeader(msg.Header), Error: code}
}

func replyHeader(h Header) Header {
	h.Reply = true
	return h
}

func (e *Engine) route(msg Message) error {
	switch msg.Header.Class {
	case ClassTPLG:
		return e.routeTPLG(msg)
	case ClassStream:
		return e.routeStream(msg)
	case ClassComp:
		return e.routeComp(msg)
	case ClassDMATrace:
		return e.routeDMATrace(msg)
	case ClassPM:
		return e.routePM(msg)
	case ClassFWReady:
		return nil
	default:
		return fail(ErrInvalidRequest, fmt.Errorf("ipc: unknown command class %d", msg.Header.Class))
	}
}

func (e *Engine) routeTPLG(msg Message) error {
	switch msg.Header.CommandID {
	case CmdNewComponent:
		req, ok := msg.Decoded.(NewComponentReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleNewComponent(req)
	case CmdFreeComponent:
		id, ok := msg.Decoded.(uint32)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleFreeComponent(id)
	case CmdNewBuffer:
		req, ok := msg.Decoded.(NewBufferReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleNewBuffer(req)
	case CmdFreeBuffer:
		id, ok := msg.Decoded.(uint32)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleFreeBuffer(id)
	case CmdConnect:
		req, ok := msg.Decoded.(ConnectReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleConnect(req)
	case CmdNewPipeline:
		req, ok := msg.Decoded.(NewPipelineReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleNewPipeline(req)
	case CmdPipelineComplete:
		req, ok := msg.Decoded.(PipelineCompleteReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handlePipelineComplete(req)
	case CmdFreePipeline:
		id, ok := msg.Decoded.(uint32)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleFreePipeline(id)
	default:
		return fail(ErrInvalidRequest, fmt.Errorf("ipc: unknown GLB_TPLG command %d", msg.Header.CommandID))
	}
}

func (e *Engine) routeStream(msg Message) error {
	switch msg.Header.CommandID {
	case CmdPCMParams:
		req, ok := msg.Decoded.(PCMParamsReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handlePCMParams(req)
	case CmdTrigger:
		req, ok := msg.Decoded.(TriggerReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleTrigger(req)
	case CmdPCMFree:
		id, ok := msg.Decoded.(uint32)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleFreePipeline(id)
	default:
		return fail(ErrInvalidRequest, fmt.Errorf("ipc: unknown GLB_STREAM command %d", msg.Header.CommandID))
	}
}

func (e *Engine) routeComp(msg Message) error {
	switch msg.Header.CommandID {
	case CmdSetValue, CmdSetData:
		req, ok := msg.Decoded.(SetAttributeReq)
		if !ok {
			return fail(ErrInvalidRequest, errBadPayload)
		}
		return e.handleSetAttribute(req)
	default:
		return fail(ErrInvalidRequest, fmt.Errorf("ipc: unknown GLB_COMP command %d", msg.Header.CommandID))
	}
}

// routeDMATrace accepts every GLB_DMA_TRACE command and reports success;
// it performs no validation and configures no trace DMA stream. The
// trace ring itself lives in package trace.
func (e *Engine) routeDMATrace(msg Message) error {
	return nil
}

// routePM accepts every GLB_PM command and reports success; it keeps no
// power-state bookkeeping and makes no platform.Power call.
func (e *Engine) routePM(msg Message) error {
	return nil
}

var errBadPayload = fmt.Errorf("ipc: payload did not decode to the expected command type")

// PostNotification enqueues a DSP-initiated notification.
func (e *Engine) PostNotification(n Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = append(e.notifications, n)
}

// DrainNotifications removes and returns all queued notifications, FIFO.
// A caller draining the outgoing mailbox should always flush a reply
// first if one is pending — notifications are preemptible by a reply
// that's urgently due.
func (e *Engine) DrainNotifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notifications
	e.notifications = nil
	return out
}

// FetchLargePayload runs the blocking page-table DMA fetch for a command
// whose payload exceeded the mailbox.
func (e *Engine) FetchLargePayload(desc PageTableDescriptor) ([]byte, error) {
	if e.FetchPage == nil {
		return nil, fail(ErrInvalidRequest, fmt.Errorf("ipc: no page-table DMA fetch configured"))
	}
	data, err := e.FetchPage(desc)
	if err != nil {
		return nil, fail(ErrOutOfMemory, err)
	}
	return data, nil
}
