package idc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avnera-audio/dspfw/component"
)

func TestSendBlockingRoundTrip(t *testing.T) {
	h := NewHub()
	h.RegisterCore(1, func(msg Message) (int32, error) {
		return 7, nil
	})
	status, err := h.Send(0, 1, Message{Header: Header{Type: MsgComponentOp}}, Blocking)
	require.NoError(t, err)
	assert.EqualValues(t, 7, status)
}

// TestSendBlockingTimesOut checks that a target core stuck with
// interrupts disabled never replies, and the send fails at exactly
// IDC_TIMEOUT, with a log entry naming the target core.
func TestSendBlockingTimesOut(t *testing.T) {
	h := NewHub()
	h.RegisterCore(2, func(msg Message) (int32, error) {
		select {} // simulates a core in an infinite loop with interrupts disabled
	})
	var timedOutCore uint32
	h.OnTimeout = func(from, to uint32, msg Message) { timedOutCore = to }

	start := time.Now()
	_, err := h.Send(0, 2, Message{Header: Header{Type: MsgIPC}}, Blocking)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, Timeout)
	assert.EqualValues(t, 2, timedOutCore)
}

func TestSendNonBlockingReturnsImmediately(t *testing.T) {
	h := NewHub()
	called := make(chan struct{})
	h.RegisterCore(1, func(msg Message) (int32, error) {
		close(called)
		return 0, nil
	})
	status, err := h.Send(0, 1, Message{Header: Header{Type: MsgNotify}}, NonBlocking)
	require.NoError(t, err)
	assert.EqualValues(t, 0, status)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("dispatcher was never invoked")
	}
}

func TestPayloadTooLargeRejected(t *testing.T) {
	h := NewHub()
	h.RegisterCore(1, func(msg Message) (int32, error) { return 0, nil })
	_, err := h.Send(0, 1, Message{Payload: make([]byte, MaxPayloadSize+1)}, Blocking)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPowerUpPollsBootProbe(t *testing.T) {
	h := NewHub()
	var ready bool
	h.RegisterBootProbe(3, func() bool { return ready })
	go func() {
		time.Sleep(2 * PowerUpPollInterval)
		ready = true
	}()
	_, err := h.Send(0, 3, Message{}, ModePowerUp)
	require.NoError(t, err)
}

// TestCrossCorePipelineTrigger checks that core 0 delegates a pipeline
// trigger to core 1 via MSG_PPL_STATE and receives a single successful
// reply within the timeout.
func TestCrossCorePipelineTrigger(t *testing.T) {
	h := NewHub()
	var triggered []component.TriggerCmd
	h.RegisterCore(1, func(msg Message) (int32, error) {
		return DispatchPipelineState(msg, func(pipelineID uint32, cmd component.TriggerCmd) error {
			assert.EqualValues(t, 2, pipelineID)
			triggered = append(triggered, cmd)
			return nil
		})
	})

	triggerFn := SendPipelineTrigger(h, 0)
	require.NoError(t, triggerFn(1, 2, component.TriggerStart))
	assert.Equal(t, []component.TriggerCmd{component.TriggerStart}, triggered)
}

func TestReportCrashDeliversFireAndForget(t *testing.T) {
	h := NewHub()
	received := make(chan CrashReport, 1)
	h.RegisterCore(0, func(msg Message) (int32, error) {
		report, ok := DecodeCrashReport(msg.Payload)
		require.True(t, ok)
		received <- report
		return 0, nil
	})

	require.NoError(t, ReportCrash(h, 2, 0, CrashWatchdog))

	select {
	case r := <-received:
		assert.EqualValues(t, 2, r.Core)
		assert.Equal(t, CrashWatchdog, r.Reason)
	case <-time.After(time.Second):
		t.Fatal("crash report was never delivered")
	}
}
