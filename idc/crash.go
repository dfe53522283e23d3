package idc

// CrashReason names why a secondary core sent MSG_SECONDARY_CORE_CRASHED.
type CrashReason int

const (
	CrashWatchdog CrashReason = iota
	CrashException
)

func (r CrashReason) String() string {
	if r == CrashWatchdog {
		return "watchdog"
	}
	return "exception"
}

// CrashReport is the payload of a MSG_SECONDARY_CORE_CRASHED message.
type CrashReport struct {
	Core   uint32
	Reason CrashReason
}

// ReportCrash sends a secondary core's crash notification to the primary
// core. It is always NonBlocking: a core that just crashed cannot be
// trusted to still be alive to observe a blocking handshake's done flag,
// so the report is fire-and-forget, same as a dying interrupt handler
// flagging trouble and moving on.
//
// The primary's dispatcher for MsgSecondaryCoreCrashed is expected to mark
// every pipeline owned by the crashed core ERROR_STOP and post one
// crash notification to the host per such pipeline; that fan-out is
// wired by the core package, not here.
func ReportCrash(h *Hub, from, primary uint32, reason CrashReason) error {
	report := CrashReport{Core: from, Reason: reason}
	_, err := h.Send(from, primary, Message{
		Header: Header{Type: MsgSecondaryCoreCrashed},
		Size:   uint32(len(encodeCrashReport(report))),
		Payload: encodeCrashReport(report),
	}, NonBlocking)
	return err
}

func encodeCrashReport(r CrashReport) []byte {
	return []byte{
		byte(r.Core), byte(r.Core >> 8), byte(r.Core >> 16), byte(r.Core >> 24),
		byte(r.Reason),
	}
}

// DecodeCrashReport is the dispatcher-side counterpart of
// encodeCrashReport.
func DecodeCrashReport(payload []byte) (CrashReport, bool) {
	if len(payload) < 5 {
		return CrashReport{}, false
	}
	core := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24
	return CrashReport{Core: core, Reason: CrashReason(payload[4])}, true
}
