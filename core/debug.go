package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// SyncEvent captures a sync-tracking event for post-mortem analysis
type SyncEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Main-loop clock at the event (microseconds)
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtSignalLocked = 1 // First field marker after boot or loss (v1=fields total, v2=losses)
	EvtSignalLost   = 2 // Timer overflow without a sync edge (v1=field line, v2=loss count)
	EvtLineCeiling  = 3 // Field line counter hit MaxFieldLines (v1=mode)
	EvtModeChange   = 4 // Active mode changed (v1=old, v2=new)
	EvtNVMError     = 5 // Persisting the mode failed (v1=mode)
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	// Event ring buffer, written from interrupt context
	eventRing     [EventRingSize]SyncEvent
	eventRingHead uint8

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from an interrupt handler; use RecordEvent there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordEvent captures an event in the ring buffer.
// Allocation-free and safe to call from both the sync edge handler and
// the main loop.
func RecordEvent(eventType uint8, value1, value2 uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	idx := eventRingHead
	eventRing[idx] = SyncEvent{
		EventType: eventType,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns a copy of the recorded events, oldest first
func Events() []SyncEvent {
	state := disableInterrupts()
	ring := eventRing
	start := eventRingHead
	restoreInterrupts(state)

	out := make([]SyncEvent, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := ring[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns a short label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtSignalLocked:
		return "SIGNAL_LOCKED"
	case EvtSignalLost:
		return "SIGNAL_LOST!"
	case EvtLineCeiling:
		return "LINE_CEILING"
	case EvtModeChange:
		return "MODE_CHANGE"
	case EvtNVMError:
		return "NVM_ERROR"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents outputs the event ring through the debug writer
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[SYNC] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[SYNC] " + EventName(evt.EventType) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[SYNC] === End Dump ===")
}

// ClearEvents clears the event ring
func ClearEvents() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range eventRing {
		eventRing[i] = SyncEvent{}
	}
	eventRingHead = 0
}
