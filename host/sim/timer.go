// Package sim runs the cropper core against a simulated composite sync
// signal. Timer stands in for the sync timer hardware, GPIO and EEPROM for
// the board, and Signal generates the sync pulses of a video standard.
package sim

import "retrocrop/core"

// CounterPeriod is the number of ticks before the 16-bit counter overflows
const CounterPeriod = 1 << 16

// Span is one blanking interval seen on the simulated video switch.
// From and To are ticks after the leading edge of the line's sync pulse.
type Span struct {
	Field  int
	Pulse  int // Pulse index within the field
	From   uint32
	To     uint32
	Forced bool // Ended by RestorePhase or a disconnect instead of a compare match
}

// Timer implements core.SyncTimer on a virtual clock. Reads of the
// counter are free; each SyncReleased poll costs PollCost ticks, roughly
// what one iteration of the polling loop takes on the real chip.
type Timer struct {
	PollCost uint64

	now       uint64 // Absolute ticks
	lineStart uint64 // Absolute tick of the last Restart
	pulseEnd  uint64
	captured  core.Tick

	compareAt uint64
	armed     bool
	toggle    bool
	blanking  bool
	blankFrom uint64

	// Labels of the pulse the open span belongs to
	blankField, blankPulse int

	field, pulse int
	spans        []Span
	overflows    int
	onOverflow   func()
}

// NewTimer returns a timer at tick zero with the blanking output disconnected
func NewTimer() *Timer {
	return &Timer{PollCost: 8}
}

// Now returns the virtual clock
func (t *Timer) Now() uint64 {
	return t.now
}

// Spans returns the blanking intervals recorded so far
func (t *Timer) Spans() []Span {
	return t.spans
}

// ResetSpans drops the recorded intervals
func (t *Timer) ResetSpans() {
	t.spans = t.spans[:0]
}

// Blanking reports the current state of the video switch
func (t *Timer) Blanking() bool {
	return t.blanking
}

// Overflows returns how many times the counter overflowed
func (t *Timer) Overflows() int {
	return t.overflows
}

// AdvanceTo runs the clock forward, firing compare matches and overflows
// on the way
func (t *Timer) AdvanceTo(at uint64) {
	for t.lineStart+CounterPeriod <= at {
		wrap := t.lineStart + CounterPeriod
		t.settle(wrap)
		t.overflows++
		if t.onOverflow != nil {
			t.onOverflow()
		}
		t.lineStart = wrap
	}
	t.settle(at)
}

// startPulse prepares the timer for a sync pulse whose leading edge is now
func (t *Timer) startPulse(width uint32, field, pulse int) {
	t.pulseEnd = t.now + uint64(width)
	t.captured = core.Tick(width)
	t.field = field
	t.pulse = pulse
}

// settle moves the clock to at, applying a pending compare match
func (t *Timer) settle(at uint64) {
	if at < t.now {
		return
	}
	if t.armed && t.compareAt <= at {
		t.armed = false
		t.now = t.compareAt
		if t.toggle {
			t.setBlanking(!t.blanking, false)
		}
	}
	t.now = at
}

func (t *Timer) setBlanking(on bool, forced bool) {
	if on == t.blanking {
		return
	}
	t.blanking = on
	if on {
		t.blankFrom = t.now
		t.blankField, t.blankPulse = t.field, t.pulse
		return
	}
	if t.blankFrom == t.now {
		// Restored before any time passed on this line
		return
	}
	t.closeSpan(forced)
}

func (t *Timer) closeSpan(forced bool) {
	from := t.blankFrom
	if from < t.lineStart {
		// Blanking ran through a counter overflow
		from = t.lineStart
	}
	t.spans = append(t.spans, Span{
		Field:  t.blankField,
		Pulse:  t.blankPulse,
		From:   uint32(from - t.lineStart),
		To:     uint32(t.now - t.lineStart),
		Forced: forced,
	})
}

// Restart zeroes the counter. The switch keeps its state across the edge,
// as the output pin does; a span still open is split at the edge.
func (t *Timer) Restart() {
	t.settle(t.now)
	if t.blanking {
		t.closeSpan(true)
		t.blankFrom = t.now
		t.blankField, t.blankPulse = t.field, t.pulse
	}
	t.lineStart = t.now
	t.armed = false
}

func (t *Timer) Counter() core.Tick {
	return core.Tick(t.now - t.lineStart)
}

func (t *Timer) Captured() core.Tick {
	return t.captured
}

func (t *Timer) ArmCompare(at core.Tick) {
	t.settle(t.now)
	target := t.lineStart + uint64(at)
	// A boundary behind the counter can't match before the next restart
	t.armed = target >= t.now
	t.compareAt = target
}

func (t *Timer) WaitFor(at core.Tick) {
	if target := t.lineStart + uint64(at); target > t.now {
		t.AdvanceTo(target)
	}
}

func (t *Timer) EnableToggle(enabled bool) {
	t.toggle = enabled
	if !enabled {
		t.setBlanking(false, true)
	}
}

func (t *Timer) RestorePhase() {
	t.setBlanking(false, true)
}

func (t *Timer) SyncReleased() bool {
	t.AdvanceTo(t.now + t.PollCost)
	return t.now >= t.pulseEnd
}
