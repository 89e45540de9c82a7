//go:build rp2040

package main

import (
	"machine"

	"retrocrop/core"
)

// rpSyncTimer is the sync timer of the board: a PWM slice counts, the sync
// slicer pin is polled for the end of the pulse, and a PIO state machine
// switches the video.
type rpSyncTimer struct {
	counter  *pwmCounter
	blank    *blankOutput
	sync     machine.Pin
	captured core.Tick
	toggle   bool
}

func newSyncTimer(counter *pwmCounter, blank *blankOutput, sync machine.Pin) *rpSyncTimer {
	sync.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &rpSyncTimer{counter: counter, blank: blank, sync: sync}
}

// Attach routes the sync edge and the counter wrap to the cropper
func (t *rpSyncTimer) Attach(c *core.Cropper) error {
	t.counter.Init(c.HandleOverflow)
	return t.sync.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		c.HandleSyncEdge()
	})
}

func (t *rpSyncTimer) Restart() {
	t.counter.Restart()
	t.blank.Cancel()
}

func (t *rpSyncTimer) Counter() core.Tick {
	return t.counter.Read()
}

func (t *rpSyncTimer) Captured() core.Tick {
	return t.captured
}

// ArmCompare queues a toggle. A boundary already behind the counter is
// missed, as a hardware compare would miss it.
func (t *rpSyncTimer) ArmCompare(at core.Tick) {
	if !t.toggle {
		return
	}
	now := t.counter.Read()
	if at <= now {
		return
	}
	t.blank.ToggleAfter(uint32(at - now))
}

func (t *rpSyncTimer) WaitFor(at core.Tick) {
	core.SpinUntil(t, at)
}

func (t *rpSyncTimer) EnableToggle(enabled bool) {
	t.toggle = enabled
	if !enabled {
		t.blank.Cancel()
		t.blank.Set(false)
	}
}

func (t *rpSyncTimer) RestorePhase() {
	t.blank.Set(false)
}

// SyncReleased latches the counter when the slicer output goes back high
func (t *rpSyncTimer) SyncReleased() bool {
	if !t.sync.Get() {
		return false
	}
	t.captured = t.counter.Read()
	return true
}
