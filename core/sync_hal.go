package core

// SyncTimer is the hardware surface the sync edge handler runs on: one
// free-running counter that restarts at every sync edge, an input capture
// fed by the sync slicer, and one compare channel that toggles the video
// switch on match without CPU involvement.
//
// Implementations are called from interrupt context and must not block,
// except WaitFor, which is the deliberate busy-wait of the timing driver.
type SyncTimer interface {
	// Restart zeroes the counter and parks the compare boundary where it
	// cannot match during this line.
	Restart()

	// Counter reads the free-running counter.
	Counter() Tick

	// Captured returns the counter value latched when the sync pulse ended.
	Captured() Tick

	// ArmCompare programs the compare boundary. When the toggle stage is
	// enabled the video switch changes state exactly when Counter reaches it.
	ArmCompare(at Tick)

	// WaitFor returns once Counter has reached at. Hardware spins on the
	// counter (see SpinUntil); simulations advance their virtual clock.
	WaitFor(at Tick)

	// EnableToggle connects (true) or disconnects (false) the compare
	// output from the video switch. Disconnected means pass-through video.
	EnableToggle(enabled bool)

	// RestorePhase forces the video switch back to pass-through if the
	// previous line left it blanking.
	RestorePhase()

	// SyncReleased polls the slicer for the end of the current sync pulse.
	SyncReleased() bool
}

// SpinUntil busy-waits until the counter reaches at. The counter restarts
// at every edge and a line is far shorter than a counter period, so a plain
// comparison cannot be fooled by wrap within one line.
func SpinUntil(t SyncTimer, at Tick) {
	for t.Counter() < at {
	}
}
