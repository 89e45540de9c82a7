package core

// HandleOverflow runs when the sync timer overflows, which only happens
// when no sync edge restarted it for a whole counter period (about 4 ms,
// several lines). Blanking is disconnected so no stale window stays on
// screen, and the LEDs show the loss. The next field marker reconnects it.
func (c *Cropper) HandleOverflow() {
	c.timer.EnableToggle(false)
	c.leds.SetLock(false)
	c.leds.SetHeartbeat(false)

	// Let the first long pulse after recovery start a field even if the
	// signal vanished in the middle of a vertical sync burst
	c.field.NewFieldSeen = false

	if c.locked {
		c.locked = false
		c.losses++
		RecordEvent(EvtSignalLost, uint32(c.field.Line), c.losses)
	}
}
