package core

const (
	// PulseRetryLimit bounds the poll for the end of a sync pulse. A pulse
	// still active after this many polls is a vertical sync (broad) pulse.
	PulseRetryLimit = 50

	// MaxFieldLines caps the line counter if field markers stop arriving
	MaxFieldLines = 500

	// FieldCountWrap is the heartbeat period in fields
	FieldCountWrap = 100
)

// HandleSyncEdge runs on the leading edge of every sync pulse.
//
// A long pulse starts a field. A short pulse first blanks the current line
// with the window resolved on the previous edge, then advances the line
// counter and resolves the window for the next edge. Resolving one line
// ahead keeps the blanking decision out of the few microseconds between the
// end of sync and the crop start.
func (c *Cropper) HandleSyncEdge() {
	c.timer.Restart()
	c.timer.RestorePhase()

	if c.longPulse() {
		c.startField()
		return
	}

	edge := c.timer.Captured()
	if c.window.Start != 0 {
		c.drive(edge, c.window)
	}
	c.advanceLine()
	c.field.NewFieldSeen = false
}

// longPulse polls the slicer until the pulse ends or the retry bound runs out
func (c *Cropper) longPulse() bool {
	for i := 0; i < PulseRetryLimit; i++ {
		if c.timer.SyncReleased() {
			return false
		}
	}
	return true
}

// startField resets the line counter on the first long pulse of a burst.
// The rest of the burst is ignored.
func (c *Cropper) startField() {
	if c.field.NewFieldSeen {
		return
	}
	c.field.NewFieldSeen = true

	c.lastFieldLines = c.field.Line
	c.field.Line = 0
	c.fields++

	c.field.Count++
	switch c.field.Count {
	case FieldCountWrap:
		c.field.Count = 0
		c.leds.SetHeartbeat(false)
	case FieldCountWrap / 2:
		c.leds.SetHeartbeat(true)
	}

	c.resolve()
	c.timer.EnableToggle(true)
	c.leds.SetLock(true)

	if !c.locked {
		c.locked = true
		RecordEvent(EvtSignalLocked, c.fields, c.losses)
	}
}

// advanceLine moves to the next line and resolves its window
func (c *Cropper) advanceLine() {
	if c.field.Line >= MaxFieldLines {
		// No field marker for far too long, don't crop anything
		c.window = CropWindow{}
		return
	}

	c.field.Line++
	if c.field.Line == MaxFieldLines {
		c.window = CropWindow{}
		c.ceilingHits++
		RecordEvent(EvtLineCeiling, uint32(c.modes.Active()), c.ceilingHits)
		return
	}
	c.resolve()
}
