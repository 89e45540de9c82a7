package core

// ModeSource is the read-only view of the active mode given to the
// interrupt handlers. Only ModeStore can change the mode.
type ModeSource interface {
	Active() uint8
}

// FieldState is the position within the current field. It is written only
// by the sync edge handler.
type FieldState struct {
	Line         uint16 // Sync pulses since the field marker, capped at MaxFieldLines
	Count        uint8  // Fields modulo FieldCountWrap, drives the heartbeat LED
	NewFieldSeen bool   // Set by the first long pulse of a vertical sync burst
}

// Cropper is the sync-tracking and blanking engine. HandleSyncEdge and
// HandleOverflow are its interrupt entry points; everything else is for the
// main loop.
type Cropper struct {
	timer SyncTimer
	table CropTable
	modes ModeSource
	leds  *Indicators

	// Interrupt-owned state
	field          FieldState
	window         CropWindow // Resolved for the line whose sync edge comes next
	locked         bool
	lastFieldLines uint16
	fields         uint32
	losses         uint32
	ceilingHits    uint32
	missedWindows  uint32
}

// Status is a consistent copy of the engine state for the main loop
type Status struct {
	Mode           uint8
	Locked         bool
	Field          FieldState
	Window         CropWindow
	LastFieldLines uint16
	Fields         uint32
	Losses         uint32
	CeilingHits    uint32
	MissedWindows  uint32 // Windows whose start had passed when the line was driven
}

// NewCropper creates the engine. Blanking stays disconnected until the
// first field marker arrives.
func NewCropper(timer SyncTimer, table CropTable, modes ModeSource, leds *Indicators) (*Cropper, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	timer.EnableToggle(false)
	return &Cropper{
		timer: timer,
		table: table,
		modes: modes,
		leds:  leds,
	}, nil
}

// Table returns the crop table the engine was built with
func (c *Cropper) Table() CropTable {
	return c.table
}

// Snapshot copies the interrupt-owned state with interrupts masked
func (c *Cropper) Snapshot() Status {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	return Status{
		Mode:           c.modes.Active(),
		Locked:         c.locked,
		Field:          c.field,
		Window:         c.window,
		LastFieldLines: c.lastFieldLines,
		Fields:         c.fields,
		Losses:         c.losses,
		CeilingHits:    c.ceilingHits,
		MissedWindows:  c.missedWindows,
	}
}

// resolve computes the window for the current line in the active mode
func (c *Cropper) resolve() {
	c.window = ResolveWindow(c.field.Line, c.table.Spec(c.modes.Active()))
}
