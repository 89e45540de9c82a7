package core

// Debouncer turns raw button samples into a single activation per press
type Debouncer struct {
	Threshold uint8 // Consecutive pressed samples needed to fire
	run       uint8
}

// Sample feeds one reading and reports whether the press just became valid.
// Holding the button fires once; it must be released before it fires again.
func (d *Debouncer) Sample(pressed bool) bool {
	if !pressed {
		d.run = 0
		return false
	}
	if d.run >= d.Threshold {
		return false
	}
	d.run++
	return d.run == d.Threshold
}

// Button samples the mode button and cycles the mode on each press
type Button struct {
	gpio      GPIODriver
	pin       GPIOPin
	activeLow bool
	debounce  Debouncer
	modes     *ModeStore
}

// NewButton configures the pin as an input with pull-up
func NewButton(gpio GPIODriver, pin GPIOPin, activeLow bool, threshold uint8, modes *ModeStore) (*Button, error) {
	if err := gpio.ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}
	return &Button{
		gpio:      gpio,
		pin:       pin,
		activeLow: activeLow,
		debounce:  Debouncer{Threshold: threshold},
		modes:     modes,
	}, nil
}

// Poll takes one sample. It returns true when the mode was advanced.
func (b *Button) Poll() bool {
	pressed := b.gpio.ReadPin(b.pin) != b.activeLow
	if !b.debounce.Sample(pressed) {
		return false
	}
	mode, err := b.modes.Advance()
	if err != nil {
		DebugPrintln("[BUTTON] mode " + utoa(uint32(mode)) + " not saved: " + err.Error())
	} else {
		DebugPrintln("[BUTTON] mode " + utoa(uint32(mode)))
	}
	return true
}
