package sim

import (
	"errors"

	"retrocrop/core"
)

// GPIO is a bank of simulated pins. Inputs configured with pull-up read
// high until driven.
type GPIO struct {
	levels  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
}

func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	delete(g.outputs, pin)
	g.levels[pin] = true
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.outputs[pin] {
		return ErrNotOutput
	}
	g.levels[pin] = value
	return nil
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Drive sets the level seen on an input pin
func (g *GPIO) Drive(pin core.GPIOPin, level bool) {
	g.levels[pin] = level
}

var (
	ErrNotOutput  = errors.New("pin is not configured as output")
	ErrEEPROMAddr = errors.New("eeprom address out of range")
)

// EEPROMSize matches the smallest part the firmware runs on
const EEPROMSize = 256

// EEPROM is erased byte-addressed memory
type EEPROM struct {
	data   [EEPROMSize]uint8
	writes int
}

func NewEEPROM() *EEPROM {
	e := &EEPROM{}
	for i := range e.data {
		e.data[i] = 0xFF
	}
	return e
}

// LoadEEPROM returns an EEPROM holding image, padded with erased bytes
func LoadEEPROM(image []byte) *EEPROM {
	e := NewEEPROM()
	copy(e.data[:], image)
	return e
}

func (e *EEPROM) ReadByte(addr uint16) (uint8, error) {
	if int(addr) >= len(e.data) {
		return 0, ErrEEPROMAddr
	}
	return e.data[addr], nil
}

func (e *EEPROM) WriteByte(addr uint16, value uint8) error {
	if int(addr) >= len(e.data) {
		return ErrEEPROMAddr
	}
	e.data[addr] = value
	e.writes++
	return nil
}

// Bytes returns a copy of the contents
func (e *EEPROM) Bytes() []byte {
	out := make([]byte, len(e.data))
	copy(out, e.data[:])
	return out
}

// Writes returns the number of byte writes so far
func (e *EEPROM) Writes() int {
	return e.writes
}
