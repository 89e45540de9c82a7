//go:build atmega328p

package main

import (
	"errors"
	"machine"

	"retrocrop/core"
)

var errPinNotConfigured = errors.New("pin not configured")

// AVRGPIODriver implements core.GPIODriver for the button and the LEDs.
// The pins are fixed at build time, so a small array replaces a map.
type AVRGPIODriver struct {
	pins  [4]machine.Pin
	count int
}

func (d *AVRGPIODriver) add(pin core.GPIOPin, mode machine.PinMode) error {
	for _, p := range d.pins[:d.count] {
		if p == machine.Pin(pin) {
			return nil
		}
	}
	if d.count == len(d.pins) {
		return errors.New("too many pins")
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: mode})
	d.pins[d.count] = p
	d.count++
	return nil
}

func (d *AVRGPIODriver) configured(pin core.GPIOPin) bool {
	for _, p := range d.pins[:d.count] {
		if p == machine.Pin(pin) {
			return true
		}
	}
	return false
}

func (d *AVRGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.add(pin, machine.PinOutput)
}

func (d *AVRGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.add(pin, machine.PinInputPullup)
}

func (d *AVRGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if !d.configured(pin) {
		return errPinNotConfigured
	}
	machine.Pin(pin).Set(value)
	return nil
}

func (d *AVRGPIODriver) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}
