//go:build atmega328p

package main

import (
	"machine"

	"retrocrop/core"
)

// Board wiring (Arduino Uno numbering in comments)
const (
	// Video switch control, OC1A (D9)
	blankPin = machine.PB1

	buttonPin       = machine.PD2 // D2
	lockLEDPin      = machine.PD4 // D4
	heartbeatLEDPin = machine.LED // D13

	// The sync slicer is the analog comparator: AIN0 (D6) takes the
	// reference, AIN1 (D7) the composite video.
)

const debugBaud = 115200

// boardConfig returns the firmware configuration for this board. To build
// with a different crop table or default mode, change it here.
func boardConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.DefaultMode = 2
	cfg.ButtonPin = core.GPIOPin(buttonPin)
	cfg.ButtonActiveLow = true
	cfg.LockLEDPin = core.GPIOPin(lockLEDPin)
	cfg.HeartbeatLEDPin = core.GPIOPin(heartbeatLEDPin)
	return cfg
}
