//go:build rp2040

package main

import (
	"machine"

	"retrocrop/core"
)

// Board wiring
const (
	// Sync slicer output, low during sync pulses
	syncPin = machine.GP2

	// Video switch control, high while blanking
	blankPin = machine.GP3

	// Mode button to ground
	buttonPin = machine.GP14

	lockLEDPin      = machine.GP15
	heartbeatLEDPin = machine.LED

	// AT24Cxx mode EEPROM on I2C0
	eepromSDA = machine.GP4
	eepromSCL = machine.GP5
)

// Hardware blocks used for the sync timer
const (
	counterSlice = 0 // PWM slice used as the free-running counter
	blankPIO     = 0
	blankSM      = 0
)

// boardConfig returns the firmware configuration for this board. To build
// with a different crop table or default mode, change it here.
func boardConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.DefaultMode = 2
	cfg.ButtonPin = core.GPIOPin(buttonPin)
	cfg.ButtonActiveLow = true
	cfg.LockLEDPin = core.GPIOPin(lockLEDPin)
	cfg.HeartbeatLEDPin = core.GPIOPin(heartbeatLEDPin)
	cfg.LEDActiveLow = false
	return cfg
}
