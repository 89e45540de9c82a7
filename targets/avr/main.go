//go:build atmega328p

// Command avr is the cropper firmware for ATmega328P boards. The diagnostics
// link needs more RAM than the chip has, so the UART only carries the debug
// status line.
package main

import (
	"machine"
	"time"

	"retrocrop/core"
)

var bootTime time.Time

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: debugBaud})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)

	bootTime = time.Now()
	UpdateSystemTime()
	core.TimerInit()

	var timer avrSyncTimer
	timer.Init()

	fw, err := core.NewFirmware(boardConfig(), core.Hardware{
		Timer: timer,
		GPIO:  &AVRGPIODriver{},
		NVM:   AVREEPROM{},
	})
	if err != nil {
		core.DebugPrintln("[CROP] " + err.Error())
		haltWithError()
	}

	fw.Start(core.GetTime())
	timer.Attach(fw.Cropper)

	for {
		UpdateSystemTime()
		fw.RunTasks(core.GetTime())
	}
}

// UpdateSystemTime copies the runtime clock into the main-loop clock
func UpdateSystemTime() {
	core.SetTime(uint32(time.Since(bootTime) / time.Microsecond))
}

// haltWithError flashes the onboard LED rapidly forever
func haltWithError() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
