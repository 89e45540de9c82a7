//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"retrocrop/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock registers the clock constants. The RP2040 timer counts
// microseconds, which is the main-loop clock rate.
func InitClock() {
	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(core.LoopClockFreq))
}

// UpdateSystemTime copies the hardware timer into the main-loop clock
func UpdateSystemTime() {
	core.SetTime(timerRAWL.Get())
}
