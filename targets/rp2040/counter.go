//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"retrocrop/core"
)

// pwmSliceRegs is the register block of one PWM slice
type pwmSliceRegs struct {
	CSR volatile.Register32
	DIV volatile.Register32
	CTR volatile.Register32
	CC  volatile.Register32
	TOP volatile.Register32
}

// pwmCounter runs one PWM slice as a free-running 16-bit counter at the
// sync timer rate. The slice drives no pin; only its counter and its wrap
// interrupt are used.
type pwmCounter struct {
	slice uint8
	regs  *pwmSliceRegs
}

// The wrap handler needs a package-level target
var overflowHandler func()

func newPWMCounter(slice uint8) *pwmCounter {
	base := uintptr(unsafe.Pointer(&rp.PWM.CH0_CSR)) + uintptr(slice)*0x14
	return &pwmCounter{
		slice: slice,
		regs:  (*pwmSliceRegs)(unsafe.Pointer(base)),
	}
}

// Init starts the counter and routes its wrap interrupt to onWrap
func (c *pwmCounter) Init(onWrap func()) {
	rp.RESETS.RESET.ClearBits(rp.RESETS_RESET_PWM)
	for !rp.RESETS.RESET_DONE.HasBits(rp.RESETS_RESET_DONE_PWM) {
	}

	c.regs.CSR.Set(0)

	// DIV is 8.4 fixed point, so the divider in sixteenths is
	// CPU/16 MHz*16. 125 MHz gives 7+13/16.
	div := machine.CPUFrequency() / (core.SyncTimerFreq / 16)
	c.regs.DIV.Set(div)
	c.regs.TOP.Set(0xFFFF)
	c.regs.CC.Set(0)
	c.regs.CTR.Set(0)

	overflowHandler = onWrap
	rp.PWM.INTR.Set(1 << c.slice)
	rp.PWM.INTE.SetBits(1 << c.slice)
	intr := interrupt.New(rp.IRQ_PWM_IRQ_WRAP, handlePWMWrap)
	intr.SetPriority(0x40)
	intr.Enable()

	c.regs.CSR.SetBits(rp.PWM_CH0_CSR_EN)
}

func handlePWMWrap(interrupt.Interrupt) {
	pending := rp.PWM.INTS.Get()
	rp.PWM.INTR.Set(pending)
	if pending&(1<<counterSlice) != 0 && overflowHandler != nil {
		overflowHandler()
	}
}

// Restart zeroes the counter and drops a wrap that is already pending
func (c *pwmCounter) Restart() {
	c.regs.CTR.Set(0)
	rp.PWM.INTR.Set(1 << c.slice)
}

// Read returns the counter
func (c *pwmCounter) Read() core.Tick {
	return core.Tick(c.regs.CTR.Get())
}
