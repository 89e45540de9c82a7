//go:build atmega328p

package main

import (
	"device/avr"
	"runtime/interrupt"

	"retrocrop/core"
)

// avrSyncTimer runs the sync timer on Timer1 at the full 16 MHz clock.
// The analog comparator slices sync: its falling edge interrupts, and it
// also feeds input capture, which latches TCNT1 on the rising edge at the
// end of the pulse. OC1A toggles the video switch on compare match.
type avrSyncTimer struct{}

// The interrupt handlers need a package-level target
var cropper *core.Cropper

func (avrSyncTimer) Init() {
	avr.DDRB.SetBits(1 << 1) // OC1A output, low is pass-through
	avr.PORTB.ClearBits(1 << 1)

	avr.TCCR1A.Set(0)
	avr.TCCR1B.Set(avr.TCCR1B_ICNC1 | avr.TCCR1B_ICES1 | avr.TCCR1B_CS10)
	writeOCR1A(0xFFFF)
	writeTCNT1(0)
}

// Attach routes the sync edge and the overflow to c
func (t avrSyncTimer) Attach(c *core.Cropper) {
	cropper = c

	avr.TIFR1.Set(avr.TIFR1_TOV1 | avr.TIFR1_ICF1)
	avr.TIMSK1.Set(avr.TIMSK1_TOIE1)
	interrupt.New(avr.IRQ_TIMER1_OVF, func(interrupt.Interrupt) {
		cropper.HandleOverflow()
	})

	// Falling comparator output, routed to input capture as well
	avr.ACSR.Set(avr.ACSR_ACI | avr.ACSR_ACIC | avr.ACSR_ACIS1)
	avr.ACSR.SetBits(avr.ACSR_ACIE)
	interrupt.New(avr.IRQ_ANALOG_COMP, func(interrupt.Interrupt) {
		cropper.HandleSyncEdge()
	})
}

func (avrSyncTimer) Restart() {
	writeTCNT1(0)
	writeOCR1A(0xFFFF)
	avr.TIFR1.Set(avr.TIFR1_ICF1 | avr.TIFR1_TOV1)
}

func (avrSyncTimer) Counter() core.Tick {
	return readTCNT1()
}

func (avrSyncTimer) Captured() core.Tick {
	lo := avr.ICR1L.Get()
	hi := avr.ICR1H.Get()
	return core.Tick(hi)<<8 | core.Tick(lo)
}

func (avrSyncTimer) ArmCompare(at core.Tick) {
	writeOCR1A(at)
}

func (t avrSyncTimer) WaitFor(at core.Tick) {
	core.SpinUntil(t, at)
}

func (avrSyncTimer) EnableToggle(enabled bool) {
	if enabled {
		avr.TCCR1A.Set(avr.TCCR1A_COM1A0)
		return
	}
	// Leave the compare latch low for the next connect. Disconnected,
	// OC1A falls back to PORTB1, which is low.
	forcePassThrough()
	avr.TCCR1A.Set(0)
}

func (avrSyncTimer) RestorePhase() {
	forcePassThrough()
}

// SyncReleased reports the input capture of the end of the pulse
func (avrSyncTimer) SyncReleased() bool {
	return avr.TIFR1.HasBits(avr.TIFR1_ICF1)
}

// forcePassThrough strobes a compare toggle if OC1A was left high
func forcePassThrough() {
	if avr.PINB.HasBits(1<<1) && avr.TCCR1A.HasBits(avr.TCCR1A_COM1A0) {
		avr.TCCR1C.Set(avr.TCCR1C_FOC1A)
	}
}

// 16-bit registers go through the shared TEMP byte: write high first,
// read low first
func writeTCNT1(v core.Tick) {
	avr.TCNT1H.Set(uint8(v >> 8))
	avr.TCNT1L.Set(uint8(v))
}

func readTCNT1() core.Tick {
	lo := avr.TCNT1L.Get()
	hi := avr.TCNT1H.Get()
	return core.Tick(hi)<<8 | core.Tick(lo)
}

func writeOCR1A(v core.Tick) {
	avr.OCR1AH.Set(uint8(v >> 8))
	avr.OCR1AL.Set(uint8(v))
}
