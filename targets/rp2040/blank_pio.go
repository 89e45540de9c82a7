//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"retrocrop/core"
)

// Blanking state machine
// Command word format:
//
//	Bit 0:     level to drive on the video switch
//	Bits 1-31: delay in sync timer ticks before driving it
//
// The state machine runs at the sync timer rate, so one pass of the delay
// loop is one tick and a word behaves like a compare match armed delay
// ticks ahead.
func buildBlankProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                       // 0: pull block
		asm.Out(rp2pio.OutDestY, 1).Encode(),                 // 1: out y, 1 (level)
		asm.Out(rp2pio.OutDestX, 31).Encode(),                // 2: out x, 31 (delay)
		asm.Jmp(3, rp2pio.JmpXNZeroDec).Encode(),             // 3: jmp x--, 3
		asm.Mov(rp2pio.MovDestPins, rp2pio.MovSrcY).Encode(), // 4: mov pins, y
		// .wrap
	}
}

const (
	blankOrigin = 0

	// Instructions between the pull and the first delay pass
	blankLatency = 3
)

// blankOutput drives the video switch from a PIO state machine
type blankOutput struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
	asm    rp2pio.AssemblerV0

	// Level of the last queued word
	level bool
}

func newBlankOutput(pioNum, smNum uint8, pin machine.Pin) *blankOutput {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &blankOutput{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
		pin: pin,
	}
}

// Init loads the program and starts the state machine with the switch in
// pass-through
func (b *blankOutput) Init() error {
	b.sm.TryClaim()

	program := buildBlankProgram()
	offset, err := b.pio.AddProgram(program, blankOrigin)
	if err != nil {
		return err
	}
	b.offset = offset

	b.pin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(b.pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// 16.8 fixed point divider for one instruction per tick
	div := machine.CPUFrequency() / (core.SyncTimerFreq / 256)
	cfg.SetClkDivIntFrac(uint16(div>>8), uint8(div))

	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.pin, 1, true)
	b.sm.SetPinsConsecutive(b.pin, 1, false)
	b.level = false
	b.sm.SetEnabled(true)
	return nil
}

// ToggleAfter flips the switch delay ticks from now
func (b *blankOutput) ToggleAfter(delay uint32) {
	if delay > blankLatency {
		delay -= blankLatency
	} else {
		delay = 0
	}
	b.level = !b.level
	b.push(delay, b.level)
}

// Set drives the switch at once
func (b *blankOutput) Set(level bool) {
	if level == b.level {
		return
	}
	b.level = level
	b.push(0, level)
}

// Cancel drops every queued word. The level is re-read from the pin since a
// dropped word may never have run.
func (b *blankOutput) Cancel() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.Exec(b.asm.Jmp(b.offset, rp2pio.JmpAlways).Encode())
	b.sm.SetEnabled(true)
	b.level = b.pin.Get()
}

func (b *blankOutput) push(delay uint32, level bool) {
	word := delay << 1
	if level {
		word |= 1
	}
	b.sm.TxPut(word)
}
