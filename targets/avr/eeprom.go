//go:build atmega328p

package main

import (
	"device/avr"
	"errors"
	"runtime/interrupt"
)

// eepromSize is the on-chip EEPROM of the ATmega328P
const eepromSize = 1024

var errEEPROMAddr = errors.New("EEPROM address out of range")

// AVREEPROM implements core.NVMDriver on the on-chip EEPROM
type AVREEPROM struct{}

func (AVREEPROM) ReadByte(addr uint16) (uint8, error) {
	if addr >= eepromSize {
		return 0, errEEPROMAddr
	}
	waitEEPROM()
	setEEPROMAddr(addr)
	avr.EECR.SetBits(avr.EECR_EERE)
	return avr.EEDR.Get(), nil
}

// WriteByte starts a write and returns; the next access waits for it
func (AVREEPROM) WriteByte(addr uint16, value uint8) error {
	if addr >= eepromSize {
		return errEEPROMAddr
	}
	waitEEPROM()
	setEEPROMAddr(addr)
	avr.EEDR.Set(value)

	// EEPE must follow EEMPE within four cycles
	state := interrupt.Disable()
	avr.EECR.Set(avr.EECR_EEMPE)
	avr.EECR.SetBits(avr.EECR_EEPE)
	interrupt.Restore(state)
	return nil
}

func waitEEPROM() {
	for avr.EECR.HasBits(avr.EECR_EEPE) {
	}
}

func setEEPROMAddr(addr uint16) {
	avr.EEARH.Set(uint8(addr >> 8))
	avr.EEARL.Set(uint8(addr))
}
