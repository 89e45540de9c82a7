//go:build rp2040

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/at24cx"
)

// at24WriteCycle is the self-timed write cycle of the AT24Cxx. The chip
// NACKs its address until the cycle is over.
const at24WriteCycle = 5 * time.Millisecond

// AT24NVMDriver implements core.NVMDriver on an AT24Cxx I2C EEPROM
type AT24NVMDriver struct {
	dev at24cx.Device
}

// NewAT24NVMDriver configures I2C0 on the EEPROM pins
func NewAT24NVMDriver() (*AT24NVMDriver, error) {
	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       eepromSDA,
		SCL:       eepromSCL,
	})
	if err != nil {
		return nil, err
	}

	dev := at24cx.New(i2c)
	dev.Configure(at24cx.Config{})
	return &AT24NVMDriver{dev: dev}, nil
}

func (d *AT24NVMDriver) ReadByte(addr uint16) (uint8, error) {
	return d.dev.ReadByte(addr)
}

// WriteByte writes one byte and waits out the write cycle
func (d *AT24NVMDriver) WriteByte(addr uint16, value uint8) error {
	if err := d.dev.WriteByte(addr, value); err != nil {
		return err
	}
	time.Sleep(at24WriteCycle)
	return nil
}
