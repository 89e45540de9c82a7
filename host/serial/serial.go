// Package serial opens the USB or UART link to a cropper board
package serial

import (
	"errors"
	"io"
)

// Port is the byte stream to the board. Tests use an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3") or tcp://host:port
	Device string `yaml:"device"`

	// Baud rate of the AVR UART. USB CDC on the RP2040 ignores it.
	Baud int `yaml:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `yaml:"read_timeout_ms"`
}

// DefaultBaud is the diagnostics UART rate on 16 MHz AVR boards
const DefaultBaud = 250000

var (
	ErrNoDevice = errors.New("no serial device configured")
	ErrBadBaud  = errors.New("baud rate must be positive")
)

// DefaultConfig returns the configuration for a board on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

// Validate checks that the configuration can be opened
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrBadBaud
	}
	return nil
}
