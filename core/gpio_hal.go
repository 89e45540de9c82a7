package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}

// Indicators drives the two status LEDs: the lock LED shows that field
// markers are arriving, the heartbeat LED blinks once per 100 fields.
// Pins are written from interrupt context, so SetPin must not block.
type Indicators struct {
	gpio         GPIODriver
	lockPin      GPIOPin
	heartbeatPin GPIOPin
	activeLow    bool
}

// NewIndicators configures both LED pins as outputs and switches them off
func NewIndicators(gpio GPIODriver, lockPin, heartbeatPin GPIOPin, activeLow bool) (*Indicators, error) {
	ind := &Indicators{
		gpio:         gpio,
		lockPin:      lockPin,
		heartbeatPin: heartbeatPin,
		activeLow:    activeLow,
	}
	for _, pin := range []GPIOPin{lockPin, heartbeatPin} {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	ind.SetLock(false)
	ind.SetHeartbeat(false)
	return ind, nil
}

// SetLock lights the lock LED while sync is tracked
func (i *Indicators) SetLock(on bool) {
	i.set(i.lockPin, on)
}

// SetHeartbeat sets the heartbeat LED
func (i *Indicators) SetHeartbeat(on bool) {
	i.set(i.heartbeatPin, on)
}

func (i *Indicators) set(pin GPIOPin, on bool) {
	if i == nil || i.gpio == nil {
		return
	}
	// Errors are ignored: an LED is never worth failing a sync edge for
	_ = i.gpio.SetPin(pin, on != i.activeLow)
}
