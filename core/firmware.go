package core

import "errors"

// ErrButtonTiming reports a button configuration that could never register
// a press
var ErrButtonTiming = errors.New("button threshold and interval must be non-zero")

// Config is the compile-time configuration of a target
type Config struct {
	Table     CropTable
	ModeNames []string // Optional, indexed like Table

	// DefaultMode is used until a mode has been persisted
	DefaultMode uint8

	ButtonPin       GPIOPin
	ButtonActiveLow bool
	ButtonThreshold uint8  // Consecutive pressed samples for one press
	ButtonInterval  uint32 // Sampling period, loop clock units

	LockLEDPin      GPIOPin
	HeartbeatLEDPin GPIOPin
	LEDActiveLow    bool

	// StatusInterval is the period of the debug status line, 0 disables it
	StatusInterval uint32
}

// DefaultConfig returns the preset table and the button and LED timing.
// Pins are left for the target to fill in.
func DefaultConfig() Config {
	return Config{
		Table: DefaultCropTable(),
		ModeNames: []string{
			"off",
			"c64_left",
			"c64_full",
			"c64_full_a",
			"c64_full_b",
			"dtv_full",
		},
		DefaultMode:     0,
		ButtonActiveLow: true,
		ButtonThreshold: 5,
		ButtonInterval:  TimerFromMS(10),
		StatusInterval:  TimerFromMS(1000),
	}
}

// Hardware is what a target provides to the firmware
type Hardware struct {
	Timer SyncTimer
	GPIO  GPIODriver
	NVM   NVMDriver // May be nil: the mode is then not persisted
}

// Firmware ties the cropper to the mode button, the LEDs and the main-loop
// tasks. Targets route the sync edge and overflow interrupts to
// Cropper.HandleSyncEdge and Cropper.HandleOverflow and call RunTasks from
// their main loop.
type Firmware struct {
	Config     Config
	Cropper    *Cropper
	Modes      *ModeStore
	Button     *Button
	Indicators *Indicators

	scheduler   Scheduler
	buttonTimer Timer
	statusTimer Timer
}

// NewFirmware builds the firmware from a configuration
func NewFirmware(cfg Config, hw Hardware) (*Firmware, error) {
	if err := cfg.Table.Validate(); err != nil {
		return nil, err
	}
	if cfg.ButtonThreshold == 0 || cfg.ButtonInterval == 0 {
		return nil, ErrButtonTiming
	}

	modes, err := NewModeStore(hw.NVM, cfg.Table.Modes(), cfg.DefaultMode)
	if err != nil {
		return nil, err
	}

	leds, err := NewIndicators(hw.GPIO, cfg.LockLEDPin, cfg.HeartbeatLEDPin, cfg.LEDActiveLow)
	if err != nil {
		return nil, err
	}

	button, err := NewButton(hw.GPIO, cfg.ButtonPin, cfg.ButtonActiveLow, cfg.ButtonThreshold, modes)
	if err != nil {
		return nil, err
	}

	cropper, err := NewCropper(hw.Timer, cfg.Table, modes, leds)
	if err != nil {
		return nil, err
	}

	f := &Firmware{
		Config:     cfg,
		Cropper:    cropper,
		Modes:      modes,
		Button:     button,
		Indicators: leds,
	}
	f.buttonTimer.Handler = f.buttonTask
	f.statusTimer.Handler = f.statusTask
	return f, nil
}

// Start schedules the main-loop tasks
func (f *Firmware) Start(now uint32) {
	f.buttonTimer.WakeTime = now + f.Config.ButtonInterval
	f.scheduler.Schedule(&f.buttonTimer)

	if f.Config.StatusInterval != 0 {
		f.statusTimer.WakeTime = now + f.Config.StatusInterval
		f.scheduler.Schedule(&f.statusTimer)
	}

	DebugPrintln("[CROP] started in mode " + f.ModeName(f.Modes.Active()))
}

// RunTasks runs every main-loop task that is due
func (f *Firmware) RunTasks(now uint32) {
	f.scheduler.Dispatch(now)
}

// ModeName returns the configured name of a mode, or its number
func (f *Firmware) ModeName(mode uint8) string {
	if int(mode) < len(f.Config.ModeNames) {
		return f.Config.ModeNames[mode]
	}
	return utoa(uint32(mode))
}

func (f *Firmware) buttonTask(t *Timer) uint8 {
	f.Button.Poll()
	t.WakeTime += f.Config.ButtonInterval
	return SF_RESCHEDULE
}

func (f *Firmware) statusTask(t *Timer) uint8 {
	if IsDebugEnabled() {
		s := f.Cropper.Snapshot()
		locked := "no"
		if s.Locked {
			locked = "yes"
		}
		DebugPrintln("[CROP] mode=" + f.ModeName(s.Mode) +
			" locked=" + locked +
			" lines=" + utoa(uint32(s.LastFieldLines)) +
			" fields=" + utoa(s.Fields) +
			" losses=" + utoa(s.Losses))
	}
	t.WakeTime += f.Config.StatusInterval
	return SF_RESCHEDULE
}
