package sim

import (
	"sync"

	"retrocrop/core"
)

// ticksPerLoopTick converts the sync timer to the main-loop clock
const ticksPerLoopTick = core.SyncTimerFreq / core.LoopClockFreq

// Pins of the simulated board
const (
	ButtonPin       core.GPIOPin = 2
	LockLEDPin      core.GPIOPin = 3
	HeartbeatLEDPin core.GPIOPin = 4
)

// DefaultConfig is the firmware default configuration on the simulated board
func DefaultConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.ButtonPin = ButtonPin
	cfg.LockLEDPin = LockLEDPin
	cfg.HeartbeatLEDPin = HeartbeatLEDPin
	return cfg
}

// Sim drives the firmware with a generated sync signal. The sync edge and
// overflow handlers run in line with the virtual clock; main-loop tasks run
// after every edge. A Link may serve the diagnostics commands from another
// goroutine; the signal methods serialize with it field by field.
type Sim struct {
	mu sync.Mutex

	Config   core.Config
	Timer    *Timer
	GPIO     *GPIO
	EEPROM   *EEPROM
	Firmware *core.Firmware
	Standard Standard

	field     int
	nextField uint64
	buttonPin core.GPIOPin
	activeLow bool
	lockPin   core.GPIOPin
	ledLow    bool
}

// New builds the firmware on simulated hardware. A nil eeprom starts erased.
func New(cfg core.Config, std Standard, eeprom *EEPROM) (*Sim, error) {
	if eeprom == nil {
		eeprom = NewEEPROM()
	}
	s := &Sim{
		Config:    cfg,
		Timer:     NewTimer(),
		GPIO:      NewGPIO(),
		EEPROM:    eeprom,
		Standard:  std,
		buttonPin: cfg.ButtonPin,
		activeLow: cfg.ButtonActiveLow,
		lockPin:   cfg.LockLEDPin,
		ledLow:    cfg.LEDActiveLow,
	}

	core.SetTime(0)
	if err := s.boot(); err != nil {
		return nil, err
	}
	return s, nil
}

// boot starts a fresh firmware on the board. The signal, the clock and the
// EEPROM carry on.
func (s *Sim) boot() error {
	fw, err := core.NewFirmware(s.Config, core.Hardware{
		Timer: s.Timer,
		GPIO:  s.GPIO,
		NVM:   s.EEPROM,
	})
	if err != nil {
		return err
	}
	s.Firmware = fw
	s.Timer.onOverflow = fw.Cropper.HandleOverflow
	fw.Start(s.loopClock())
	return nil
}

// Reboot restarts the firmware as a reset would
func (s *Sim) Reboot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boot()
}

// Field returns the number of fields generated so far
func (s *Sim) Field() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field
}

// RunFields generates n complete fields
func (s *Sim) RunFields(n int) {
	for i := 0; i < n; i++ {
		s.runField()
	}
}

func (s *Sim) runField() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.Standard.Field(s.field, s.nextField) {
		s.edge(p)
	}
	s.nextField += s.Standard.FieldTicks(s.field)
	s.field++
}

// Drop removes the signal for ticks. The next field starts when it returns.
func (s *Sim) Drop(ticks uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextField < s.Timer.Now() {
		s.nextField = s.Timer.Now()
	}
	s.nextField += ticks
	s.advance(s.nextField)
}

// SetButton holds or releases the mode button
func (s *Sim) SetButton(pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GPIO.Drive(s.buttonPin, pressed != s.activeLow)
}

// LockLED reports whether the lock LED is lit
func (s *Sim) LockLED() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GPIO.ReadPin(s.lockPin) != s.ledLow
}

// Status returns the engine state
func (s *Sim) Status() core.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Firmware.Cropper.Snapshot()
}

// Spans returns a copy of the blanking intervals recorded so far
func (s *Sim) Spans() []Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Span(nil), s.Timer.Spans()...)
}

// TakeSpans returns the recorded intervals and forgets them
func (s *Sim) TakeSpans() []Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	spans := append([]Span(nil), s.Timer.Spans()...)
	s.Timer.ResetSpans()
	return spans
}

func (s *Sim) edge(p Pulse) {
	s.advance(p.At)
	s.Timer.startPulse(p.Width, p.Field, p.Index)
	s.Firmware.Cropper.HandleSyncEdge()
	s.runTasks()
}

// advance moves the clock, running main-loop tasks every loop clock
// millisecond on the way so the button is sampled through long gaps
func (s *Sim) advance(at uint64) {
	const step = core.SyncTimerFreq / 1000
	for s.Timer.Now()+step < at {
		s.Timer.AdvanceTo(s.Timer.Now() + step)
		s.runTasks()
	}
	s.Timer.AdvanceTo(at)
	s.runTasks()
}

func (s *Sim) loopClock() uint32 {
	return uint32(s.Timer.Now() / ticksPerLoopTick)
}

func (s *Sim) runTasks() {
	now := s.loopClock()
	core.SetTime(now)
	s.Firmware.RunTasks(now)
}
