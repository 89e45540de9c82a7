package core

import "errors"

// fakeTimer is a scripted SyncTimer. Every pulse is released after
// releasePolls polls unless releasePolls is negative. Each poll advances
// the counter by pollTicks.
type fakeTimer struct {
	counter      Tick
	captured     Tick
	releasePolls int
	polls        int
	pollTicks    Tick

	toggle   bool
	compares []Tick
	waits    []Tick
	restarts int
	restores int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{captured: 75, releasePolls: 3}
}

func (f *fakeTimer) Restart() {
	f.counter = 0
	f.polls = 0
	f.restarts++
}

func (f *fakeTimer) Counter() Tick  { return f.counter }
func (f *fakeTimer) Captured() Tick { return f.captured }

func (f *fakeTimer) ArmCompare(at Tick) {
	f.compares = append(f.compares, at)
}

func (f *fakeTimer) WaitFor(at Tick) {
	f.waits = append(f.waits, at)
	if f.counter < at {
		f.counter = at
	}
}

func (f *fakeTimer) EnableToggle(enabled bool) { f.toggle = enabled }
func (f *fakeTimer) RestorePhase()             { f.restores++ }

func (f *fakeTimer) SyncReleased() bool {
	f.polls++
	f.counter += f.pollTicks
	return f.releasePolls >= 0 && f.polls > f.releasePolls
}

// fakeGPIO records pin levels
type fakeGPIO struct {
	levels  map[GPIOPin]bool
	outputs map[GPIOPin]bool
	inputs  map[GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		levels:  make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]bool),
	}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *fakeGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	g.inputs[pin] = true
	g.levels[pin] = true
	return nil
}

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	g.levels[pin] = value
	return nil
}

func (g *fakeGPIO) ReadPin(pin GPIOPin) bool {
	return g.levels[pin]
}

var errNVM = errors.New("nvm failure")

// memNVM is an erased EEPROM
type memNVM struct {
	data       [16]uint8
	writes     int
	failReads  bool
	failWrites bool
}

func newMemNVM() *memNVM {
	m := &memNVM{}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

func (m *memNVM) ReadByte(addr uint16) (uint8, error) {
	if m.failReads {
		return 0, errNVM
	}
	return m.data[addr], nil
}

func (m *memNVM) WriteByte(addr uint16, value uint8) error {
	if m.failWrites {
		return errNVM
	}
	m.writes++
	m.data[addr] = value
	return nil
}

// fixedMode is a ModeSource the test can change directly
type fixedMode uint8

func (m *fixedMode) Active() uint8 { return uint8(*m) }

const (
	testLockPin      GPIOPin = 2
	testHeartbeatPin GPIOPin = 3
	testButtonPin    GPIOPin = 4
)

type cropperRig struct {
	cropper *Cropper
	timer   *fakeTimer
	gpio    *fakeGPIO
	mode    *fixedMode
}

func newCropperRig(table CropTable, mode uint8) (*cropperRig, error) {
	r := &cropperRig{
		timer: newFakeTimer(),
		gpio:  newFakeGPIO(),
	}
	m := fixedMode(mode)
	r.mode = &m

	leds, err := NewIndicators(r.gpio, testLockPin, testHeartbeatPin, false)
	if err != nil {
		return nil, err
	}
	r.cropper, err = NewCropper(r.timer, table, r.mode, leds)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// longPulse delivers a broad (vertical sync) pulse
func (r *cropperRig) longPulse() {
	r.timer.releasePolls = -1
	r.cropper.HandleSyncEdge()
}

// shortPulses delivers n line sync pulses
func (r *cropperRig) shortPulses(n int) {
	r.timer.releasePolls = 3
	for i := 0; i < n; i++ {
		r.cropper.HandleSyncEdge()
	}
}

// field delivers a field marker followed by lines line syncs
func (r *cropperRig) field(lines int) {
	r.longPulse()
	r.shortPulses(lines)
}
