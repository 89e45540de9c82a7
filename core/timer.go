package core

// Timer frequencies
const (
	// SyncTimerFreq is the rate of the free-running counter that times
	// horizontal blanking. All CropSpec offsets and lengths are in these ticks.
	SyncTimerFreq = 16000000

	// LoopClockFreq is the rate of the main-loop clock used by the scheduler.
	LoopClockFreq = 1000000

	// TickPeriodNS is the duration of one sync timer tick, rounded down.
	TickPeriodNS = 1000000000 / SyncTimerFreq
)

// Tick is a sync timer count. The hardware counter is 16 bits wide and
// restarts on every sync edge, so arithmetic on Tick wraps like the counter.
type Tick uint16

// TicksFromUS converts microseconds to sync timer ticks
func TicksFromUS(us uint32) uint32 {
	return us * (SyncTimerFreq / 1000000)
}

// TicksToNS converts sync timer ticks to nanoseconds
func TicksToNS(ticks uint32) uint32 {
	return ticks * 1000 / (SyncTimerFreq / 1000000)
}

var bootTime uint32

// GetTime returns the main-loop clock in microseconds
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the main-loop clock (called by targets from their hardware timer)
func SetTime(us uint32) {
	setSystemTicks(us)
}

// GetUptime returns microseconds since TimerInit
func GetUptime() uint32 {
	return GetTime() - bootTime
}

// TimerFromMS converts milliseconds to main-loop clock units
func TimerFromMS(ms uint32) uint32 {
	return ms * (LoopClockFreq / 1000)
}

// TimerInit records the boot time of the main-loop clock
func TimerInit() {
	bootTime = GetTime()
}
