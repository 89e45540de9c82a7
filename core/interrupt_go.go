//go:build !tinygo

package core

// State stands in for the saved interrupt state on hosted Go
type State uintptr

// disableInterrupts is a no-op on hosted Go. Tests and the simulator call
// the interrupt handlers synchronously, so there is nothing to mask.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on hosted Go
func restoreInterrupts(state State) {
	_ = state
}
