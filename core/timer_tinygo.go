//go:build tinygo

package core

import "sync/atomic"

var systemTicksValue uint32

// getSystemTicks returns the main-loop clock. The USB goroutine on rp2040
// reads it concurrently with the main loop.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

// setSystemTicks sets the main-loop clock
func setSystemTicks(us uint32) {
	atomic.StoreUint32(&systemTicksValue, us)
}
