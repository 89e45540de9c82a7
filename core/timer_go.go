//go:build !tinygo

package core

var systemTicks uint32

// getSystemTicks returns the main-loop clock (hosted builds and tests)
func getSystemTicks() uint32 {
	return systemTicks
}

// setSystemTicks sets the main-loop clock (hosted builds and tests)
func setSystemTicks(us uint32) {
	systemTicks = us
}
