//go:build rp2040

package main

import (
	"machine"
	"time"

	"retrocrop/core"
	"retrocrop/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear a watchdog left running by a reset request
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()

	fw, syncTimer, err := initFirmware()
	if err != nil {
		haltWithError()
	}

	core.InitDiagnosticCommands(fw)
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// Responses and the ACK go out as soon as a frame is handled
	transport.SetFlushCallback(writeUSB)
	core.SetGlobalTransport(transport)

	core.SetResetHandler(func() {
		if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
			return
		}
		if err := machine.Watchdog.Start(); err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	UpdateSystemTime()
	fw.Start(core.GetTime())

	// Interrupts start last so the first edge finds everything in place
	if err := syncTimer.Attach(fw.Cropper); err != nil {
		haltWithError()
	}

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			// After the ACK is out
			core.CheckPendingReset()

			fw.RunTasks(core.GetTime())
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// initFirmware builds the firmware on the board hardware. A missing
// EEPROM only costs persistence.
func initFirmware() (*core.Firmware, *rpSyncTimer, error) {
	blank := newBlankOutput(blankPIO, blankSM, blankPin)
	if err := blank.Init(); err != nil {
		return nil, nil, err
	}
	syncTimer := newSyncTimer(newPWMCounter(counterSlice), blank, syncPin)

	hw := core.Hardware{
		Timer: syncTimer,
		GPIO:  NewRPGPIODriver(),
	}
	if nvm, err := NewAT24NVMDriver(); err == nil {
		hw.NVM = nvm
	} else {
		core.RecordEvent(core.EvtNVMError, 0, 0)
	}

	fw, err := core.NewFirmware(boardConfig(), hw)
	if err != nil {
		return nil, nil, err
	}
	return fw, syncTimer, nil
}

// haltWithError flashes the onboard LED rapidly forever
func haltWithError() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Fresh state for a host that reconnected
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes the output buffer to USB. Repeated failures mean the
// host went away; pending data is dropped then.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
