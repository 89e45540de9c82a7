package core

import (
	"sync/atomic"

	"retrocrop/protocol"
)

var (
	// Firmware served by the diagnostics commands
	diagFirmware *Firmware

	// Global transport for sending responses (set by main)
	globalTransport *protocol.Transport

	// Platform reset, run from the main loop once the ACK is out
	globalResetHandler func()
	resetPending       atomic.Bool
)

// InitDiagnosticCommands registers the diagnostics link messages for fw.
// Registration order matters: the host bootstraps with identify_response
// as ID 0 and identify as ID 1.
func InitDiagnosticCommands(fw *Firmware) {
	diagFirmware = fw

	RegisterCommand("identify_response", "offset=%u data=%*s", nil)  // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_status", "", handleGetStatus)
	RegisterCommand("next_mode", "", handleNextMode)
	RegisterCommand("get_crop_spec", "index=%c", handleGetCropSpec)
	RegisterCommand("dump_events", "", handleDumpEvents)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("clock", "clock=%u")
	RegisterResponse("crop_status", "mode=%c locked=%c field_count=%c field_line=%hu last_field_lines=%hu fields=%u losses=%u ceiling_hits=%u")
	RegisterResponse("crop_spec", "index=%c field_start=%hu field_end=%hu screen_start=%hu screen_end=%hu crop_start=%hu border_length=%hu screen_length=%hu alternate=%hi")
	RegisterResponse("sync_event", "type=%c clock=%u value1=%u value2=%u")

	// MCU and CLOCK_FREQ are registered by the target
	RegisterConstant("SYNC_TIMER_FREQ", uint32(SyncTimerFreq))
	RegisterConstant("LOOP_CLOCK_FREQ", uint32(LoopClockFreq))
	RegisterConstant("MODES", fw.Config.Table.Modes())
	if len(fw.Config.ModeNames) > 0 {
		RegisterEnumeration("mode", fw.Config.ModeNames)
	}
}

// handleIdentify returns a chunk of the compressed dictionary
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleGetStatus(data *[]byte) error {
	sendStatus()
	return nil
}

// handleNextMode does what a button press does and reports the result
func handleNextMode(data *[]byte) error {
	if _, err := diagFirmware.Modes.Advance(); err != nil {
		// Still switched; only persisting failed
		DebugPrintln("[DIAG] next_mode: " + err.Error())
	}
	sendStatus()
	return nil
}

func sendStatus() {
	s := diagFirmware.Cropper.Snapshot()
	SendResponse("crop_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(s.Mode))
		protocol.EncodeVLQUint(output, boolToUint(s.Locked))
		protocol.EncodeVLQUint(output, uint32(s.Field.Count))
		protocol.EncodeVLQUint(output, uint32(s.Field.Line))
		protocol.EncodeVLQUint(output, uint32(s.LastFieldLines))
		protocol.EncodeVLQUint(output, s.Fields)
		protocol.EncodeVLQUint(output, s.Losses)
		protocol.EncodeVLQUint(output, s.CeilingHits)
	})
}

func handleGetCropSpec(data *[]byte) error {
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	table := diagFirmware.Cropper.Table()
	if index >= uint32(table.Modes()) {
		return ErrUnknownMode
	}

	spec := table[index]
	SendResponse("crop_spec", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, index)
		protocol.EncodeVLQUint(output, uint32(spec.LineFieldStart))
		protocol.EncodeVLQUint(output, uint32(spec.LineFieldEnd))
		protocol.EncodeVLQUint(output, uint32(spec.LineScreenStart))
		protocol.EncodeVLQUint(output, uint32(spec.LineScreenEnd))
		protocol.EncodeVLQUint(output, uint32(spec.CropStart))
		protocol.EncodeVLQUint(output, uint32(spec.BorderCropLength))
		protocol.EncodeVLQUint(output, uint32(spec.ScreenCropLength))
		protocol.EncodeVLQInt(output, int32(spec.ScreenCropAlternate))
	})
	return nil
}

// handleDumpEvents sends the event ring, oldest first
func handleDumpEvents(data *[]byte) error {
	for _, evt := range Events() {
		evt := evt
		SendResponse("sync_event", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(evt.EventType))
			protocol.EncodeVLQUint(output, evt.Clock)
			protocol.EncodeVLQUint(output, evt.Value1)
			protocol.EncodeVLQUint(output, evt.Value2)
		})
	}
	return nil
}

// handleReset defers the reset to the main loop so the ACK goes out first
func handleReset(_ *[]byte) error {
	resetPending.Store(true)
	return nil
}

// CheckPendingReset runs the reset handler if a reset was requested.
// Hardware handlers don't return; hosted ones see each request once.
func CheckPendingReset() {
	if globalResetHandler != nil && resetPending.Swap(false) {
		globalResetHandler()
	}
}

// SetResetHandler sets the platform reset
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// SetGlobalTransport sets the transport responses are sent on
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse sends a registered response. Without a transport it does
// nothing.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		// All responses are registered at init
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
