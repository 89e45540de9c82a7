package core

import (
	"strings"
	"testing"

	"retrocrop/protocol"
)

// decodedMsg is a response taken off the device output
type decodedMsg struct {
	Name string
	Args []int32
	Data []byte // The %*s argument, if any
}

type diagRig struct {
	t      *testing.T
	fw     *Firmware
	timer  *fakeTimer
	gpio   *fakeGPIO
	nvm    *memNVM
	output *protocol.ScratchOutput
	tr     *protocol.Transport
	seq    uint8
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ButtonPin = testButtonPin
	cfg.LockLEDPin = testLockPin
	cfg.HeartbeatLEDPin = testHeartbeatPin
	return cfg
}

// newDiagRig builds a firmware on fakes and serves it on a fresh registry
func newDiagRig(t *testing.T) *diagRig {
	t.Helper()

	oldRegistry, oldDictionary, oldTransport := globalRegistry, globalDictionary, globalTransport
	globalRegistry = NewCommandRegistry()
	globalDictionary = NewDictionary(globalRegistry)
	t.Cleanup(func() {
		globalRegistry, globalDictionary, globalTransport = oldRegistry, oldDictionary, oldTransport
		diagFirmware = nil
		SetResetHandler(nil)
		resetPending.Store(false)
	})

	r := &diagRig{
		t:      t,
		timer:  newFakeTimer(),
		gpio:   newFakeGPIO(),
		nvm:    newMemNVM(),
		output: protocol.NewScratchOutput(),
		seq:    protocol.MessageDest,
	}
	fw, err := NewFirmware(testConfig(), Hardware{Timer: r.timer, GPIO: r.gpio, NVM: r.nvm})
	if err != nil {
		t.Fatal(err)
	}
	r.fw = fw

	InitDiagnosticCommands(fw)
	r.tr = protocol.NewTransport(r.output, DispatchCommand)
	SetGlobalTransport(r.tr)
	return r
}

// send delivers one command frame and returns the responses it produced
func (r *diagRig) send(name string, args ...uint32) []decodedMsg {
	r.t.Helper()

	cmd, ok := globalRegistry.GetCommandByName(name)
	if !ok {
		r.t.Fatalf("Command %s not registered", name)
	}
	payload := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(payload, uint32(cmd.ID))
	for _, a := range args {
		protocol.EncodeVLQUint(payload, a)
	}

	frame := protocol.AppendFrame(nil, r.seq, payload.Result())
	r.seq = protocol.NextSequence(r.seq)
	r.output.Reset()
	r.tr.Receive(protocol.NewSliceInputBuffer(frame))

	return r.decode(r.output.Result())
}

func (r *diagRig) decode(out []byte) []decodedMsg {
	r.t.Helper()

	var msgs []decodedMsg
	acks := 0
	for len(out) > 0 {
		n := int(out[protocol.MessagePositionLen])
		if n < protocol.MessageLengthMin || n > len(out) {
			r.t.Fatalf("Malformed output % X", out)
		}
		payload := out[protocol.MessageHeaderSize : n-protocol.MessageTrailerSize]
		out = out[n:]
		if len(payload) == 0 {
			acks++
			continue
		}

		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			r.t.Fatal(err)
		}
		cmd, ok := globalRegistry.GetCommand(uint16(id))
		if !ok || !cmd.IsResponse() {
			r.t.Fatalf("Device sent unknown response %d", id)
		}

		msg := decodedMsg{Name: cmd.Name}
		for _, field := range strings.Fields(cmd.Format) {
			if strings.HasSuffix(field, "%*s") {
				msg.Data, err = protocol.DecodeVLQBytes(&payload)
			} else {
				var v int32
				v, err = protocol.DecodeVLQInt(&payload)
				msg.Args = append(msg.Args, v)
			}
			if err != nil {
				r.t.Fatalf("Decoding %s: %v", cmd.Name, err)
			}
		}
		msgs = append(msgs, msg)
	}
	if acks != 1 {
		r.t.Errorf("Expected exactly one ACK per command, got %d", acks)
	}
	return msgs
}
