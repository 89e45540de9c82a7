package protocol

import "sync/atomic"

// CommandHandler runs one received message. It must consume its own
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device end of the link. Receive runs in the main loop;
// responses may be sent from any goroutine that also owns the output.
type Transport struct {
	scanner      frameScanner
	nextSequence atomic.Uint32 // Expected from the host, echoed in every ACK and response

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

// NewTransport creates a transport that writes frames to output and hands
// received messages to handler
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		output:  output,
		handler: handler,
	}
	t.nextSequence.Store(MessageDest)
	t.scanner.onResync = t.encodeAckNak
	return t
}

// Receive consumes every complete frame in input
func (t *Transport) Receive(input InputBuffer) {
	rest := t.scanner.scan(input.Data(), t.receiveFrame)
	if consumed := input.Available() - len(rest); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) receiveFrame(f Frame) {
	expected := uint8(t.nextSequence.Load())
	if f.Sequence == MessageDest && expected != MessageDest {
		// The host restarted its sequence
		t.nextSequence.Store(MessageDest)
		expected = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	// A frame out of sequence is dropped; the ACK below then tells the
	// host which sequence to retransmit from
	if f.Sequence == expected {
		t.nextSequence.Store(uint32(NextSequence(f.Sequence)))
		_ = t.parseFrame(f.Payload)
	}
	t.encodeAckNak()
}

// parseFrame dispatches each message in a payload
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.scanner.unsynced = true
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scanner.unsynced = true
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			// The rest of the frame can't be located without this
			// message's arguments
			return err
		}
	}
	return nil
}

// encodeAckNak sends an empty frame carrying the expected sequence. It
// follows the responses of the frame and is flushed at once.
func (t *Transport) encodeAckNak() {
	t.output.Output(AppendFrame(make([]byte, 0, MessageLengthMin), uint8(t.nextSequence.Load()), nil))
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame assembles one frame in place in the output buffer. If the
// buffer might not hold another frame it is flushed first.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	if f, ok := t.output.(interface{ Free() int }); ok && f.Free() < MessageLengthMax && t.flushCallback != nil {
		t.flushCallback()
	}

	cursor := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(t.nextSequence.Load())})

	frameData(t.output)

	t.output.Update(cursor, uint8(len(t.output.DataSince(cursor))+MessageTrailerSize))
	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand sends one message with its arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, e.g. after a USB reconnect
func (t *Transport) Reset() {
	t.scanner.unsynced = false
	t.nextSequence.Store(MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a function run when the host restarts
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback registers a function that pushes pending output to the wire
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
