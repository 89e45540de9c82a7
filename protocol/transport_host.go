//go:build !tinygo

package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrStopped    = errors.New("transport stopped")
	ErrAckTimeout = errors.New("ACK timeout")
	ErrNoResponse = errors.New("response timeout")
)

// ResponseHandler observes every response frame as it arrives
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is a response frame received by the host
type Message struct {
	Sequence uint8
	Payload  []byte // Owned copy
	CRC      uint16
}

// HostTransport is the host end of the link. A background goroutine reads
// the port; SendCommand blocks until the device acknowledges.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq atomic.Uint32

	scanner frameScanner
	input   *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	handlerMu       sync.Mutex
	responseHandler ResponseHandler

	writeMutex sync.Mutex
	stopOnce   sync.Once
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewHostTransport starts reading from port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		input:        NewFifoBuffer(ScratchSize),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)

	go t.readLoop()
	return t
}

// SendCommand sends one message and waits up to two seconds for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout sends one message and waits for its ACK
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()
	if n := MessageHeaderSize + len(payload) + MessageTrailerSize; n > MessageLengthMax {
		return fmt.Errorf("message too long: %d bytes (max %d)", n, MessageLengthMax)
	}

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := uint8(t.currentSeq.Load())
	msg := AppendFrame(nil, seq, payload)
	if _, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}

	return t.waitForAck(seq, timeout)
}

// waitForAck waits for the ACK that moves the device past seq
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	want := NextSequence(seq)
	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != want {
				// NAK or a stale ACK, keep waiting for ours
				continue
			}
			t.currentSeq.Store(uint32(want))
			return nil
		case <-timer.C:
			return fmt.Errorf("%w after %v", ErrAckTimeout, timeout)
		case <-t.stopChan:
			return ErrStopped
		}
	}
}

// ReceiveResponse returns the next response frame
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrNoResponse, timeout)
	case <-t.stopChan:
		return nil, ErrStopped
	}
}

// DrainResponses discards responses that nobody waited for
func (t *HostTransport) DrainResponses() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// SetResponseHandler installs a callback run for every response
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.responseHandler = handler
}

// CurrentSequence returns the sequence of the next command
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(t.currentSeq.Load())
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			rest := t.scanner.scan(t.input.Data(), t.dispatch)
			t.input.Pop(t.input.Available() - len(rest))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// dispatch routes ACKs and responses to their channels
func (t *HostTransport) dispatch(f Frame) {
	msg := &Message{
		Sequence: f.Sequence,
		Payload:  append([]byte(nil), f.Payload...),
		CRC:      f.CRC,
	}

	if f.IsAck() {
		select {
		case t.ackChan <- msg:
		default:
		}
		return
	}

	t.handlerMu.Lock()
	handler := t.responseHandler
	t.handlerMu.Unlock()
	if handler != nil {
		data := msg.Payload
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = handler(uint16(cmdID), &data)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		// Full: drop the oldest
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}
