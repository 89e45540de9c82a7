package protocol

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func encodeMessage(cmdID uint16, args ...uint32) []byte {
	output := NewScratchOutput()
	EncodeVLQUint(output, uint32(cmdID))
	for _, a := range args {
		EncodeVLQUint(output, a)
	}
	return append([]byte(nil), output.Result()...)
}

func TestTransportReceive(t *testing.T) {
	output := NewScratchOutput()

	type call struct {
		id  uint16
		arg uint32
	}
	var calls []call
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		arg, err := DecodeVLQUint(data)
		calls = append(calls, call{cmdID, arg})
		return err
	})
	resets := 0
	tr.SetResetCallback(func() { resets++ })

	// In sequence: dispatched and acknowledged with the next sequence
	tr.Receive(NewSliceInputBuffer(AppendFrame(nil, MessageDest, encodeMessage(3, 42))))
	if len(calls) != 1 || calls[0] != (call{3, 42}) {
		t.Fatalf("Unexpected dispatch: %+v", calls)
	}
	if ack := AppendFrame(nil, MessageDest|1, nil); !bytes.Equal(output.Result(), ack) {
		t.Errorf("Output %v, expected ACK %v", output.Result(), ack)
	}

	// Out of sequence: dropped, the NAK repeats the expected sequence
	output.Reset()
	tr.Receive(NewSliceInputBuffer(AppendFrame(nil, MessageDest|5, encodeMessage(3, 7))))
	if len(calls) != 1 {
		t.Errorf("Out of sequence frame was dispatched")
	}
	if nak := AppendFrame(nil, MessageDest|1, nil); !bytes.Equal(output.Result(), nak) {
		t.Errorf("Output %v, expected NAK %v", output.Result(), nak)
	}

	// Host restart
	output.Reset()
	tr.Receive(NewSliceInputBuffer(AppendFrame(nil, MessageDest, encodeMessage(4, 1))))
	if resets != 1 {
		t.Errorf("Expected 1 reset callback, got %d", resets)
	}
	if len(calls) != 2 || calls[1] != (call{4, 1}) {
		t.Errorf("Frame after host restart not dispatched: %+v", calls)
	}
}

func TestTransportReceivePartial(t *testing.T) {
	output := NewScratchOutput()
	dispatched := 0
	tr := NewTransport(output, func(cmdID uint16, data *[]byte) error {
		dispatched++
		return nil
	})

	frame := AppendFrame(nil, MessageDest, encodeMessage(9))
	fifo := NewFifoBuffer(64)
	fifo.Write(frame[:3])
	tr.Receive(fifo)
	if dispatched != 0 || fifo.Available() != 3 {
		t.Fatalf("Partial frame consumed: dispatched=%d available=%d", dispatched, fifo.Available())
	}

	fifo.Write(frame[3:])
	tr.Receive(fifo)
	if dispatched != 1 || !fifo.IsEmpty() {
		t.Errorf("Completed frame not consumed: dispatched=%d available=%d", dispatched, fifo.Available())
	}
}

func TestTransportSendCommand(t *testing.T) {
	output := NewScratchOutput()
	tr := NewTransport(output, nil)

	tr.SendCommand(5, func(out OutputBuffer) {
		EncodeVLQUint(out, 1000)
		EncodeVLQBytes(out, []byte("abc"))
	})

	var frames []Frame
	var s frameScanner
	rest := s.scan(output.Result(), func(f Frame) { frames = append(frames, f) })
	if len(frames) != 1 || len(rest) != 0 {
		t.Fatalf("Expected exactly one frame, got %d (+%d bytes)", len(frames), len(rest))
	}

	payload := frames[0].Payload
	id, _ := DecodeVLQUint(&payload)
	val, _ := DecodeVLQUint(&payload)
	str, err := DecodeVLQBytes(&payload)
	if id != 5 || val != 1000 || err != nil || string(str) != "abc" {
		t.Errorf("Decoded id=%d val=%d str=%q err=%v", id, val, str, err)
	}
}

// runDevice serves a Transport on conn until the connection closes
func runDevice(conn net.Conn, tr *Transport, output *ScratchOutput) {
	fifo := NewFifoBuffer(ScratchSize)
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		fifo.Write(buf[:n])
		tr.Receive(fifo)
		if out := output.Result(); len(out) > 0 {
			if _, err := conn.Write(out); err != nil {
				return
			}
			output.Reset()
		}
	}
}

func TestHostTransportLoopback(t *testing.T) {
	hostConn, devConn := net.Pipe()

	output := NewScratchOutput()
	var dev *Transport
	dev = NewTransport(output, func(cmdID uint16, data *[]byte) error {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		dev.SendCommand(cmdID+1, func(out OutputBuffer) {
			EncodeVLQUint(out, v*2)
		})
		return nil
	})
	go runDevice(devConn, dev, output)

	host := NewHostTransport(hostConn)
	defer host.Close()

	for i := uint32(1); i <= 20; i++ {
		err := host.SendCommand(10, func(out OutputBuffer) {
			EncodeVLQUint(out, i)
		})
		if err != nil {
			t.Fatalf("Command %d: %v", i, err)
		}

		resp, err := host.ReceiveResponse(time.Second)
		if err != nil {
			t.Fatalf("Command %d: %v", i, err)
		}
		payload := resp.Payload
		id, _ := DecodeVLQUint(&payload)
		v, _ := DecodeVLQUint(&payload)
		if id != 11 || v != i*2 {
			t.Errorf("Command %d: response id=%d value=%d", i, id, v)
		}
	}

	// 20 commands wrap the 4-bit sequence
	if seq := host.CurrentSequence(); seq != MessageDest|(20&MessageSeqMask) {
		t.Errorf("Host sequence 0x%02X after 20 commands", seq)
	}
}

func TestTransportFlushesWhenFull(t *testing.T) {
	output := NewScratchOutput()
	tr := NewTransport(output, nil)

	var sent []byte
	tr.SetFlushCallback(func() {
		sent = append(sent, output.Result()...)
		output.Reset()
	})

	for i := 0; i < 100; i++ {
		tr.SendCommand(1, func(out OutputBuffer) {
			EncodeVLQUint(out, uint32(i))
		})
	}
	sent = append(sent, output.Result()...)

	count := 0
	var s frameScanner
	s.scan(sent, func(Frame) { count++ })
	if count != 100 {
		t.Errorf("Expected 100 frames after flushing, got %d", count)
	}
}
