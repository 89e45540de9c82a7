package protocol

// Frame is one verified frame taken off the wire
type Frame struct {
	Sequence uint8
	Payload  []byte // Between header and trailer; aliases the input
	CRC      uint16
}

// IsAck reports whether the frame carries no messages
func (f Frame) IsAck() bool {
	return len(f.Payload) == 0
}

// AppendFrame appends a complete frame around payload to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, uint8(MessageHeaderSize+len(payload)+MessageTrailerSize), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync)
}

// frameScanner splits a byte stream into frames. After any framing error
// it discards input up to the next sync byte.
type frameScanner struct {
	unsynced bool

	// onResync runs each time a sync byte ends a discard run
	onResync func()
}

// scan passes every complete frame in data to emit and returns the bytes
// that belong to an incomplete frame
func (s *frameScanner) scan(data []byte, emit func(Frame)) []byte {
	for len(data) > 0 {
		if s.unsynced {
			i := 0
			for i < len(data) && data[i] != MessageValueSync {
				i++
			}
			if i == len(data) {
				return nil
			}
			data = data[i+1:]
			s.unsynced = false
			if s.onResync != nil {
				s.onResync()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		seq := data[MessagePositionSeq]
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax ||
			seq&^MessageSeqMask != MessageDest {
			s.unsynced = true
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.unsynced = true
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.unsynced = true
			continue
		}

		emit(Frame{
			Sequence: seq,
			Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
			CRC:      frameCRC,
		})
		data = data[msgLen:]
	}
	return data
}
