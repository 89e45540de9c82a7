package protocol

import (
	"bytes"
	"testing"
)

func TestAppendFrame(t *testing.T) {
	frame := AppendFrame(nil, MessageDest, nil)
	expected := []byte{5, MessageDest, 0x9E, 0x81, MessageValueSync}
	if !bytes.Equal(frame, expected) {
		t.Errorf("ACK frame = %v, expected %v", frame, expected)
	}

	frame = AppendFrame([]byte{0xAA}, MessageDest|3, []byte{1, 2, 3})
	if frame[0] != 0xAA {
		t.Errorf("AppendFrame clobbered the prefix")
	}
	if frame[1] != 8 || frame[2] != MessageDest|3 {
		t.Errorf("Bad header: %v", frame[1:3])
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("Missing trailing sync byte")
	}
}

func TestFrameScanner(t *testing.T) {
	good := AppendFrame(nil, MessageDest|2, []byte{7, 8})
	corrupt := AppendFrame(nil, MessageDest|2, []byte{7, 8})
	corrupt[2] ^= 0xFF

	testCases := []struct {
		name     string
		input    []byte
		frames   int
		leftover int
		resyncs  int
	}{
		{"single", good, 1, 0, 0},
		{"two back to back", append(append([]byte{}, good...), good...), 2, 0, 0},
		{"leading sync bytes", append([]byte{MessageValueSync, MessageValueSync}, good...), 1, 0, 0},
		{"partial", good[:4], 0, 4, 0},
		{"header only", good[:2], 0, 2, 0},
		{"bad crc then good", append(append([]byte{}, corrupt...), good...), 1, 0, 1},
		{"garbage then good", append([]byte{0x01, 0x02, MessageValueSync}, good...), 1, 0, 1},
	}

	for _, tc := range testCases {
		resyncs := 0
		s := frameScanner{onResync: func() { resyncs++ }}

		var frames []Frame
		rest := s.scan(tc.input, func(f Frame) { frames = append(frames, f) })

		if len(frames) != tc.frames {
			t.Errorf("%s: got %d frames, expected %d", tc.name, len(frames), tc.frames)
		}
		if len(rest) != tc.leftover {
			t.Errorf("%s: %d bytes left over, expected %d", tc.name, len(rest), tc.leftover)
		}
		if resyncs != tc.resyncs {
			t.Errorf("%s: %d resyncs, expected %d", tc.name, resyncs, tc.resyncs)
		}
		for _, f := range frames {
			if f.Sequence != MessageDest|2 || !bytes.Equal(f.Payload, []byte{7, 8}) {
				t.Errorf("%s: bad frame %+v", tc.name, f)
			}
		}
	}
}

func TestNextSequence(t *testing.T) {
	if got := NextSequence(MessageDest); got != MessageDest|1 {
		t.Errorf("NextSequence(0x10) = 0x%02X", got)
	}
	if got := NextSequence(MessageDest | 0x0F); got != MessageDest {
		t.Errorf("NextSequence(0x1F) = 0x%02X, expected wrap to 0x10", got)
	}
}
