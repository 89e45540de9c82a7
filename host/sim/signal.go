package sim

// Pulse is the leading edge of one sync pulse
type Pulse struct {
	At    uint64 // Absolute tick of the leading edge
	Width uint32 // Ticks until the slicer releases
	Field int
	Index int // Position within the field, 0 is the first pre-equalizing pulse
}

// Standard describes the sync pattern of one field. The vertical interval
// is PreEq equalizing pulses, Broad broad pulses and PostEq equalizing
// pulses at half-line spacing, followed by Lines line syncs.
type Standard struct {
	Name string

	LineTicks  uint32
	SyncTicks  uint32
	BroadTicks uint32
	EqTicks    uint32

	PreEq, Broad, PostEq int
	Lines                int

	// Interlaced fields alternate between a half line short and a half
	// line long at the end of the field
	Interlaced bool
}

// PAL is 625-line interlaced video on the 16 MHz sync timer
var PAL = Standard{
	Name:       "pal",
	LineTicks:  1024,
	SyncTicks:  75,
	BroadTicks: 437,
	EqTicks:    38,
	PreEq:      5,
	Broad:      5,
	PostEq:     5,
	Lines:      305,
	Interlaced: true,
}

// PALProgressive is the 312-line field most home computers send
var PALProgressive = Standard{
	Name:       "pal-progressive",
	LineTicks:  1024,
	SyncTicks:  75,
	BroadTicks: 437,
	EqTicks:    38,
	PreEq:      5,
	Broad:      5,
	PostEq:     5,
	Lines:      305,
}

// Standards lists the built-in standards by name
var Standards = map[string]Standard{
	PAL.Name:            PAL,
	PALProgressive.Name: PALProgressive,
}

func (s Standard) halfLine() uint64 {
	return uint64(s.LineTicks / 2)
}

func (s Standard) vsyncPulses() int {
	return s.PreEq + s.Broad + s.PostEq
}

// FieldTicks returns the length of a field
func (s Standard) FieldTicks(field int) uint64 {
	n := uint64(s.vsyncPulses())*s.halfLine() + uint64(s.Lines-1)*uint64(s.LineTicks)
	if s.Interlaced && field%2 == 1 {
		return n + 3*s.halfLine()
	}
	return n + s.halfLine()
}

// FieldMarker returns the index of the pulse that starts a field
func (s Standard) FieldMarker() int {
	return s.PreEq
}

// Field returns the pulses of one field starting at tick start
func (s Standard) Field(field int, start uint64) []Pulse {
	pulses := make([]Pulse, 0, s.vsyncPulses()+s.Lines)

	at := start
	for i := 0; i < s.vsyncPulses(); i++ {
		width := s.EqTicks
		if i >= s.PreEq && i < s.PreEq+s.Broad {
			width = s.BroadTicks
		}
		pulses = append(pulses, Pulse{At: at, Width: width, Field: field, Index: i})
		at += s.halfLine()
	}

	for j := 0; j < s.Lines; j++ {
		pulses = append(pulses, Pulse{
			At:    at + uint64(j)*uint64(s.LineTicks),
			Width: s.SyncTicks,
			Field: field,
			Index: s.vsyncPulses() + j,
		})
	}
	return pulses
}

// LinePulse returns the index of the pulse whose edge blanks field line
// line. Broad pulses after the marker don't count as lines, and the window
// of a line is driven on the edge after the one that counted it.
func (s Standard) LinePulse(line int) int {
	return s.PreEq + s.Broad + line
}
