package core

import "testing"

func TestFieldStart(t *testing.T) {
	ClearEvents()
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}

	if rig.timer.toggle {
		t.Fatal("Blanking output enabled before the first field marker")
	}

	rig.longPulse()

	s := rig.cropper.Snapshot()
	if !s.Locked || s.Fields != 1 || s.Field.Line != 0 || !s.Field.NewFieldSeen || s.Field.Count != 1 {
		t.Errorf("Unexpected state after field marker: %+v", s)
	}
	if !rig.timer.toggle {
		t.Error("Field marker did not enable the blanking output")
	}
	if !rig.gpio.levels[testLockPin] {
		t.Error("Lock LED not lit")
	}
	if rig.timer.restarts != 1 || rig.timer.restores != 1 {
		t.Errorf("Edge must restart the counter and restore phase: restarts=%d restores=%d",
			rig.timer.restarts, rig.timer.restores)
	}
	if rig.timer.polls != PulseRetryLimit {
		t.Errorf("Long pulse polled %d times, expected %d", rig.timer.polls, PulseRetryLimit)
	}

	events := Events()
	if len(events) != 1 || events[0].EventType != EvtSignalLocked {
		t.Errorf("Expected one SIGNAL_LOCKED event, got %+v", events)
	}

	// Later fields don't record another lock
	rig.shortPulses(1)
	rig.longPulse()
	if n := len(Events()); n != 1 {
		t.Errorf("Expected no new events while locked, got %d", n)
	}
}

func TestVerticalSyncBurst(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}

	rig.shortPulses(40)
	for i := 0; i < 5; i++ {
		rig.longPulse()
	}

	s := rig.cropper.Snapshot()
	if s.Fields != 1 || s.Field.Count != 1 {
		t.Errorf("A burst of broad pulses must start exactly one field, got fields=%d count=%d",
			s.Fields, s.Field.Count)
	}
	if s.LastFieldLines != 40 {
		t.Errorf("Expected 40 lines in the previous field, got %d", s.LastFieldLines)
	}

	// Equalizing pulses after the burst are ordinary short pulses
	rig.shortPulses(1)
	if s := rig.cropper.Snapshot(); s.Field.NewFieldSeen || s.Field.Line != 1 {
		t.Errorf("Short pulse after the burst: %+v", s.Field)
	}

	rig.longPulse()
	if s := rig.cropper.Snapshot(); s.Fields != 2 {
		t.Errorf("Next burst should start a second field, fields=%d", s.Fields)
	}
}

func TestLineLookahead(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}
	rig.longPulse()

	// Edges 1..7 drive lines 0..6, none of which is cropped
	rig.shortPulses(7)
	if len(rig.timer.compares) != 0 {
		t.Fatalf("Lines before LineFieldStart armed the compare: %v", rig.timer.compares)
	}

	// Edge 8 drives line 7, a border line
	rig.shortPulses(1)
	start := rig.timer.captured + 99
	expected := []Tick{start, start + 1055}
	if !equalTicks(rig.timer.compares, expected) {
		t.Errorf("Line 7 armed %v, expected %v", rig.timer.compares, expected)
	}
	if !equalTicks(rig.timer.waits, []Tick{start}) {
		t.Errorf("Line 7 waited for %v, expected %v", rig.timer.waits, []Tick{start})
	}

	// Edge 27 drives line 26, an even screen line
	rig.timer.compares = nil
	rig.shortPulses(19)
	got := rig.timer.compares[len(rig.timer.compares)-2:]
	if !equalTicks(got, []Tick{start, start + 47}) {
		t.Errorf("Line 26 armed %v, expected [%d %d]", got, start, start+47)
	}

	// Edge 28 drives line 27, odd
	rig.shortPulses(1)
	got = rig.timer.compares[len(rig.timer.compares)-2:]
	if !equalTicks(got, []Tick{start, start + 35}) {
		t.Errorf("Line 27 armed %v, expected [%d %d]", got, start, start+35)
	}
}

func TestMissedWindowLeavesLineUncropped(t *testing.T) {
	table := CropTable{
		{},
		{
			LineFieldStart: 0, LineFieldEnd: 400,
			LineScreenStart: 0, LineScreenEnd: 400,
			CropStart: 1, ScreenCropLength: 10,
		},
	}
	rig, err := newCropperRig(table, 1)
	if err != nil {
		t.Fatal(err)
	}
	rig.longPulse()

	// Releasing the pulse takes 4 polls of 30 ticks, so the counter is at
	// 120 when the window starting at 76 would be driven
	rig.timer.pollTicks = 30
	rig.shortPulses(5)

	if len(rig.timer.compares) != 0 || len(rig.timer.waits) != 0 {
		t.Errorf("Missed window armed %v and waited for %v", rig.timer.compares, rig.timer.waits)
	}
	if s := rig.cropper.Snapshot(); s.MissedWindows != 5 || s.Field.Line != 5 {
		t.Errorf("Expected 5 missed windows at line 5, got %+v", s)
	}

	// With time to spare the same window is driven in full
	rig.timer.pollTicks = 0
	rig.shortPulses(1)
	start := rig.timer.captured + 1
	if !equalTicks(rig.timer.compares, []Tick{start, start + 10}) {
		t.Errorf("Armed %v, expected [%d %d]", rig.timer.compares, start, start+10)
	}
}

func TestModeChangeAppliesToNextResolve(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 0)
	if err != nil {
		t.Fatal(err)
	}
	rig.field(20)
	if len(rig.timer.compares) != 0 {
		t.Fatal("Identity mode armed the compare")
	}

	// The window for line 20 was resolved in mode 0; line 21 will use mode 2
	*rig.mode = 2
	rig.shortPulses(1)
	if len(rig.timer.compares) != 0 {
		t.Errorf("Line resolved before the mode change was cropped")
	}
	rig.shortPulses(1)
	if len(rig.timer.compares) != 2 {
		t.Errorf("Line resolved after the mode change was not cropped: %v", rig.timer.compares)
	}
}

func TestLineCeiling(t *testing.T) {
	ClearEvents()
	table := CropTable{
		{},
		{
			LineFieldStart: 0, LineFieldEnd: 1000,
			LineScreenStart: 0, LineScreenEnd: 1000,
			CropStart: 10, ScreenCropLength: 20,
		},
	}
	rig, err := newCropperRig(table, 1)
	if err != nil {
		t.Fatal(err)
	}

	rig.field(MaxFieldLines - 1)
	if s := rig.cropper.Snapshot(); s.Field.Line != MaxFieldLines-1 || s.CeilingHits != 0 {
		t.Fatalf("Before the ceiling: %+v", s)
	}

	// This edge still crops line 499, then hits the ceiling
	armed := len(rig.timer.compares)
	rig.shortPulses(1)
	if len(rig.timer.compares) != armed+2 {
		t.Errorf("Line 499 was not cropped")
	}
	s := rig.cropper.Snapshot()
	if s.Field.Line != MaxFieldLines || s.CeilingHits != 1 || s.Window != (CropWindow{}) {
		t.Errorf("At the ceiling: %+v", s)
	}

	// Beyond the ceiling nothing is cropped and the counter stays put
	armed = len(rig.timer.compares)
	rig.shortPulses(100)
	s = rig.cropper.Snapshot()
	if len(rig.timer.compares) != armed {
		t.Errorf("Lines past the ceiling were cropped")
	}
	if s.Field.Line != MaxFieldLines || s.CeilingHits != 1 {
		t.Errorf("Past the ceiling: line=%d hits=%d", s.Field.Line, s.CeilingHits)
	}

	found := false
	for _, evt := range Events() {
		if evt.EventType == EvtLineCeiling {
			found = true
		}
	}
	if !found {
		t.Error("No LINE_CEILING event recorded")
	}

	// A field marker recovers
	rig.field(1)
	if s := rig.cropper.Snapshot(); s.Field.Line != 1 || s.LastFieldLines != MaxFieldLines {
		t.Errorf("After recovery: %+v", s)
	}
}

func TestHeartbeat(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= FieldCountWrap; i++ {
		rig.field(1)
		on := rig.gpio.levels[testHeartbeatPin]
		switch {
		case i < FieldCountWrap/2 && on:
			t.Fatalf("Heartbeat on after %d fields", i)
		case i >= FieldCountWrap/2 && i < FieldCountWrap && !on:
			t.Fatalf("Heartbeat off after %d fields", i)
		}
	}

	s := rig.cropper.Snapshot()
	if s.Field.Count != 0 {
		t.Errorf("Field count should wrap to 0, got %d", s.Field.Count)
	}
	if rig.gpio.levels[testHeartbeatPin] {
		t.Error("Heartbeat should be off after the wrap")
	}
	if s.Fields != FieldCountWrap {
		t.Errorf("Total fields %d, expected %d", s.Fields, FieldCountWrap)
	}
}

func TestNewCropperRejectsBadTable(t *testing.T) {
	if _, err := newCropperRig(CropTable{}, 0); err == nil {
		t.Error("Expected an error for an empty table")
	}
}

func equalTicks(a, b []Tick) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
