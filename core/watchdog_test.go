package core

import "testing"

func TestOverflowDisablesBlanking(t *testing.T) {
	ClearEvents()
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		rig.field(100)
	}
	if !rig.gpio.levels[testHeartbeatPin] {
		t.Fatal("Heartbeat should be on after 60 fields")
	}

	rig.cropper.HandleOverflow()

	s := rig.cropper.Snapshot()
	if rig.timer.toggle {
		t.Error("Overflow left the blanking output enabled")
	}
	if rig.gpio.levels[testLockPin] || rig.gpio.levels[testHeartbeatPin] {
		t.Error("Overflow left an LED on")
	}
	if s.Locked || s.Losses != 1 {
		t.Errorf("Expected unlocked with one loss, got %+v", s)
	}

	events := Events()
	last := events[len(events)-1]
	if last.EventType != EvtSignalLost || last.Value1 != 100 || last.Value2 != 1 {
		t.Errorf("Expected SIGNAL_LOST at line 100, got %+v", last)
	}

	// Repeated overflows during one outage count once
	rig.cropper.HandleOverflow()
	rig.cropper.HandleOverflow()
	if s := rig.cropper.Snapshot(); s.Losses != 1 {
		t.Errorf("Repeated overflow counted %d losses", s.Losses)
	}
}

func TestRecoveryAfterOverflow(t *testing.T) {
	ClearEvents()
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}
	rig.field(50)
	rig.cropper.HandleOverflow()

	// Line syncs alone do not re-enable the output
	rig.shortPulses(10)
	if rig.timer.toggle {
		t.Error("Line syncs re-enabled blanking without a field marker")
	}

	rig.longPulse()
	s := rig.cropper.Snapshot()
	if !rig.timer.toggle || !s.Locked || !rig.gpio.levels[testLockPin] {
		t.Errorf("Field marker did not recover: toggle=%v %+v", rig.timer.toggle, s)
	}

	locks := 0
	for _, evt := range Events() {
		if evt.EventType == EvtSignalLocked {
			locks++
		}
	}
	if locks != 2 {
		t.Errorf("Expected 2 SIGNAL_LOCKED events, got %d", locks)
	}
}

func TestOverflowDuringBurst(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}

	// Signal disappears in the middle of the vertical sync burst
	rig.shortPulses(300)
	rig.longPulse()
	rig.longPulse()
	rig.cropper.HandleOverflow()

	// The first broad pulse after the outage must start a field
	rig.longPulse()
	if s := rig.cropper.Snapshot(); s.Fields != 2 || !s.Locked {
		t.Errorf("No field started after an outage inside a burst: %+v", s)
	}
}

func TestOverflowIgnoresPendingWindow(t *testing.T) {
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}
	rig.field(30)
	armed := len(rig.timer.compares)

	rig.cropper.HandleOverflow()
	if len(rig.timer.compares) != armed {
		t.Error("Overflow armed the compare")
	}
}

func TestOverflowBeforeFirstEdge(t *testing.T) {
	ClearEvents()
	rig, err := newCropperRig(DefaultCropTable(), 2)
	if err != nil {
		t.Fatal(err)
	}

	rig.cropper.HandleOverflow()

	s := rig.cropper.Snapshot()
	if rig.timer.toggle {
		t.Error("Overflow left the blanking output enabled")
	}
	if rig.gpio.levels[testLockPin] || rig.gpio.levels[testHeartbeatPin] {
		t.Error("Overflow left an LED on")
	}
	if s.Locked || s.Losses != 0 {
		t.Errorf("Never locked, so no loss should count: %+v", s)
	}
	if n := len(Events()); n != 0 {
		t.Errorf("Expected no events, got %+v", Events())
	}
	if len(rig.timer.compares) != 0 {
		t.Errorf("Overflow armed the compare: %v", rig.timer.compares)
	}
}
