package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var order []int

	mk := func(id int, wake uint32) *Timer {
		return &Timer{
			WakeTime: wake,
			Handler: func(*Timer) uint8 {
				order = append(order, id)
				return SF_DONE
			},
		}
	}

	s.Schedule(mk(3, 300))
	s.Schedule(mk(1, 100))
	s.Schedule(mk(2, 200))
	s.Schedule(mk(4, 200)) // Same wake time runs after the earlier one

	s.Dispatch(50)
	if len(order) != 0 {
		t.Fatalf("Nothing is due at 50, ran %v", order)
	}

	s.Dispatch(250)
	expected := []int{1, 2, 4}
	if len(order) != len(expected) {
		t.Fatalf("Ran %v, expected %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("Ran %v, expected %v", order, expected)
			break
		}
	}
	if s.Pending() != 1 {
		t.Errorf("Expected 1 pending timer, got %d", s.Pending())
	}
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	runs := 0
	timer := &Timer{
		WakeTime: 10,
		Handler: func(t *Timer) uint8 {
			runs++
			t.WakeTime += 10
			return SF_RESCHEDULE
		},
	}
	s.Schedule(timer)

	for now := uint32(0); now <= 100; now += 5 {
		s.Dispatch(now)
	}
	if runs != 10 {
		t.Errorf("Periodic timer ran %d times, expected 10", runs)
	}

	// Falling behind catches up in one dispatch
	s.Dispatch(150)
	if runs != 15 {
		t.Errorf("Catch-up ran %d times total, expected 15", runs)
	}
}

func TestSchedulerCancel(t *testing.T) {
	var s Scheduler
	ran := false
	a := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 { ran = true; return SF_DONE }}
	b := &Timer{WakeTime: 20, Handler: func(*Timer) uint8 { return SF_DONE }}
	s.Schedule(a)
	s.Schedule(b)

	s.Cancel(a)
	s.Cancel(a) // Not scheduled any more
	s.Dispatch(15)
	if ran {
		t.Error("Cancelled timer ran")
	}
	if s.Pending() != 1 {
		t.Errorf("Expected 1 pending timer, got %d", s.Pending())
	}
}

func TestSchedulerClockWrap(t *testing.T) {
	var s Scheduler
	var order []uint32
	for _, wake := range []uint32{0xFFFFFF00, 0x00000010} {
		wake := wake
		s.Schedule(&Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, wake)
			return SF_DONE
		}})
	}

	s.Dispatch(0xFFFFFFF0)
	if len(order) != 1 || order[0] != 0xFFFFFF00 {
		t.Fatalf("Before the wrap ran %v", order)
	}
	s.Dispatch(0x20)
	if len(order) != 2 {
		t.Errorf("After the wrap ran %v", order)
	}
}
