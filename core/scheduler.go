package core

// Timer is a main-loop task scheduled on the loop clock
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is a sorted list of main-loop timers. It only runs cooperative
// work (button sampling, status reports); nothing here is timing critical.
// Handlers run with interrupts enabled so a slow EEPROM write never delays
// the sync edge handler. Only the main loop may touch a Scheduler.
type Scheduler struct {
	timerList *Timer
}

// Schedule adds a timer, keeping the list sorted by WakeTime
func (s *Scheduler) Schedule(t *Timer) {
	s.insert(t)
}

// Cancel removes a timer if it is scheduled
func (s *Scheduler) Cancel(t *Timer) {
	if s.timerList == t {
		s.timerList = t.Next
		t.Next = nil
		return
	}
	for cur := s.timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// Pending returns the number of scheduled timers
func (s *Scheduler) Pending() int {
	n := 0
	for cur := s.timerList; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

func (s *Scheduler) insert(t *Timer) {
	if s.timerList == nil || before(t.WakeTime, s.timerList.WakeTime) {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer due at or before now
func (s *Scheduler) Dispatch(now uint32) {
	for s.timerList != nil && !before(now, s.timerList.WakeTime) {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			s.insert(timer)
		}
	}
}

// before compares loop clock values across the 32-bit wrap
func before(a, b uint32) bool {
	return int32(a-b) < 0
}
