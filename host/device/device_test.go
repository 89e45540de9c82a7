package device

import (
	"errors"
	"net"
	"testing"
	"time"

	"retrocrop/core"
	"retrocrop/host/sim"
)

// newBoard connects a Device to a simulated board
func newBoard(t *testing.T, mode uint8) (*Device, *sim.Sim) {
	t.Helper()
	core.ClearEvents()

	cfg := sim.DefaultConfig()
	cfg.DefaultMode = mode
	s, err := sim.New(cfg, sim.PALProgressive, nil)
	if err != nil {
		t.Fatal(err)
	}

	hostConn, devConn := net.Pipe()
	link := s.NewLink(devConn)
	served := make(chan error, 1)
	go func() { served <- link.Serve() }()

	d := New(hostConn)
	d.Timeout = time.Second
	t.Cleanup(func() {
		d.Close()
		devConn.Close()
		if err := <-served; err != nil {
			t.Errorf("Link: %v", err)
		}
	})

	if err := d.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	return d, s
}

func TestIdentify(t *testing.T) {
	d, _ := newBoard(t, 0)

	dict := d.Dictionary()
	if dict.Version != core.Version {
		t.Errorf("Version %q", dict.Version)
	}
	if dict.Config["MCU"] != "sim" {
		t.Errorf("MCU %q", dict.Config["MCU"])
	}
	if n, err := dict.ConfigInt("SYNC_TIMER_FREQ"); err != nil || n != core.SyncTimerFreq {
		t.Errorf("SYNC_TIMER_FREQ = %d, %v", n, err)
	}
	for _, name := range []string{"get_status", "next_mode", "get_crop_spec", "dump_events"} {
		if _, ok := dict.Command(name); !ok {
			t.Errorf("Command %s missing", name)
		}
	}
	if raw := d.RawDictionary(); len(raw) < 2 || raw[0] != 0x78 {
		t.Errorf("Dictionary was not sent compressed")
	}
	t.Logf("Dictionary: %d bytes compressed", len(d.RawDictionary()))
}

func TestStatusTracksSignal(t *testing.T) {
	d, s := newBoard(t, 2)

	st, err := d.Status()
	if err != nil {
		t.Fatal(err)
	}
	if st.Locked || st.Mode != 2 {
		t.Errorf("Before signal: %+v", st)
	}

	s.RunFields(3)

	st, err = d.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !st.Locked || st.Fields != 3 || st.LastFieldLines != 315 {
		t.Errorf("After 3 fields: %+v", st)
	}
	if d.ModeName(st.Mode) != "c64_full" {
		t.Errorf("Mode name %s", d.ModeName(st.Mode))
	}
}

func TestNextModePersists(t *testing.T) {
	d, s := newBoard(t, 0)

	for want := uint8(1); want < 8; want++ {
		st, err := d.NextMode()
		if err != nil {
			t.Fatal(err)
		}
		if st.Mode != want%6 {
			t.Errorf("NextMode: mode %d, want %d", st.Mode, want%6)
		}
	}

	image := s.EEPROM.Bytes()
	if image[core.NVMCookieAddr] != core.NVMCookie || image[core.NVMValueAddr] != 1 {
		t.Errorf("EEPROM holds %#x %d", image[0], image[1])
	}
}

func TestCropTable(t *testing.T) {
	d, _ := newBoard(t, 0)

	table, err := d.CropTable()
	if err != nil {
		t.Fatal(err)
	}
	want := core.DefaultCropTable()
	if len(table) != len(want) {
		t.Fatalf("Got %d modes, want %d", len(table), len(want))
	}
	for i := range want {
		if table[i] != want[i] {
			t.Errorf("Mode %d: got %+v, want %+v", i, table[i], want[i])
		}
	}
}

func TestUnknownCropSpec(t *testing.T) {
	d, _ := newBoard(t, 0)

	// The board acknowledges but answers nothing
	if _, err := d.CropSpec(42); !errors.Is(err, ErrMissingResponse) {
		t.Errorf("Expected ErrMissingResponse, got %v", err)
	}

	// The link still works afterwards
	if _, err := d.Status(); err != nil {
		t.Errorf("Status after bad index: %v", err)
	}
}

func TestEvents(t *testing.T) {
	d, s := newBoard(t, 2)

	s.RunFields(1)
	s.Drop(sim.CounterPeriod * 2)
	s.RunFields(1)

	events, err := d.Events()
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, evt := range events {
		names = append(names, core.EventName(evt.EventType))
	}
	want := []string{"SIGNAL_LOCKED", "SIGNAL_LOST!", "SIGNAL_LOCKED"}
	if len(names) != len(want) {
		t.Fatalf("Events %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Event %d: %s, want %s", i, names[i], want[i])
		}
	}
}

func TestResetKeepsMode(t *testing.T) {
	d, s := newBoard(t, 0)

	if _, err := d.NextMode(); err != nil {
		t.Fatal(err)
	}
	s.RunFields(2)

	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}

	st, err := d.Status()
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode != 1 || st.Locked || st.Fields != 0 {
		t.Errorf("After reset: %+v", st)
	}
}

func TestCallErrors(t *testing.T) {
	d, _ := newBoard(t, 0)

	if _, err := d.Call("no_such_command"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
	if _, err := d.Call("get_crop_spec"); !errors.Is(err, ErrArgCount) {
		t.Errorf("Expected ErrArgCount, got %v", err)
	}
}
