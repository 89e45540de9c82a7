package core

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFirmware(t *testing.T) {
	gpio := newFakeGPIO()
	nvm := newMemNVM()
	WritePersisted(nvm, 4)

	fw, err := NewFirmware(testConfig(), Hardware{Timer: newFakeTimer(), GPIO: gpio, NVM: nvm})
	if err != nil {
		t.Fatal(err)
	}
	if fw.Modes.Active() != 4 {
		t.Errorf("Booted in mode %d, expected the persisted 4", fw.Modes.Active())
	}
	if !gpio.outputs[testLockPin] || !gpio.outputs[testHeartbeatPin] || !gpio.inputs[testButtonPin] {
		t.Error("Pins not configured")
	}
	if fw.ModeName(4) != "c64_full_b" || fw.ModeName(9) != "9" {
		t.Errorf("Mode names %q %q", fw.ModeName(4), fw.ModeName(9))
	}
}

func TestNewFirmwareRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Table = CropTable{{CropStart: 1, BorderCropLength: 1}}
	_, err := NewFirmware(cfg, Hardware{Timer: newFakeTimer(), GPIO: newFakeGPIO()})
	if !errors.Is(err, ErrIdentityMode) {
		t.Errorf("Expected ErrIdentityMode, got %v", err)
	}

	cfg = testConfig()
	cfg.DefaultMode = 6
	_, err = NewFirmware(cfg, Hardware{Timer: newFakeTimer(), GPIO: newFakeGPIO()})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Expected ErrUnknownMode, got %v", err)
	}

	for _, tweak := range []func(*Config){
		func(c *Config) { c.ButtonThreshold = 0 },
		func(c *Config) { c.ButtonInterval = 0 },
	} {
		cfg = testConfig()
		tweak(&cfg)
		_, err = NewFirmware(cfg, Hardware{Timer: newFakeTimer(), GPIO: newFakeGPIO()})
		if !errors.Is(err, ErrButtonTiming) {
			t.Errorf("Expected ErrButtonTiming for threshold=%d interval=%d, got %v",
				cfg.ButtonThreshold, cfg.ButtonInterval, err)
		}
	}
}

func TestFirmwareButtonTask(t *testing.T) {
	gpio := newFakeGPIO()
	nvm := newMemNVM()
	fw, err := NewFirmware(testConfig(), Hardware{Timer: newFakeTimer(), GPIO: gpio, NVM: nvm})
	if err != nil {
		t.Fatal(err)
	}
	fw.Start(0)

	// Hold the button for 200 ms, sampled every 10 ms
	for now := uint32(0); now <= TimerFromMS(400); now += TimerFromMS(1) {
		gpio.levels[testButtonPin] = !(now >= TimerFromMS(100) && now < TimerFromMS(300))
		fw.RunTasks(now)
	}

	if fw.Modes.Active() != 1 {
		t.Errorf("One long press should advance once, mode is %d", fw.Modes.Active())
	}
	if got := ReadPersisted(nvm, 0xFF); got != 1 {
		t.Errorf("Persisted %d", got)
	}
}

func TestFirmwareStatusTask(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	SetDebugEnabled(true)
	defer func() {
		SetDebugEnabled(false)
		SetDebugWriter(func(string) {})
	}()

	fw, err := NewFirmware(testConfig(), Hardware{Timer: newFakeTimer(), GPIO: newFakeGPIO()})
	if err != nil {
		t.Fatal(err)
	}
	fw.Start(0)
	fw.RunTasks(TimerFromMS(3500))

	status := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "[CROP] mode=off") {
			status++
		}
	}
	if status != 3 {
		t.Errorf("Expected 3 status lines, got %q", lines)
	}
}
