package device

import (
	"fmt"

	"retrocrop/core"
)

// Clock returns the board's main-loop clock
func (d *Device) Clock() (uint32, error) {
	resp, err := d.Query("get_clock", "clock")
	if err != nil {
		return 0, err
	}
	return uint32(resp.Values["clock"]), nil
}

// Status returns the cropper state. The resolved window is not reported
// and stays zero.
func (d *Device) Status() (core.Status, error) {
	resp, err := d.Query("get_status", "crop_status")
	if err != nil {
		return core.Status{}, err
	}
	return statusFrom(resp), nil
}

// NextMode switches to the next mode, as a button press does
func (d *Device) NextMode() (core.Status, error) {
	resp, err := d.Query("next_mode", "crop_status")
	if err != nil {
		return core.Status{}, err
	}
	return statusFrom(resp), nil
}

func statusFrom(resp *Response) core.Status {
	v := resp.Values
	return core.Status{
		Mode:   uint8(v["mode"]),
		Locked: v["locked"] != 0,
		Field: core.FieldState{
			Line:  uint16(v["field_line"]),
			Count: uint8(v["field_count"]),
		},
		LastFieldLines: uint16(v["last_field_lines"]),
		Fields:         uint32(v["fields"]),
		Losses:         uint32(v["losses"]),
		CeilingHits:    uint32(v["ceiling_hits"]),
	}
}

// CropSpec returns one entry of the board's crop table
func (d *Device) CropSpec(index uint8) (core.CropSpec, error) {
	resp, err := d.Query("get_crop_spec", "crop_spec", int64(index))
	if err != nil {
		return core.CropSpec{}, err
	}
	v := resp.Values
	return core.CropSpec{
		LineFieldStart:      uint16(v["field_start"]),
		LineFieldEnd:        uint16(v["field_end"]),
		LineScreenStart:     uint16(v["screen_start"]),
		LineScreenEnd:       uint16(v["screen_end"]),
		CropStart:           uint16(v["crop_start"]),
		BorderCropLength:    uint16(v["border_length"]),
		ScreenCropLength:    uint16(v["screen_length"]),
		ScreenCropAlternate: int16(v["alternate"]),
	}, nil
}

// CropTable reads the whole table, sized by the MODES constant
func (d *Device) CropTable() (core.CropTable, error) {
	dict := d.Dictionary()
	if dict == nil {
		return nil, ErrNotIdentified
	}
	modes, err := dict.ConfigInt("MODES")
	if err != nil {
		return nil, err
	}

	table := make(core.CropTable, 0, modes)
	for i := int64(0); i < modes; i++ {
		spec, err := d.CropSpec(uint8(i))
		if err != nil {
			return nil, fmt.Errorf("mode %d: %w", i, err)
		}
		table = append(table, spec)
	}
	return table, nil
}

// Events returns the board's event ring, oldest first
func (d *Device) Events() ([]core.SyncEvent, error) {
	responses, err := d.Call("dump_events")
	if err != nil {
		return nil, err
	}

	events := make([]core.SyncEvent, 0, len(responses))
	for _, r := range responses {
		if r.Name != "sync_event" {
			continue
		}
		events = append(events, core.SyncEvent{
			EventType: uint8(r.Values["type"]),
			Clock:     uint32(r.Values["clock"]),
			Value1:    uint32(r.Values["value1"]),
			Value2:    uint32(r.Values["value2"]),
		})
	}
	return events, nil
}

// Reset restarts the firmware
func (d *Device) Reset() error {
	_, err := d.Call("reset")
	return err
}

// ModeName returns the board's name for a mode
func (d *Device) ModeName(mode uint8) string {
	dict := d.Dictionary()
	if dict == nil {
		return fmt.Sprint(mode)
	}
	return dict.EnumName("mode", int64(mode))
}
