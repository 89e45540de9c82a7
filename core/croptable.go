package core

import "errors"

// CropSpec is the blanking geometry of one mode. Line numbers count sync
// pulses since the field marker; offsets and lengths are sync timer ticks
// measured from the end of the line's sync pulse.
type CropSpec struct {
	LineFieldStart  uint16 // First line that may be cropped
	LineFieldEnd    uint16 // Last line that may be cropped
	LineScreenStart uint16 // First line of the visible screen area
	LineScreenEnd   uint16 // Last line of the visible screen area

	CropStart        uint16 // Offset where blanking begins; 0 disables the mode
	BorderCropLength uint16 // Blanking length above and below the screen area

	ScreenCropLength    uint16 // Blanking length inside the screen area
	ScreenCropAlternate int16  // Added to ScreenCropLength on even lines
}

// CropTable holds one CropSpec per mode. Entry 0 is always the identity mode.
type CropTable []CropSpec

var (
	ErrEmptyTable   = errors.New("crop table is empty")
	ErrIdentityMode = errors.New("crop table entry 0 must not crop")
	ErrTooManyModes = errors.New("crop table has more than 255 modes")
	ErrBadRange     = errors.New("crop table line range is inverted")
)

// dtvEarlyStart moves the DTV crop window this many ticks earlier
const dtvEarlyStart = 20

// DefaultCropTable returns the built-in presets
func DefaultCropTable() CropTable {
	return CropTable{
		// No cropping at all
		{},

		// C64, only crop the left edge of each line
		{
			LineFieldStart: 7, LineFieldEnd: 307,
			LineScreenStart: 0, LineScreenEnd: 400,
			CropStart:        99,
			BorderCropLength: 1055,
			ScreenCropLength: 35, ScreenCropAlternate: 12,
		},

		// Full C64 cropping
		{
			LineFieldStart: 7, LineFieldEnd: 307,
			LineScreenStart: 25, LineScreenEnd: 293,
			CropStart:        99,
			BorderCropLength: 1055,
			ScreenCropLength: 35, ScreenCropAlternate: 12,
		},

		// Full C64 cropping without alternating left edge (a)
		{
			LineFieldStart: 7, LineFieldEnd: 307,
			LineScreenStart: 25, LineScreenEnd: 293,
			CropStart:        99,
			BorderCropLength: 1055,
			ScreenCropLength: 35,
		},

		// Full C64 cropping without alternating left edge (b)
		{
			LineFieldStart: 7, LineFieldEnd: 307,
			LineScreenStart: 25, LineScreenEnd: 293,
			CropStart:        99,
			BorderCropLength: 1055,
			ScreenCropLength: 41,
		},

		// Full DTV cropping with alternating left edge
		{
			LineFieldStart: 7, LineFieldEnd: 307,
			LineScreenStart: 25, LineScreenEnd: 293,
			CropStart:        99 - dtvEarlyStart,
			BorderCropLength: 1055 + dtvEarlyStart,
			ScreenCropLength: 35 + dtvEarlyStart, ScreenCropAlternate: 12,
		},
	}
}

// Modes returns the number of modes as a mode index bound
func (t CropTable) Modes() uint8 {
	return uint8(len(t))
}

// Spec returns the CropSpec of a mode. Out-of-range modes get the identity
// spec.
func (t CropTable) Spec(mode uint8) *CropSpec {
	if int(mode) >= len(t) {
		return &identitySpec
	}
	return &t[mode]
}

var identitySpec CropSpec

// Validate checks the table invariants
func (t CropTable) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	if len(t) > 255 {
		return ErrTooManyModes
	}
	if t[0].CropStart != 0 {
		return ErrIdentityMode
	}
	for i := range t {
		s := &t[i]
		if s.CropStart == 0 {
			continue
		}
		if s.LineFieldStart > s.LineFieldEnd || s.LineScreenStart > s.LineScreenEnd {
			return &ModeError{Mode: i, Err: ErrBadRange}
		}
	}
	return nil
}

// ModeError reports a problem with one crop table entry
type ModeError struct {
	Mode int
	Err  error
}

func (e *ModeError) Error() string {
	return e.Err.Error() + " (mode " + itoa(e.Mode) + ")"
}

func (e *ModeError) Unwrap() error {
	return e.Err
}
