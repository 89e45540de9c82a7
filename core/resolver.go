package core

// CropWindow is the blanking span resolved for one line. Start == 0 means
// the line is not cropped; otherwise Length is always non-zero.
type CropWindow struct {
	Start  uint16
	Length uint16
}

// ResolveWindow computes the blanking span of a line. It is a pure function
// of the line index and the mode's spec.
func ResolveWindow(fieldLine uint16, spec *CropSpec) CropWindow {
	if spec.CropStart == 0 ||
		fieldLine < spec.LineFieldStart || fieldLine > spec.LineFieldEnd {
		return CropWindow{}
	}

	if fieldLine < spec.LineScreenStart || fieldLine > spec.LineScreenEnd {
		// Above and below the screen area
		return window(spec.CropStart, int32(spec.BorderCropLength))
	}

	length := int32(spec.ScreenCropLength)
	if fieldLine&1 == 0 {
		length += int32(spec.ScreenCropAlternate)
	}
	return window(spec.CropStart, length)
}

// window builds a CropWindow, dropping spans that would be empty or
// negative and saturating spans longer than the counter range
func window(start uint16, length int32) CropWindow {
	if length <= 0 {
		return CropWindow{}
	}
	if length > 0xFFFF {
		length = 0xFFFF
	}
	return CropWindow{Start: start, Length: uint16(length)}
}
