package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"retrocrop/host/sim"
)

// ticksPerColumn is the horizontal resolution of the ASCII picture
const ticksPerColumn = 16

// lineSpans groups one field's spans by field line
func lineSpans(spans []sim.Span, field int, std sim.Standard) map[int][]sim.Span {
	lines := make(map[int][]sim.Span)
	for _, sp := range spans {
		if sp.Field != field {
			continue
		}
		line := sp.Pulse - std.LinePulse(0)
		lines[line] = append(lines[line], sp)
	}
	return lines
}

// renderLine draws one line: '|' for sync, '#' for blanked, '.' for video
func renderLine(spans []sim.Span, lineTicks, syncTicks uint32) string {
	cols := int(lineTicks / ticksPerColumn)
	row := make([]byte, cols)
	for i := range row {
		switch {
		case uint32(i*ticksPerColumn) < syncTicks:
			row[i] = '|'
		default:
			row[i] = '.'
		}
	}
	for _, sp := range spans {
		for i := int(sp.From / ticksPerColumn); i < cols && uint32(i*ticksPerColumn) < sp.To; i++ {
			row[i] = '#'
		}
	}
	return string(row)
}

// printSpans lists the blanking of every cropped line in a field
func printSpans(w io.Writer, spans []sim.Span, field int, std sim.Standard, ascii bool) {
	lines := lineSpans(spans, field, std)
	order := make([]int, 0, len(lines))
	for line := range lines {
		order = append(order, line)
	}
	sort.Ints(order)

	for _, line := range order {
		if ascii {
			fmt.Fprintf(w, "%3d %s\n", line, renderLine(lines[line], std.LineTicks, std.SyncTicks))
			continue
		}
		parts := make([]string, 0, len(lines[line]))
		for _, sp := range lines[line] {
			s := fmt.Sprintf("%d-%d", sp.From, sp.To)
			if sp.Forced {
				s += "*"
			}
			parts = append(parts, s)
		}
		fmt.Fprintf(w, "line %3d: %s\n", line, strings.Join(parts, " "))
	}
}
