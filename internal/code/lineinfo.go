// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package code

// LineEntry is one entry of a decoded line table: the line attributed
// to every instruction at or after Offset, until the next entry.
type LineEntry struct {
	Offset int
	Line   int
}

// EncodeLineTable builds the run-length-encoded line table an
// [Object]'s LineTable field holds, from the (already-assigned) byte
// offset and source line of every instruction in order. firstLine is
// the line the function itself begins on, implicitly in effect at
// offset 0.
//
// Each entry is an unsigned byte delta followed by a signed line
// delta. A byte delta over 255 is split into (255, 0) filler pairs; a
// line delta outside [-127, 127] is split into (0, ±127) pairs, so a
// jump of any size in either dimension can be represented.
func EncodeLineTable(offsets, lines []int, firstLine int) []byte {
	var buf []byte
	prevOffset, prevLine := 0, firstLine
	for i := range offsets {
		if lines[i] == prevLine {
			continue
		}
		dOffset := offsets[i] - prevOffset
		dLine := lines[i] - prevLine
		for dOffset > 255 {
			buf = append(buf, 255, 0)
			dOffset -= 255
		}
		for dLine > 127 {
			buf = append(buf, byte(dOffset), 127)
			dOffset = 0
			dLine -= 127
		}
		for dLine < -127 {
			negMax := int8(-127)
			buf = append(buf, byte(dOffset), byte(negMax))
			dOffset = 0
			dLine += 127
		}
		buf = append(buf, byte(dOffset), byte(int8(dLine)))
		prevOffset, prevLine = offsets[i], lines[i]
	}
	return buf
}

// DecodeLineTable expands table into the full sequence of (offset,
// line) breakpoints it encodes, always starting with {0, firstLine}.
func DecodeLineTable(table []byte, firstLine int) []LineEntry {
	entries := []LineEntry{{Offset: 0, Line: firstLine}}
	offset, line := 0, firstLine
	for i := 0; i+1 < len(table); i += 2 {
		offset += int(table[i])
		line += int(int8(table[i+1]))
		if table[i+1] == 0 {
			// Filler pair for a byte delta over 255, not a breakpoint of
			// its own.
			continue
		}
		if last := &entries[len(entries)-1]; last.Offset == offset {
			// Saturated line-delta chunks repeat an offset; only the
			// final accumulated line matters.
			last.Line = line
			continue
		}
		entries = append(entries, LineEntry{Offset: offset, Line: line})
	}
	return entries
}

// LineForOffset returns the source line attributed to the instruction
// at byte offset target within a function whose LineTable is table and
// whose first line is firstLine.
func LineForOffset(table []byte, firstLine, target int) int {
	line := firstLine
	for _, e := range DecodeLineTable(table, firstLine) {
		if e.Offset > target {
			break
		}
		line = e.Line
	}
	return line
}
