// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package code

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineTableRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		offsets   []int
		lines     []int
		firstLine int
		want      []LineEntry
	}{
		{
			name:      "empty",
			firstLine: 1,
			want:      []LineEntry{{0, 1}},
		},
		{
			name:      "singleLine",
			offsets:   []int{0, 2, 4},
			lines:     []int{1, 1, 1},
			firstLine: 1,
			want:      []LineEntry{{0, 1}},
		},
		{
			name:      "advancing",
			offsets:   []int{0, 2, 4, 10},
			lines:     []int{1, 2, 2, 5},
			firstLine: 1,
			want:      []LineEntry{{0, 1}, {2, 2}, {10, 5}},
		},
		{
			name:      "backwardLine",
			offsets:   []int{0, 2},
			lines:     []int{7, 3},
			firstLine: 7,
			want:      []LineEntry{{0, 7}, {2, 3}},
		},
		{
			name:      "largeByteDelta",
			offsets:   []int{0, 600},
			lines:     []int{1, 2},
			firstLine: 1,
			want:      []LineEntry{{0, 1}, {600, 2}},
		},
		{
			name:      "largeLineDelta",
			offsets:   []int{0, 2},
			lines:     []int{1, 500},
			firstLine: 1,
			want:      []LineEntry{{0, 1}, {2, 500}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			table := EncodeLineTable(test.offsets, test.lines, test.firstLine)
			got := DecodeLineTable(table, test.firstLine)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("DecodeLineTable (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLargeLineDeltaFillers(t *testing.T) {
	// A +500 line jump needs three filler chunks of +127 before the
	// remainder; intermediate breakpoints must not invent offsets.
	table := EncodeLineTable([]int{0, 4}, []int{1, 501}, 1)
	if got := LineForOffset(table, 1, 4); got != 501 {
		t.Errorf("LineForOffset(4) = %d, want 501", got)
	}
	if got := LineForOffset(table, 1, 0); got != 1 {
		t.Errorf("LineForOffset(0) = %d, want 1", got)
	}
}

func TestLineForOffset(t *testing.T) {
	table := EncodeLineTable([]int{0, 2, 8}, []int{1, 3, 4}, 1)
	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{1, 1},
		{2, 3},
		{7, 3},
		{8, 4},
		{100, 4},
	}
	for _, test := range tests {
		if got := LineForOffset(table, 1, test.offset); got != test.want {
			t.Errorf("LineForOffset(%d) = %d, want %d", test.offset, got, test.want)
		}
	}
}
