// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import "testing"

func TestMergeOverlaps_AdjacentSymbolRanges(t *testing.T) {
	pieces := []Piece{
		{Path: "a.go", StartLine: 10, EndLine: 20, Text: "10\n11\n12\n13\n14\n15\n16\n17\n18\n19\n20"},
		{Path: "a.go", StartLine: 21, EndLine: 25, Text: "21\n22\n23\n24\n25"},
		{Path: "a.go", StartLine: 30, EndLine: 40, Text: "30..40"},
	}
	merged := MergeOverlaps(pieces)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged pieces, got %d: %+v", len(merged), merged)
	}
	if merged[0].StartLine != 10 || merged[0].EndLine != 25 {
		t.Fatalf("expected [10-25], got [%d-%d]", merged[0].StartLine, merged[0].EndLine)
	}
	if merged[1].StartLine != 30 || merged[1].EndLine != 40 {
		t.Fatalf("expected [30-40], got [%d-%d]", merged[1].StartLine, merged[1].EndLine)
	}
}

func TestMergeOverlaps_PreservesFileOrder(t *testing.T) {
	pieces := []Piece{
		{Path: "b.go", StartLine: 1, EndLine: 2, Text: "x"},
		{Path: "a.go", StartLine: 1, EndLine: 2, Text: "y"},
	}
	merged := MergeOverlaps(pieces)
	if merged[0].Path != "b.go" || merged[1].Path != "a.go" {
		t.Fatalf("expected first-seen file order preserved, got %+v", merged)
	}
}

func TestMergeOverlaps_NonOverlappingStaysSeparate(t *testing.T) {
	pieces := []Piece{
		{Path: "a.go", StartLine: 1, EndLine: 5, Text: "one\ntwo\nthree\nfour\nfive"},
		{Path: "a.go", StartLine: 10, EndLine: 12, Text: "ten\neleven\ntwelve"},
	}
	merged := MergeOverlaps(pieces)
	if len(merged) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(merged))
	}
}
