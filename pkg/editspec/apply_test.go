// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package editspec

import (
	"testing"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

func TestApply_ReplacePreservesCRLF(t *testing.T) {
	fc := LoadFileContent([]byte("line1\r\nline2\r\nline3\r\n"))
	if fc.EOL != "\r\n" || !fc.TrailingNewline {
		t.Fatalf("unexpected fc: %+v", fc)
	}

	fb := FileBlock{Path: "a.txt", Ops: []Op{
		{Kind: OpReplace, Start: 2, End: 2, Old: "line2", HasOld: true, New: "modified line2", HasNew: true},
	}}
	if err := ValidateFileBlock(fb, fc); err != nil {
		t.Fatalf("ValidateFileBlock: %v", err)
	}

	lines := ApplyOps(fc, fb.Ops)
	out := Render(fc, lines)
	want := "line1\r\nmodified line2\r\nline3\r\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestApply_InsertAtZeroPrepends(t *testing.T) {
	fc := LoadFileContent([]byte("A\nB\n"))
	fb := FileBlock{Path: "b.txt", Ops: []Op{
		{Kind: OpInsert, Start: 0, End: 0, New: "H", HasNew: true},
	}}
	if err := ValidateFileBlock(fb, fc); err != nil {
		t.Fatalf("ValidateFileBlock: %v", err)
	}
	lines := ApplyOps(fc, fb.Ops)
	out := Render(fc, lines)
	if string(out) != "H\nA\nB\n" {
		t.Fatalf("got %q", out)
	}
}

func TestApply_EmptyNewIsDelete(t *testing.T) {
	fc := LoadFileContent([]byte("a\nb\nc\n"))
	fb := FileBlock{Path: "x.txt", Ops: []Op{
		{Kind: OpReplace, Start: 2, End: 2, New: "", HasNew: true},
	}}
	lines := ApplyOps(fc, fb.Ops)
	out := Render(fc, lines)
	if string(out) != "a\nc\n" {
		t.Fatalf("got %q", out)
	}
}

func TestValidate_GuardMismatchIsConflict(t *testing.T) {
	fc := LoadFileContent([]byte("a\nb\nc\n"))
	fb := FileBlock{Path: "x.txt", Ops: []Op{
		{Kind: OpReplace, Start: 1, End: 1, GuardCID: "0000000000000000", HasGuard: true, New: "z", HasNew: true},
	}}
	err := ValidateFileBlock(fb, fc)
	if err == nil {
		t.Fatal("expected guard mismatch error")
	}
	if got := pairerrors.KindOf(err); got != pairerrors.KindConflicts {
		t.Fatalf("expected Conflicts kind, got %s", got)
	}
}

func TestValidate_SpanOutOfRange(t *testing.T) {
	fc := LoadFileContent([]byte("a\nb\n"))
	fb := FileBlock{Path: "x.txt", Ops: []Op{
		{Kind: OpDelete, Start: 5, End: 5},
	}}
	if err := ValidateFileBlock(fb, fc); err == nil {
		t.Fatal("expected span out of range error")
	}
}

func TestValidate_OverlappingOperations(t *testing.T) {
	fc := LoadFileContent([]byte("a\nb\nc\nd\n"))
	fb := FileBlock{Path: "x.txt", Ops: []Op{
		{Kind: OpReplace, Start: 1, End: 2, New: "z", HasNew: true},
		{Kind: OpDelete, Start: 2, End: 3},
	}}
	if err := ValidateFileBlock(fb, fc); err == nil {
		t.Fatal("expected overlapping operations error")
	}
}
