// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package editspec

import "testing"

func TestParse_ReplaceWithFencedBlocks(t *testing.T) {
	text := "FILE: a.txt\n" +
		"REPLACE lines 2-2:\n" +
		"OLD:\n" +
		"```\n" +
		"line2\n" +
		"```\n" +
		"NEW:\n" +
		"```\n" +
		"modified line2\n" +
		"```\n"

	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(spec.Files) != 1 || spec.Files[0].Path != "a.txt" {
		t.Fatalf("unexpected files: %+v", spec.Files)
	}
	ops := spec.Files[0].Ops
	if len(ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(ops))
	}
	op := ops[0]
	if op.Kind != OpReplace || op.Start != 2 || op.End != 2 {
		t.Fatalf("unexpected op: %+v", op)
	}
	if !op.HasOld || op.Old != "line2" {
		t.Fatalf("unexpected OLD: %q", op.Old)
	}
	if !op.HasNew || op.New != "modified line2" {
		t.Fatalf("unexpected NEW: %q", op.New)
	}
}

func TestParse_InsertAtZero(t *testing.T) {
	text := "FILE: b.txt\n" +
		"INSERT at 0:\n" +
		"NEW:\n" +
		"```\n" +
		"H\n" +
		"```\n"

	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := spec.Files[0].Ops[0]
	if op.Kind != OpInsert || op.Start != 0 {
		t.Fatalf("unexpected op: %+v", op)
	}
	if op.New != "H" {
		t.Fatalf("unexpected NEW: %q", op.New)
	}
}

func TestParse_DeleteLines(t *testing.T) {
	text := "FILE: c.txt\nDELETE lines 3-5\n"
	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := spec.Files[0].Ops[0]
	if op.Kind != OpDelete || op.Start != 3 || op.End != 5 {
		t.Fatalf("unexpected op: %+v", op)
	}
}

func TestParse_GuardCIDAttaches(t *testing.T) {
	text := "FILE: d.txt\n" +
		"GUARD-CID: abc123\n" +
		"REPLACE lines 1-1:\n" +
		"NEW:\n" +
		"x\n"
	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	op := spec.Files[0].Ops[0]
	if !op.HasGuard || op.GuardCID != "abc123" {
		t.Fatalf("unexpected guard: %+v", op)
	}
}

func TestParse_UnknownDirectiveFails(t *testing.T) {
	_, err := Parse("FILE: e.txt\nBOGUS lines 1:\n")
	if err == nil {
		t.Fatal("expected error for unknown directive")
	}
}

func TestParse_UnfencedBlockSeparatedByDirective(t *testing.T) {
	text := "FILE: f.txt\n" +
		"REPLACE lines 1-1:\n" +
		"NEW:\n" +
		"plain text\n" +
		"more text\n" +
		"FILE: g.txt\n" +
		"DELETE lines 1\n"

	spec, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(spec.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(spec.Files))
	}
	if spec.Files[0].Ops[0].New != "plain text\nmore text" {
		t.Fatalf("unexpected unfenced NEW: %q", spec.Files[0].Ops[0].New)
	}
}
