// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package editspec

import "testing"

func TestDetectConflictMarkers_TwoWay(t *testing.T) {
	content := "a\n<<<<<<< ours\nb\n=======\nc\n>>>>>>> theirs\nd\n"
	blocks := DetectConflictMarkers([]byte(content), "\n")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.ThreeWay {
		t.Fatal("expected 2-way block")
	}
	if len(b.Ours) != 1 || b.Ours[0] != "b" {
		t.Fatalf("unexpected ours: %v", b.Ours)
	}
	if len(b.Theirs) != 1 || b.Theirs[0] != "c" {
		t.Fatalf("unexpected theirs: %v", b.Theirs)
	}
}

func TestDetectConflictMarkers_ThreeWay(t *testing.T) {
	content := "<<<<<<< ours\nb\n||||||| base\nbase\n=======\nc\n>>>>>>> theirs\n"
	blocks := DetectConflictMarkers([]byte(content), "\n")
	if len(blocks) != 1 || !blocks[0].ThreeWay {
		t.Fatalf("expected one 3-way block: %+v", blocks)
	}
	if len(blocks[0].Base) != 1 || blocks[0].Base[0] != "base" {
		t.Fatalf("unexpected base: %v", blocks[0].Base)
	}
}

func TestSmartMerge_WhitespaceOnly(t *testing.T) {
	block := MarkerBlock{Ours: []string{"x  "}, Theirs: []string{"x"}}
	res := SmartMerge(block)
	if !res.Resolved || res.Rule != "whitespace-only" || res.Confidence < minConfidence {
		t.Fatalf("expected whitespace-only resolution, got %+v", res)
	}
}

func TestSmartMerge_AdditionOnly(t *testing.T) {
	block := MarkerBlock{Ours: []string{"a", "b"}, Theirs: []string{"a", "b", "c"}}
	res := SmartMerge(block)
	if !res.Resolved || res.Rule != "addition-only" {
		t.Fatalf("expected addition-only resolution, got %+v", res)
	}
	if len(res.Lines) != 3 {
		t.Fatalf("expected superset lines, got %v", res.Lines)
	}
}

func TestSmartMerge_SupersetOfBase(t *testing.T) {
	block := MarkerBlock{
		ThreeWay: true,
		Base:     []string{"a"},
		Ours:     []string{"a", "b"},
		Theirs:   []string{"a"},
	}
	res := SmartMerge(block)
	if !res.Resolved || res.Rule != "superset" {
		t.Fatalf("expected superset resolution, got %+v", res)
	}
}

func TestSmartMerge_UnresolvedWhenTrulyConflicting(t *testing.T) {
	block := MarkerBlock{
		ThreeWay: true,
		Base:     []string{"a"},
		Ours:     []string{"b"},
		Theirs:   []string{"c"},
	}
	res := SmartMerge(block)
	if res.Resolved {
		t.Fatalf("expected unresolved, got %+v", res)
	}
}

func TestResolveMarkers_RewritesResolvableBlock(t *testing.T) {
	content := "start\n<<<<<<< ours\na\nb\n=======\na\nb\nc\n>>>>>>> theirs\nend\n"
	out, unresolved := ResolveMarkers([]byte(content), "\n")
	if len(unresolved) != 0 {
		t.Fatalf("expected all blocks resolved, got %v", unresolved)
	}
	want := "start\na\nb\nc\nend\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
