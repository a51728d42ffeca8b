// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import "testing"

func TestComputeFingerprint_IdenticalTextSameFingerprint(t *testing.T) {
	text := "func Foo(a int, b string) error {\n\treturn nil\n}"
	a := ComputeFingerprint(text)
	b := ComputeFingerprint(text)
	if Jaccard(a, b) != 1 {
		t.Fatalf("expected identical fingerprints to have Jaccard 1, got %v", Jaccard(a, b))
	}
	if a.ExactHash != b.ExactHash {
		t.Fatalf("expected identical exact hashes")
	}
}

func TestComputeFingerprint_RenamedLocalsStillSimilar(t *testing.T) {
	a := ComputeFingerprint("func Foo(a int, b string) error {\n\tx := a\n\treturn nil\n}")
	b := ComputeFingerprint("func Foo(c int, d string) error {\n\ty := c\n\treturn nil\n}")
	if Jaccard(a, b) < 0.3 {
		t.Fatalf("expected signature-equivalent renamed-locals spans to still be similar, got %v", Jaccard(a, b))
	}
}

func TestDeduplicate_CollapsesAboveThreshold(t *testing.T) {
	text := "line one\nline two\nline three"
	items := []Item{
		{Piece: Piece{Path: "a.go", Tag: TagCode}, Fingerprint: ComputeFingerprint(text)},
		{Piece: Piece{Path: "b.go", Tag: TagCode}, Fingerprint: ComputeFingerprint(text)},
	}
	kept, refused := Deduplicate(items, 0.9)
	if len(kept) != 1 || refused != 1 {
		t.Fatalf("expected 1 kept, 1 refused; got kept=%d refused=%d", len(kept), refused)
	}
}

func TestDeduplicate_InterfaceTaggedRequiresExactHash(t *testing.T) {
	items := []Item{
		{Piece: Piece{Path: "a.go", Tag: TagInterface}, Fingerprint: ComputeFingerprint("type Foo interface {\n\tBar()\n}")},
		{Piece: Piece{Path: "b.go", Tag: TagInterface}, Fingerprint: ComputeFingerprint("type Foo interface {\n\tBaz()\n}")},
	}
	kept, refused := Deduplicate(items, 0.1) // low threshold would collapse non-interface items
	if len(kept) != 2 || refused != 0 {
		t.Fatalf("expected interface-tagged items to require exact hash match; got kept=%d refused=%d", len(kept), refused)
	}
}

func TestDeduplicate_PreservesEarlierOccurrence(t *testing.T) {
	text := "same content here"
	items := []Item{
		{Piece: Piece{Path: "higher-priority.go", Tag: TagCode}, Priority: Priority{Scope: 10}, Fingerprint: ComputeFingerprint(text)},
		{Piece: Piece{Path: "lower-priority.go", Tag: TagCode}, Priority: Priority{Scope: 1}, Fingerprint: ComputeFingerprint(text)},
	}
	kept, _ := Deduplicate(items, 0.9)
	if len(kept) != 1 || kept[0].Piece.Path != "higher-priority.go" {
		t.Fatalf("expected the earlier (pre-sorted higher priority) item kept, got %+v", kept)
	}
}
