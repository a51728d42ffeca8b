// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import "testing"

type fixedTokenizer struct{ n int }

func (f fixedTokenizer) Estimate(text string) int { return f.n }

func mkItem(path string, tag Tag, total float64) Item {
	return Item{Piece: Piece{Path: path, Tag: tag}, Priority: Priority{Scope: total}}
}

func TestFitBudget_BucketCaps(t *testing.T) {
	items := []BudgetItem{
		{Item: mkItem("code1.go", TagCode, 10), Tokens: 500},
		{Item: mkItem("code2.go", TagCode, 9), Tokens: 400},
		{Item: mkItem("iface.go", TagInterface, 8), Tokens: 250},
		{Item: mkItem("x_test.go", TagTest, 7), Tokens: 60},
	}
	buckets := []BucketCap{
		{Tag: TagCode, Cap: 700},
		{Tag: TagInterface, Cap: 200},
		{Tag: TagTest, Cap: 100},
	}
	result := FitBudget(DefaultTokenizer, items, 1000, buckets)

	if result.TokensUsed > 1000 {
		t.Fatalf("used %d tokens, exceeds budget 1000", result.TokensUsed)
	}
	var keptPaths []string
	for _, it := range result.Kept {
		keptPaths = append(keptPaths, it.Piece.Path)
	}
	wantKept := map[string]bool{"code1.go": true, "x_test.go": true}
	for p := range wantKept {
		found := false
		for _, kp := range keptPaths {
			if kp == p {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s kept, got %v", p, keptPaths)
		}
	}
	if len(result.Refusals) == 0 {
		t.Fatalf("expected at least one refusal logged")
	}
}

func TestFitBudget_HardItemsNeverDropped(t *testing.T) {
	items := []BudgetItem{
		{Item: mkItem("anchor.go", TagCode, 10), Tokens: 2000, Hard: true},
	}
	result := FitBudget(DefaultTokenizer, items, 100, nil)
	if len(result.Kept) != 1 {
		t.Fatalf("expected the hard item kept regardless of budget, got %+v", result.Kept)
	}
	if !result.HardOverBudget {
		t.Fatalf("expected HardOverBudget flag set")
	}
}

func TestFitBudget_ShrinksTowardFloorBeforeRefusing(t *testing.T) {
	tok := fixedTokenizer{n: 1} // Estimate always returns 1 so takePrefix shortcuts immediately
	items := []BudgetItem{
		{Item: Item{Piece: Piece{Path: "a.go", Tag: TagCode, Text: "line1\nline2\nline3\nline4"}}, Tokens: 500, MinTokens: 30},
	}
	result := FitBudget(tok, items, 50, nil)
	if len(result.Kept) != 1 {
		t.Fatalf("expected item kept after shrink, got %+v", result.Kept)
	}
}

func TestTakePrefix_NeverOverflows(t *testing.T) {
	tok := DefaultTokenizer
	text := "aaaa\nbbbb\ncccc\ndddd\neeee"
	out := takePrefix(tok, text, 3)
	if tok.Estimate(out) > 3 {
		t.Fatalf("takePrefix overflowed: estimate=%d for %q", tok.Estimate(out), out)
	}
}
