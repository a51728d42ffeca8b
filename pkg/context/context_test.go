// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	stdcontext "context"
	"testing"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

func newTestEngine(t *testing.T, dir string, symbols []symbolindex.Symbol) *Engine {
	t.Helper()
	idx := loadIndex(t, dir, symbols)
	indexPath := idx.Path
	e := NewEngine(dir, indexPath)
	e.Staleness = symbolindex.StalenessConfig{Disabled: true}
	return e
}

func TestEngineQuery_ExactMatchReturnsRankedPiece(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Foo() {\n\treturn\n}\n")
	e := newTestEngine(t, dir, []symbolindex.Symbol{sym("a.go", "Foo", 1, 3)})

	resp, err := e.Query(stdcontext.Background(), Config{Queries: []string{"Foo"}, Budget: 1000, Fence: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Piece.Path != "a.go" {
		t.Fatalf("unexpected item: %+v", resp.Items[0])
	}
}

func TestEngineQuery_NoMatchesFlagsResponse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Foo() {\n\treturn\n}\n")
	e := newTestEngine(t, dir, []symbolindex.Symbol{sym("a.go", "Foo", 1, 3)})

	resp, err := e.Query(stdcontext.Background(), Config{Queries: []string{"DoesNotExist"}, Budget: 1000})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !resp.NoMatches {
		t.Fatalf("expected NoMatches, got %+v", resp)
	}
}

func TestEngineQuery_NoSymbolsWhenIndexEmpty(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, nil)

	resp, err := e.Query(stdcontext.Background(), Config{Queries: []string{"Foo"}, Budget: 1000})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !resp.NoSymbols {
		t.Fatalf("expected NoSymbols, got %+v", resp)
	}
}

func TestEngineQuery_DeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Foo() {\n\treturn\n}\n")
	writeFile(t, dir, "b.go", "func FooBar() {\n\treturn\n}\n")
	e := newTestEngine(t, dir, []symbolindex.Symbol{
		sym("a.go", "Foo", 1, 3),
		sym("b.go", "FooBar", 1, 3),
	})

	cfg := Config{Queries: []string{"Foo"}, Budget: 1000, Semantic: true}
	first, err := e.Query(stdcontext.Background(), cfg)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	e2 := newTestEngine(t, dir, []symbolindex.Symbol{
		sym("a.go", "Foo", 1, 3),
		sym("b.go", "FooBar", 1, 3),
	})
	second, err := e2.Query(stdcontext.Background(), cfg)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(first.Items) != len(second.Items) {
		t.Fatalf("non-deterministic item count: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if RenderItem(first.Items[i], false) != RenderItem(second.Items[i], false) {
			t.Fatalf("non-deterministic rendering at index %d", i)
		}
	}
}

func TestParseCallgraphArg_RoundTrip(t *testing.T) {
	cfg, err := ParseCallgraphArg("anchor=pkg/a.go:10 depth=2 files_per_hop=5 edges=100")
	if err != nil {
		t.Fatalf("ParseCallgraphArg: %v", err)
	}
	if cfg.Anchor.Path != "pkg/a.go" || cfg.Anchor.Line != 10 || cfg.Depth != 2 || cfg.FilesPerHop != 5 || cfg.Edges != 100 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestParseCallgraphArg_MalformedAnchorFails(t *testing.T) {
	_, err := ParseCallgraphArg("anchor=noline depth=2")
	if err == nil {
		t.Fatalf("expected error for malformed anchor")
	}
}

func TestParseBucketsArg(t *testing.T) {
	buckets, err := ParseBucketsArg("Code:700,Interface:200,Test:100")
	if err != nil {
		t.Fatalf("ParseBucketsArg: %v", err)
	}
	if len(buckets) != 3 || buckets[0].Tag != TagCode || buckets[0].Cap != 700 {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}
}
