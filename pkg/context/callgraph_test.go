// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

func sym(path, name string, start, end int) symbolindex.Symbol {
	return symbolindex.Symbol{
		Path: path, Language: "go", Kind: symbolindex.KindFunction,
		Name: name, QualifiedName: name, StartLine: start, EndLine: end,
		Visibility: symbolindex.VisPublic,
	}
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// loadIndex writes symbols to a JSON-lines fixture under dir and loads it
// back through the real loader, so the lookup maps it builds internally
// are populated (mirroring how symbolindex is actually constructed).
func loadIndex(t *testing.T, dir string, symbols []symbolindex.Symbol) *symbolindex.Index {
	t.Helper()
	path := filepath.Join(dir, "symbols.jsonl")
	var lines []byte
	for _, s := range symbols {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal symbol: %v", err)
		}
		lines = append(lines, b...)
		lines = append(lines, '\n')
	}
	if err := os.WriteFile(path, lines, 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	idx, err := symbolindex.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return idx
}

func TestBoundedCallgraphBFS_RespectsFilesPerHopCap(t *testing.T) {
	dir := t.TempDir()

	var body string
	var symbols []symbolindex.Symbol
	for i := 0; i < 40; i++ {
		fn := "Callee" + itoaHelper(i)
		rel := filepath.Join("pkg", fn+".go")
		writeFile(t, dir, rel, "func "+fn+"() {\n\treturn\n}\n")
		symbols = append(symbols, sym(filepath.ToSlash(rel), fn, 1, 3))
		body += "\t" + fn + "()\n"
	}
	writeFile(t, dir, "anchor.go", "func Anchor() {\n"+body+"}\n")
	symbols = append(symbols, sym("anchor.go", "Anchor", 1, 42))

	idx := loadIndex(t, dir, symbols)

	cfg := CallgraphConfig{
		Enabled:     true,
		Anchor:      Anchor{Path: "anchor.go", Line: 1},
		Depth:       2,
		FilesPerHop: 20,
		Edges:       500,
	}
	results := BoundedCallgraphBFS(dir, idx, cfg)

	hop1Files := make(map[string]bool)
	for _, r := range results {
		if r.Hop == 1 {
			hop1Files[r.Symbol.Path] = true
		}
	}
	if len(hop1Files) > 20 {
		t.Fatalf("expected <= 20 files at hop 1, got %d", len(hop1Files))
	}
	if len(results) > 500 {
		t.Fatalf("expected <= 500 total edges, got %d", len(results))
	}
}

func TestBoundedCallgraphBFS_DeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Anchor() {\n\tHelper()\n}\n")
	writeFile(t, dir, "b.go", "func Helper() {\n\treturn\n}\n")
	idx := loadIndex(t, dir, []symbolindex.Symbol{
		sym("a.go", "Anchor", 1, 3),
		sym("b.go", "Helper", 1, 3),
	})
	cfg := CallgraphConfig{Enabled: true, Anchor: Anchor{Path: "a.go", Line: 1}, Depth: 2, FilesPerHop: 20, Edges: 500}

	first := BoundedCallgraphBFS(dir, idx, cfg)
	second := BoundedCallgraphBFS(dir, idx, cfg)
	if len(first) != len(second) || len(first) != 1 || first[0].Symbol.Name != "Helper" {
		t.Fatalf("expected deterministic single-hop result, got %+v / %+v", first, second)
	}
}

func TestBoundedCallgraphBFS_FiltersControlFlowTokens(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Anchor() {\n\tif (true) {\n\t\tfor (;;) {\n\t\t}\n\t}\n}\n")
	idx := loadIndex(t, dir, []symbolindex.Symbol{sym("a.go", "Anchor", 1, 6)})
	cfg := CallgraphConfig{Enabled: true, Anchor: Anchor{Path: "a.go", Line: 1}, Depth: 1, FilesPerHop: 20, Edges: 500}

	results := BoundedCallgraphBFS(dir, idx, cfg)
	if len(results) != 0 {
		t.Fatalf("expected no callees resolved from control-flow tokens, got %+v", results)
	}
}

func itoaHelper(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
