// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package symbolindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestIndex(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "symbols.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	return path
}

func TestLoad_Basic(t *testing.T) {
	dir := t.TempDir()
	path := writeTestIndex(t, dir, []string{
		`{"path":"a.go","language":"go","kind":"function","name":"Foo","qualified_name":"pkg.Foo","start_line":1,"end_line":5,"visibility":"public"}`,
		`{"path":"b.go","language":"go","kind":"function","name":"Bar","qualified_name":"pkg.Bar","start_line":10,"end_line":20,"visibility":"private"}`,
	})

	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(idx.Symbols))
	}
	if got := idx.ByExactName("Foo"); len(got) != 1 || got[0].Path != "a.go" {
		t.Fatalf("ByExactName(Foo) = %+v", got)
	}
	if got := idx.ByPath("b.go"); len(got) != 1 || got[0].Name != "Bar" {
		t.Fatalf("ByPath(b.go) = %+v", got)
	}
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := writeTestIndex(t, dir, []string{
		`{"path":"a.go","name":"Foo","qualified_name":"Foo","start_line":1,"end_line":2}`,
		``,
		`   `,
		`{"path":"b.go","name":"Bar","qualified_name":"Bar","start_line":3,"end_line":4}`,
	})
	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(idx.Symbols))
	}
}

func TestLoad_MalformedLineReportsLineNumber(t *testing.T) {
	dir := t.TempDir()
	path := writeTestIndex(t, dir, []string{
		`{"path":"a.go","name":"Foo","qualified_name":"Foo","start_line":1,"end_line":2}`,
		`not json`,
	})
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error to mention line 2, got: %v", err)
	}
}

func TestIsStale_MissingIndexIsStale(t *testing.T) {
	dir := t.TempDir()
	stale, err := IsStale(StalenessConfig{}, dir, filepath.Join(dir, "missing.jsonl"))
	if err != nil {
		t.Fatalf("IsStale: %v", err)
	}
	if !stale {
		t.Fatal("expected missing index to be stale")
	}
}

func TestIsStale_DisabledAlwaysFresh(t *testing.T) {
	dir := t.TempDir()
	stale, err := IsStale(StalenessConfig{Disabled: true}, dir, filepath.Join(dir, "missing.jsonl"))
	if err != nil {
		t.Fatalf("IsStale: %v", err)
	}
	if stale {
		t.Fatal("expected disabled staleness check to report fresh")
	}
}
