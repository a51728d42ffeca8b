// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestMatchesAny_DoubleStarGlob(t *testing.T) {
	patterns := []string{".git/**", "vendor/**", ".pairctl/**"}

	cases := []struct {
		rel  string
		want bool
	}{
		{".git", true},
		{".git/objects/pack", true},
		{"vendor/github.com/foo/bar", true},
		{".pairctl/symbols.jsonl", true},
		{"internal/goextract/extractor.go", false},
	}
	for _, c := range cases {
		if got := matchesAny(patterns, c.rel); got != c.want {
			t.Errorf("matchesAny(%v, %q) = %v, want %v", patterns, c.rel, got, c.want)
		}
	}
}

func TestWalkDirsForWatch_SkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{
		"a",
		"a/b",
		".git",
		".git/objects",
		"vendor/github.com/foo",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o750); err != nil {
			t.Fatalf("os.MkdirAll() error = %v", err)
		}
	}

	var visited []string
	err := walkDirsForWatch(root, []string{".git/**", "vendor/**"}, func(dir string) error {
		rel, relErr := filepath.Rel(root, dir)
		if relErr != nil {
			return relErr
		}
		visited = append(visited, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walkDirsForWatch() error = %v", err)
	}
	sort.Strings(visited)

	want := []string{".", "a", "a/b"}
	if len(visited) != len(want) {
		t.Fatalf("walkDirsForWatch() visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("walkDirsForWatch() visited = %v, want %v", visited, want)
		}
	}
}
