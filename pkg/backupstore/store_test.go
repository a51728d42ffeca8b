// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backupstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBeginStageFinalize(t *testing.T) {
	repo := t.TempDir()
	target := filepath.Join(repo, "a.txt")
	if err := os.WriteFile(target, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := New(repo)
	sess, err := store.Begin("edit")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Stage(sess, target); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := store.Finalize(sess, true); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	donePath := filepath.Join(store.Root(), sess.ID, doneMarker)
	if _, err := os.Stat(donePath); err != nil {
		t.Fatalf("expected DONE marker: %v", err)
	}

	m, err := store.Show(sess.ID, false)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if len(m.Files) != 1 || m.Files[0].RelPath != "a.txt" {
		t.Fatalf("unexpected manifest files: %+v", m.Files)
	}
}

func TestFinalizeFailureLeavesNoDone(t *testing.T) {
	repo := t.TempDir()
	store := New(repo)
	sess, err := store.Begin("edit")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Finalize(sess, false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	donePath := filepath.Join(store.Root(), sess.ID, doneMarker)
	if _, err := os.Stat(donePath); !os.IsNotExist(err) {
		t.Fatalf("expected no DONE marker for failed session")
	}
	if _, err := store.Show(sess.ID, false); err == nil {
		t.Fatal("expected Show to refuse an incomplete session")
	}
}

func TestStageRejectsPathOutsideRoot(t *testing.T) {
	repo := t.TempDir()
	outside := t.TempDir()
	outsideFile := filepath.Join(outside, "x.txt")
	if err := os.WriteFile(outsideFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := New(repo)
	sess, err := store.Begin("edit")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Stage(sess, outsideFile); err == nil {
		t.Fatal("expected Stage to reject a path outside repo root")
	}
}

func TestListFiltersByEngineAndSuccess(t *testing.T) {
	repo := t.TempDir()
	store := New(repo)

	for _, tc := range []struct {
		engine  string
		success bool
	}{
		{"internal", true},
		{"internal", false},
		{"hybrid", true},
	} {
		sess, err := store.Begin(tc.engine)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Finalize(sess, tc.success); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := store.List(Filters{EngineName: "Internal"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 internal sessions, got %d", len(sessions))
	}

	successOnly, err := store.List(Filters{SuccessOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(successOnly) != 2 {
		t.Fatalf("expected 2 successful sessions, got %d", len(successOnly))
	}
}

func TestParseSinceRejectsNegative(t *testing.T) {
	if _, err := ParseSince("-1d"); err == nil {
		t.Fatal("expected negative since-duration to be rejected")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	repo := t.TempDir()
	target := filepath.Join(repo, "a.txt")
	if err := os.WriteFile(target, []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := New(repo)
	sess, err := store.Begin("edit")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Stage(sess, target); err != nil {
		t.Fatal(err)
	}
	if err := store.Finalize(sess, true); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(target, []byte("v2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := store.Restore(sess.ID, nil, false, false)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(plan.Results) != 1 || !plan.Results[0].Applied {
		t.Fatalf("unexpected restore results: %+v", plan.Results)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "v1\n" {
		t.Fatalf("expected restored content v1, got %q", content)
	}
}
