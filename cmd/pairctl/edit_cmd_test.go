// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brassloom/pairctl/pkg/editspec"
)

func TestBuildEditEngine_Internal(t *testing.T) {
	repo := t.TempDir()
	engine, err := buildEditEngine("internal", repo, true)
	if err != nil {
		t.Fatalf("buildEditEngine() error = %v", err)
	}
	internal, ok := engine.(*editspec.Internal)
	if !ok {
		t.Fatalf("buildEditEngine(\"internal\") = %T, want *editspec.Internal", engine)
	}
	if !internal.AllowBinary {
		t.Fatalf("buildEditEngine(\"internal\", allowBinary=true).AllowBinary = false, want true")
	}
}

func TestBuildEditEngine_External3Way(t *testing.T) {
	repo := t.TempDir()
	engine, err := buildEditEngine("external3way", repo, false)
	if err != nil {
		t.Fatalf("buildEditEngine() error = %v", err)
	}
	if _, ok := engine.(*editspec.External3Way); !ok {
		t.Fatalf("buildEditEngine(\"external3way\") = %T, want *editspec.External3Way", engine)
	}
}

func TestBuildEditEngine_Hybrid(t *testing.T) {
	repo := t.TempDir()
	engine, err := buildEditEngine("hybrid", repo, true)
	if err != nil {
		t.Fatalf("buildEditEngine() error = %v", err)
	}
	hybrid, ok := engine.(*editspec.Hybrid)
	if !ok {
		t.Fatalf("buildEditEngine(\"hybrid\") = %T, want *editspec.Hybrid", engine)
	}
	if !hybrid.Internal.AllowBinary {
		t.Fatalf("buildEditEngine(\"hybrid\", allowBinary=true).Internal.AllowBinary = false, want true")
	}
}

func TestBuildEditEngine_Unknown(t *testing.T) {
	if _, err := buildEditEngine("bogus", t.TempDir(), false); err == nil {
		t.Fatalf("buildEditEngine(\"bogus\") error = nil, want non-nil")
	}
}

func TestLoadSpec_MissingFile(t *testing.T) {
	if _, err := loadSpec(filepath.Join(t.TempDir(), "missing.editspec")); err == nil {
		t.Fatalf("loadSpec() error = nil, want non-nil for missing file")
	}
}

func TestLoadSpec_ReadsAndParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "change.editspec")
	content := "FILE: internal/foo.go\nREPLACE lines 1:\nNEW:\nnew content\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	spec, err := loadSpec(path)
	if err != nil {
		t.Fatalf("loadSpec() error = %v", err)
	}
	if spec == nil || len(spec.Files) != 1 {
		t.Fatalf("loadSpec() = %+v, want one file block", spec)
	}
}
