// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Shape(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != configVersion {
		t.Fatalf("DefaultConfig().Version = %q, want %q", cfg.Version, configVersion)
	}
	if cfg.Context.Tier != "B" {
		t.Fatalf("DefaultConfig().Context.Tier = %q, want %q", cfg.Context.Tier, "B")
	}
	if len(cfg.Exclude) == 0 {
		t.Fatalf("DefaultConfig().Exclude is empty, want non-empty defaults")
	}
}

func TestLoadConfig_MissingFileReturnsDefault(t *testing.T) {
	repo := t.TempDir()
	cfg, err := LoadConfig(repo)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != DefaultConfig().Version {
		t.Fatalf("LoadConfig() on missing file = %+v, want defaults", cfg)
	}
}

func TestSaveConfig_ThenLoadConfig_RoundTrips(t *testing.T) {
	repo := t.TempDir()
	cfg := DefaultConfig()
	cfg.IndexPath = "custom/index.jsonl"
	cfg.Context.Budget = 12000

	if err := SaveConfig(cfg, repo); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	got, err := LoadConfig(repo)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got.IndexPath != "custom/index.jsonl" {
		t.Fatalf("LoadConfig().IndexPath = %q, want %q", got.IndexPath, "custom/index.jsonl")
	}
	if got.Context.Budget != 12000 {
		t.Fatalf("LoadConfig().Context.Budget = %d, want %d", got.Context.Budget, 12000)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	repo := t.TempDir()
	path := ConfigPath(repo)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("os.MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	if _, err := LoadConfig(repo); err == nil {
		t.Fatalf("LoadConfig() error = nil, want non-nil for malformed YAML")
	}
}

func TestResolveIndexPath_RelativeAndAbsolute(t *testing.T) {
	repo := t.TempDir()
	cfg := &Config{IndexPath: "idx.jsonl"}
	want := filepath.Join(repo, "idx.jsonl")
	if got := ResolveIndexPath(cfg, repo); got != want {
		t.Fatalf("ResolveIndexPath() = %q, want %q", got, want)
	}

	abs := filepath.Join(repo, "abs-idx.jsonl")
	cfgAbs := &Config{IndexPath: abs}
	if got := ResolveIndexPath(cfgAbs, repo); got != abs {
		t.Fatalf("ResolveIndexPath() = %q, want %q", got, abs)
	}
}
