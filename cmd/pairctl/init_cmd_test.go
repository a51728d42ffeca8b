// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseInitFlags_Defaults(t *testing.T) {
	f := parseInitFlags(nil)
	if f.force || f.nonInteractive {
		t.Fatalf("parseInitFlags(nil) = %+v, want force=false nonInteractive=false", f)
	}
	if f.indexPath != "" || f.backupRoot != "" || f.tier != "" {
		t.Fatalf("parseInitFlags(nil) = %+v, want empty overrides", f)
	}
}

func TestParseInitFlags_Overrides(t *testing.T) {
	f := parseInitFlags([]string{
		"--force",
		"--yes",
		"--index-path", "custom/symbols.jsonl",
		"--backup-root", "custom-backups",
		"--tier", "A",
	})
	if !f.force || !f.nonInteractive {
		t.Fatalf("parseInitFlags() = %+v, want force=true nonInteractive=true", f)
	}
	if f.indexPath != "custom/symbols.jsonl" {
		t.Fatalf("parseInitFlags().indexPath = %q, want %q", f.indexPath, "custom/symbols.jsonl")
	}
	if f.backupRoot != "custom-backups" {
		t.Fatalf("parseInitFlags().backupRoot = %q, want %q", f.backupRoot, "custom-backups")
	}
	if f.tier != "A" {
		t.Fatalf("parseInitFlags().tier = %q, want %q", f.tier, "A")
	}
}

func TestPrompt_UsesDefaultOnEmptyLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("\n"))
	got := prompt(reader, "Symbol index path", ".pairctl/symbols.jsonl")
	if got != ".pairctl/symbols.jsonl" {
		t.Fatalf("prompt() = %q, want default %q", got, ".pairctl/symbols.jsonl")
	}
}

func TestPrompt_UsesTypedValue(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("custom/path.jsonl\n"))
	got := prompt(reader, "Symbol index path", ".pairctl/symbols.jsonl")
	if got != "custom/path.jsonl" {
		t.Fatalf("prompt() = %q, want %q", got, "custom/path.jsonl")
	}
}
