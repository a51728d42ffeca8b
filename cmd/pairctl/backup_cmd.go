// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/ui"
	"github.com/brassloom/pairctl/pkg/backupstore"
)

func runBackup(args []string, configPath string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pairctl backup <list|show|restore|cleanup> [options]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	repoRoot := repoRootOrCwd()
	store := backupstore.New(repoRoot)

	switch sub {
	case "list":
		runBackupList(store, rest, globals)
	case "show":
		runBackupShow(store, rest, globals)
	case "restore":
		runBackupRestore(store, rest, globals)
	case "cleanup":
		runBackupCleanup(store, rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown backup subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runBackupList(store *backupstore.Store, args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("backup list", flag.ExitOnError)
	since := fs.String("since", "", "Only sessions newer than this, e.g. 7d, 12h")
	successOnly := fs.Bool("success-only", false, "Only successful sessions")
	engineName := fs.String("engine", "", "Only sessions using this engine")
	limit := fs.Int("limit", 0, "Max number of sessions to list")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	sinceDur, err := backupstore.ParseSince(*since)
	if err != nil {
		pairerrors.FatalError("backup-v1", err, globals.JSON)
	}
	sessions, err := store.List(backupstore.Filters{
		Since:       sinceDur,
		SuccessOnly: *successOnly,
		EngineName:  *engineName,
		Limit:       *limit,
	})
	if err != nil {
		pairerrors.FatalError("backup-v1", err, globals.JSON)
	}

	if globals.JSON {
		data, _ := jsonMarshal(sessions)
		fmt.Println(string(data))
		return
	}
	ui.Header("Backup Sessions")
	for _, s := range sessions {
		status := "ok"
		if !s.Success {
			status = "incomplete"
		}
		fmt.Printf("%s  %-10s  %-10s  %s\n", s.ID, s.Engine, status, s.Timestamp.Format(time.RFC3339))
	}
}

func runBackupShow(store *backupstore.Store, args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("backup show", flag.ExitOnError)
	allowIncomplete := fs.Bool("allow-incomplete", false, "Show a session even if it has no DONE marker")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pairctl backup show <session-id|latest|last-successful>")
		os.Exit(3)
	}
	var manifest *backupstore.Manifest
	var err error
	switch fs.Arg(0) {
	case "latest":
		manifest, err = store.Latest()
	case "last-successful":
		manifest, err = store.LastSuccessful()
	default:
		manifest, err = store.Show(fs.Arg(0), *allowIncomplete)
	}
	if err != nil {
		pairerrors.FatalError("backup-v1", err, globals.JSON)
	}
	if globals.JSON {
		data, _ := jsonMarshal(manifest)
		fmt.Println(string(data))
		return
	}
	ui.Header("Backup Session " + manifest.ID)
	for _, f := range manifest.Files {
		fmt.Printf("  %s  (%s)\n", f.RelPath, f.Blake3)
	}
}

func runBackupRestore(store *backupstore.Store, args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("backup restore", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Show what would be restored without writing")
	force := fs.Bool("force", false, "Restore even if newer uncommitted changes are detected")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pairctl backup restore <session-id> [paths...] [--dry-run] [--force]")
		os.Exit(3)
	}
	id := fs.Arg(0)
	paths := fs.Args()[1:]

	metricsRegistry.BackupRestores.Inc()
	plan, err := store.Restore(id, paths, *dryRun, *force)
	if err != nil {
		pairerrors.FatalError("backup-v1", err, globals.JSON)
	}
	if globals.JSON {
		data, _ := jsonMarshal(plan)
		fmt.Println(string(data))
		return
	}
	for _, r := range plan.Results {
		if r.Applied {
			ui.Success("restored %s", r.RelPath)
		} else {
			ui.Warningf("skipped %s: %s", r.RelPath, r.Reason)
		}
	}
	fmt.Printf("pre-restore state captured in session %s\n", plan.NewSessionID)
}

func runBackupCleanup(store *backupstore.Store, args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("backup cleanup", flag.ExitOnError)
	olderThan := fs.String("older-than", "", "Remove sessions older than this, e.g. 30d")
	keepLatest := fs.Int("keep-latest", 0, "Remove every session except this many most-recent ones")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var dur time.Duration
	if *olderThan != "" {
		d, err := backupstore.ParseSince(*olderThan)
		if err != nil {
			pairerrors.FatalError("backup-v1", err, globals.JSON)
		}
		dur = d
	}

	result, err := store.Cleanup(backupstore.CleanupPolicy{OlderThan: dur, KeepLatest: *keepLatest})
	if err != nil {
		pairerrors.FatalError("backup-v1", err, globals.JSON)
	}
	if globals.JSON {
		data, _ := jsonMarshal(result)
		fmt.Println(string(data))
		return
	}
	ui.Success("removed %s session(s), deduped %s file(s), freed %d bytes",
		ui.CountText(len(result.RemovedSessions)), ui.CountText(result.DedupedFiles), result.FreedBytes)
}
