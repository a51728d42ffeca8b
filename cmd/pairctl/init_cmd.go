// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/ui"
)

type initFlags struct {
	force          bool
	nonInteractive bool
	indexPath      string
	backupRoot     string
	tier           string
}

func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		pairerrors.FatalError("init-v1", pairerrors.NewInternalError(
			"Cannot access working directory", "", "", err), globals.JSON)
	}

	path := ConfigPath(cwd)
	if _, statErr := os.Stat(path); statErr == nil && !flags.force {
		pairerrors.FatalError("init-v1", pairerrors.NewInvalidInput(
			"Configuration already exists",
			fmt.Sprintf("%s already exists in this directory", path),
			"use 'pairctl init --force' to overwrite the existing configuration",
			nil,
		), globals.JSON)
	}

	cfg := DefaultConfig()
	if flags.indexPath != "" {
		cfg.IndexPath = flags.indexPath
	}
	if flags.backupRoot != "" {
		cfg.BackupRoot = flags.backupRoot
	}
	if flags.tier != "" {
		cfg.Context.Tier = flags.tier
	}

	if !flags.nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		ui.Header("pairctl Project Configuration")
		cfg.IndexPath = prompt(reader, "Symbol index path", cfg.IndexPath)
		cfg.BackupRoot = prompt(reader, "Backup root", cfg.BackupRoot)
		cfg.Context.Tier = prompt(reader, "Default context tier (A/B/C)", cfg.Context.Tier)
	}

	if err := SaveConfig(cfg, cwd); err != nil {
		pairerrors.FatalError("init-v1", err, globals.JSON)
	}

	if globals.JSON {
		fmt.Printf(`{"schema":"init-v1","ok":true,"config_path":%q}`+"\n", path)
		return
	}
	ui.Success("Wrote %s", path)
	fmt.Println("Next steps:")
	fmt.Println("  pairctl index     # build the symbol index")
	fmt.Println("  pairctl context <query>")
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.indexPath, "index-path", "", "Symbol index file path (relative to repo root)")
	fs.StringVar(&f.backupRoot, "backup-root", "", "Backup root directory (relative to repo root)")
	fs.StringVar(&f.tier, "tier", "", "Default context tier (A, B or C)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pairctl init [options]

Create a .pairctl/project.yaml configuration for the current repository.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func prompt(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
