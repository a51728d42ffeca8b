// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	stdcontext "context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/goextract"
	"github.com/brassloom/pairctl/internal/ui"
	"github.com/brassloom/pairctl/pkg/symbolindex"
)

func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full rebuild even if the index looks fresh")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairctl index [--full]\n\nBuild or rebuild the symbol index.\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	repoRoot := repoRootOrCwd()
	cfg, err := LoadConfig(repoRoot)
	if err != nil {
		pairerrors.FatalError("index-v1", err, globals.JSON)
	}
	indexPath := ResolveIndexPath(cfg, repoRoot)

	staleness := symbolindex.StalenessConfig{Exclude: cfg.Exclude}
	extractor := goextract.New()

	if *full {
		if !globals.Quiet && !globals.JSON {
			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionSpinnerType(14),
			)
			extractor.Progress = func(string) { _ = bar.Add(1) }
			defer func() { _ = bar.Finish() }()
		}
		symbols, extractErr := extractor.Extract(stdcontext.Background(), repoRoot)
		if extractErr != nil {
			pairerrors.FatalError("index-v1", pairerrors.NewRepoError(
				"Symbol index rebuild failed", repoRoot, "check the repository for unreadable files", extractErr), globals.JSON)
		}
		if err := symbolindex.Write(indexPath, symbols); err != nil {
			pairerrors.FatalError("index-v1", err, globals.JSON)
		}
		metricsRegistry.IndexRebuilds.Inc()
		reportIndexed(globals, indexPath, len(symbols))
		return
	}

	stale, err := symbolindex.IsStale(staleness, repoRoot, indexPath)
	if err != nil {
		pairerrors.FatalError("index-v1", err, globals.JSON)
	}
	if !stale {
		if globals.JSON {
			fmt.Printf(`{"schema":"index-v1","ok":true,"rebuilt":false,"index_path":%q}`+"\n", indexPath)
		} else {
			ui.Success("Index is up to date: %s", indexPath)
		}
		return
	}
	if err := symbolindex.EnsureFresh(stdcontext.Background(), staleness, repoRoot, indexPath, extractor); err != nil {
		pairerrors.FatalError("index-v1", err, globals.JSON)
	}
	metricsRegistry.IndexRebuilds.Inc()
	idx, err := symbolindex.Load(indexPath)
	if err != nil {
		pairerrors.FatalError("index-v1", err, globals.JSON)
	}
	reportIndexed(globals, indexPath, len(idx.All()))
}

func reportIndexed(globals GlobalFlags, indexPath string, count int) {
	if globals.JSON {
		fmt.Printf(`{"schema":"index-v1","ok":true,"rebuilt":true,"index_path":%q,"symbol_count":%d}`+"\n", indexPath, count)
		return
	}
	ui.Success("Indexed %s symbol(s) into %s", ui.CountText(count), indexPath)
}
