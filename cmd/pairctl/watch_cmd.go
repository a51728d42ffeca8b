// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/goextract"
	"github.com/brassloom/pairctl/internal/ui"
	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// runWatch keeps the symbol index warm by rebuilding it shortly after
// the repository's source files change, rather than paying the
// staleness-walk cost on every context request.
func runWatch(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Delay after the last change before rebuilding")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairctl watch [--debounce 500ms]\n\nWatch the repository and keep the symbol index warm.\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	repoRoot := repoRootOrCwd()
	cfg, err := LoadConfig(repoRoot)
	if err != nil {
		pairerrors.FatalError("watch-v1", err, globals.JSON)
	}
	indexPath := ResolveIndexPath(cfg, repoRoot)
	extractor := goextract.New()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		pairerrors.FatalError("watch-v1", pairerrors.NewInternalError("Cannot start filesystem watcher", "", "", err), globals.JSON)
	}
	defer watcher.Close() //nolint:errcheck

	if err := addWatchDirs(watcher, repoRoot, cfg.Exclude); err != nil {
		pairerrors.FatalError("watch-v1", err, globals.JSON)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ui.Success("Watching %s for changes (debounce %s)", repoRoot, debounce.String())

	var timer *time.Timer
	rebuild := func() {
		symbols, err := extractor.Extract(stdcontext.Background(), repoRoot)
		if err != nil {
			ui.Errorf("rebuild failed: %v", err)
			return
		}
		if err := symbolindex.Write(indexPath, symbols); err != nil {
			ui.Errorf("rebuild failed: %v", err)
			return
		}
		metricsRegistry.IndexRebuilds.Inc()
		logInfo(globals, "rebuilt index: %d symbols", len(symbols))
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(*debounce, rebuild)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ui.Errorf("watcher error: %v", werr)
		case <-sigCh:
			return
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, repoRoot string, exclude []string) error {
	return walkDirsForWatch(repoRoot, exclude, func(dir string) error {
		return watcher.Add(dir)
	})
}
