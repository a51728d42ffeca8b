// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package symbolindex

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// StalenessConfig controls how the repository is walked to decide whether
// the index needs to be rebuilt.
type StalenessConfig struct {
	Exclude  []string      // glob patterns (matched against repo-relative path) to skip
	Disabled bool          // disables the check entirely, for deterministic test runs
	Timeout  time.Duration // hard timeout for the whole rebuild; default 10s
	Poll     time.Duration // lock poll interval; default 200ms
}

func (c StalenessConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Timeout
}

func (c StalenessConfig) poll() time.Duration {
	if c.Poll <= 0 {
		return 200 * time.Millisecond
	}
	return c.Poll
}

// IsStale reports whether any tracked source file under repoRoot has a
// modification time newer than indexPath. It uses Lstat (symlink_metadata
// equivalent) on every path so that symlinks are never followed, avoiding
// infinite loops on cyclic symlink trees.
func IsStale(cfg StalenessConfig, repoRoot, indexPath string) (bool, error) {
	if cfg.Disabled {
		return false, nil
	}

	indexInfo, err := os.Lstat(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, pairerrors.NewInternalError("Cannot stat symbol index", indexPath, "", err)
	}
	indexModTime := indexInfo.ModTime()

	stale := false
	walkErr := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, don't fail the whole walk
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && matchAny(cfg.Exclude, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil // symlink_metadata: never follow
		}
		if info.ModTime().After(indexModTime) {
			stale = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return false, pairerrors.NewInternalError("Cannot walk repository for staleness check", repoRoot, "", walkErr)
	}
	return stale, nil
}

func matchAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// EnsureFresh rebuilds the index if it is stale, coordinating concurrent
// rebuilders through an advisory lock file next to indexPath. Waiters poll
// at cfg.Poll and re-check *freshness* (not mere existence) after
// acquiring the lock, since another process may have already rebuilt it
// while we waited.
func EnsureFresh(ctx context.Context, cfg StalenessConfig, repoRoot, indexPath string, extractor Extractor) error {
	stale, err := IsStale(cfg, repoRoot, indexPath)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	lockPath := indexPath + ".lock"
	fl := flock.New(lockPath)

	deadline := time.Now().Add(cfg.timeout())
	lockCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, cfg.poll())
	if err != nil || !locked {
		return pairerrors.NewRepoError(
			"Timed out waiting for symbol index rebuild lock",
			lockPath,
			"retry, or remove the lock file if no other pairctl process is running",
			err,
		)
	}
	defer fl.Unlock() //nolint:errcheck

	// Post-lock freshness re-check: another process may have rebuilt the
	// index while we were waiting for the lock.
	stale, err = IsStale(cfg, repoRoot, indexPath)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	symbols, err := extractor.Extract(lockCtx, repoRoot)
	if err != nil {
		return pairerrors.NewRepoError(
			"Symbol index rebuild failed",
			repoRoot,
			"check the symbol extractor collaborator for errors",
			err,
		)
	}
	return Write(indexPath, symbols)
}
