// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// walkDirsForWatch visits every directory under root not matched by
// exclude, invoking add on each. fsnotify has no recursive-watch mode,
// so each directory needs its own explicit watch registration.
func walkDirsForWatch(root string, exclude []string, add func(dir string) error) error {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && matchesAny(exclude, rel) {
			return filepath.SkipDir
		}
		return add(path)
	})
	if walkErr != nil {
		return pairerrors.NewRepoError("Cannot watch repository", root, "check directory permissions", walkErr)
	}
	return nil
}

func matchesAny(patterns []string, rel string) bool {
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
