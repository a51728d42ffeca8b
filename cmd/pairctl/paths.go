// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// findRepoRoot walks up from dir looking for a .pairctl or .git directory,
// stopping at the filesystem root, so commands can be run from any
// subdirectory of a project.
func findRepoRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", pairerrors.NewInternalError("Cannot resolve working directory", start, "", err)
	}
	for {
		if _, statErr := os.Stat(filepath.Join(dir, configDirName)); statErr == nil {
			return dir, nil
		}
		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", pairerrors.NewRepoError(
		"Not inside a pairctl project",
		start,
		"run 'pairctl init' at the repository root first",
		nil,
	)
}

// repoRootOrCwd resolves the repo root, falling back to the current
// directory for commands (like init) that may run before a project exists.
func repoRootOrCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	root, err := findRepoRoot(cwd)
	if err != nil {
		return cwd
	}
	return root
}
