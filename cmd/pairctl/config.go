// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

const (
	configDirName  = ".pairctl"
	configFileName = "project.yaml"
	configVersion  = "1"
)

// Config is the .pairctl/project.yaml project configuration: the
// defaults applied to context/edit/backup commands when the
// corresponding flag is not given explicitly.
type Config struct {
	Version    string         `yaml:"version"`
	IndexPath  string         `yaml:"index_path,omitempty"`
	BackupRoot string         `yaml:"backup_root,omitempty"` // written by init; backup commands always use <repo>/.backup-root
	Staleness  StalenessYAML  `yaml:"staleness,omitempty"`   // not read by any command
	Context    ContextDefault `yaml:"context,omitempty"`
	Exclude    []string       `yaml:"exclude,omitempty"`
}

// StalenessYAML mirrors symbolindex.StalenessConfig in a YAML-friendly
// shape (time.Duration doesn't round-trip cleanly through plain yaml.v3
// scalars without a custom type, so these are kept as seconds/millis).
type StalenessYAML struct {
	Disabled   bool `yaml:"disabled,omitempty"`
	TimeoutSec int  `yaml:"timeout_sec,omitempty"`
	PollMillis int  `yaml:"poll_millis,omitempty"`
}

// ContextDefault holds the default context-request tuning applied when
// flags are not given.
type ContextDefault struct {
	Tier            string  `yaml:"tier,omitempty"`
	Budget          int     `yaml:"budget,omitempty"`
	DedupeThreshold float64 `yaml:"dedupe_threshold,omitempty"`
	NoveltyMin      float64 `yaml:"novelty_min,omitempty"`
}

// DefaultConfig returns sane defaults for a freshly initialized project.
func DefaultConfig() *Config {
	return &Config{
		Version:    configVersion,
		IndexPath:  filepath.Join(configDirName, "symbols.jsonl"),
		BackupRoot: ".backup-root",
		Exclude:    []string{".git/**", "vendor/**", "node_modules/**", ".backup-root/**", ".pairctl/**"},
		Context: ContextDefault{
			Tier:            "B",
			DedupeThreshold: 0.9,
			NoveltyMin:      0,
		},
	}
}

// ConfigPath returns <dir>/.pairctl/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, configDirName, configFileName)
}

// LoadConfig loads the project config from repoRoot, or returns
// DefaultConfig if no config file exists yet.
func LoadConfig(repoRoot string) (*Config, error) {
	path := ConfigPath(repoRoot)
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, pairerrors.NewRepoError("Cannot read project configuration", path, "check file permissions", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, pairerrors.NewInvalidInput("Invalid project configuration", path, "fix the YAML syntax or run 'pairctl init --force'", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to <repoRoot>/.pairctl/project.yaml.
func SaveConfig(cfg *Config, repoRoot string) error {
	path := ConfigPath(repoRoot)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return pairerrors.NewInternalError("Cannot encode project configuration", path, "", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return pairerrors.NewRepoError("Cannot create .pairctl directory", filepath.Dir(path), "check directory permissions", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return pairerrors.NewRepoError("Cannot write project configuration", path, "check file permissions", err)
	}
	return nil
}

// ResolveIndexPath returns cfg's index path made absolute under repoRoot.
func ResolveIndexPath(cfg *Config, repoRoot string) string {
	p := cfg.IndexPath
	if p == "" {
		p = filepath.Join(configDirName, "symbols.jsonl")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

func fmtIndexMissing(path string) error {
	return pairerrors.NewRepoError(
		"Symbol index not found",
		fmt.Sprintf("no symbol index at %s", path),
		"run 'pairctl index' to build it",
		nil,
	)
}
