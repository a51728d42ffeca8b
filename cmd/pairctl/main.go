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

// Package main implements the pairctl CLI: a local-first context
// assembly, edit application and backup tool for LLM-assisted repository
// collaboration.
//
// Usage:
//
//	pairctl init                    Create .pairctl/project.yaml
//	pairctl index                   Build or rebuild the symbol index
//	pairctl context <query...>      Assemble a context bundle
//	pairctl edit apply <spec-file>  Apply an edit spec to the repo
//	pairctl edit diff <spec-file>   Preview an edit spec as a unified diff
//	pairctl backup list             List backup sessions
//	pairctl backup restore <id>     Restore files from a backup session
//	pairctl watch                   Watch the repo and keep the index warm
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/brassloom/pairctl/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags shared by every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func logInfo(g GlobalFlags, format string, args ...interface{}) {
	if !g.Quiet && g.Verbose >= 1 {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

func logDebug(g GlobalFlags, format string, args ...interface{}) {
	if g.Verbose >= 2 {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Not read: commands load .pairctl/project.yaml from the repository root")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v info, -vv debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `pairctl - local context, edit and backup engine for LLM pairing

Usage:
  pairctl <command> [options]

Commands:
  init          Create .pairctl/project.yaml configuration
  index         Build or rebuild the symbol index
  context       Assemble a ranked, budget-fitted context bundle
  edit apply    Apply an edit spec to the working tree
  edit diff     Preview an edit spec as a unified diff, no writes
  backup list   List backup sessions
  backup show   Show one backup session's manifest
  backup restore Restore files from a backup session
  backup cleanup Prune old backup sessions per retention policy
  watch         Watch the repo and keep the symbol index warm

Global Options:
  --json             Output in JSON format
  --no-color         Disable color output (respects NO_COLOR env var)
  -v, --verbose      Increase verbosity (-v info, -vv debug)
  -q, --quiet        Suppress non-essential output
  -c, --config       Not read; .pairctl/project.yaml at the repo root is used
  --metrics-addr     Serve Prometheus metrics on this address while running
  -V, --version      Show version and exit

Examples:
  pairctl init
  pairctl index
  pairctl context "ParseConfig" --budget 6000 --tier B --fence
  pairctl edit diff changes.editspec
  pairctl edit apply changes.editspec
  pairctl backup list --since 24h
  pairctl backup restore 1767268800000-3f9a2c

For detailed command help: pairctl <command> --help
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("pairctl version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	ui.Init(globals.NoColor)

	var metricsStop <-chan error
	if *metricsAddr != "" {
		reg := newMetricsRegistry()
		metricsStop = reg.Serve(*metricsAddr)
		logInfo(globals, "metrics listening on %s", *metricsAddr)
	}
	_ = metricsStop

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "context":
		runContext(cmdArgs, *configPath, globals)
	case "edit":
		runEdit(cmdArgs, *configPath, globals)
	case "backup":
		runBackup(cmdArgs, *configPath, globals)
	case "watch":
		runWatch(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
