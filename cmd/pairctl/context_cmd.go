// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	stdcontext "context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/goextract"
	pctx "github.com/brassloom/pairctl/pkg/context"
	"github.com/brassloom/pairctl/pkg/symbolindex"
)

func runContext(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	budget := fs.Int("budget", 0, "Token budget (overrides tier default)")
	tier := fs.String("tier", "", "Preset tier: A, B or C")
	limit := fs.Int("limit", 0, "Max candidate count before ranking")
	topPerQuery := fs.Int("top-per-query", 0, "Max candidates kept per query")
	semantic := fs.Bool("semantic", false, "Enable fuzzy/semantic lookup cascade")
	template := fs.String("template", "freeform", "Ranking template: refactor, bugfix, feature, freeform")
	anchorArg := fs.String("anchor", "", "Anchor location as path:line")
	failSignal := fs.String("fail-signal", "", "Path to a fail-signal log file")
	callgraphArg := fs.String("callgraph", "", "Callgraph options: anchor=P:L depth=N files_per_hop=M edges=K")
	bucketsArg := fs.String("buckets", "", "Per-tag token caps: Tag:cap,Tag:cap")
	dedupeThreshold := fs.Float64("dedupe-threshold", 0, "Jaccard/simhash dedupe threshold (default 0.9)")
	noveltyMin := fs.Float64("novelty-min", 0, "Minimum novelty score to keep an item")
	fence := fs.Bool("fence", false, "Wrap each item in a language-tagged fenced code block")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairctl context <query> [<query>...] [options]\n\nAssemble a ranked, budget-fitted context bundle.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	queries := fs.Args()
	if len(queries) == 0 {
		fs.Usage()
		os.Exit(3)
	}

	repoRoot := repoRootOrCwd()
	cfg, err := LoadConfig(repoRoot)
	if err != nil {
		pairerrors.FatalError("context-v1", err, globals.JSON)
	}
	indexPath := ResolveIndexPath(cfg, repoRoot)

	reqCfg := pctx.Config{
		Queries:         queries,
		Budget:          *budget,
		Tier:            pctx.Tier(firstNonEmpty(*tier, cfg.Context.Tier)),
		Limit:           *limit,
		TopPerQuery:     *topPerQuery,
		Semantic:        *semantic,
		Template:        pctx.Template(*template),
		FailSignal:      *failSignal,
		DedupeThreshold: firstNonZero(*dedupeThreshold, cfg.Context.DedupeThreshold),
		NoveltyMin:      firstNonZero(*noveltyMin, cfg.Context.NoveltyMin),
		Fence:           *fence,
		JSON:            globals.JSON,
		Quiet:           globals.Quiet,
	}

	if *anchorArg != "" {
		anchor, aerr := parseAnchor(*anchorArg)
		if aerr != nil {
			pairerrors.FatalError("context-v1", aerr, globals.JSON)
		}
		reqCfg.Anchor = anchor
		reqCfg.HasAnchor = true
	}
	if *callgraphArg != "" {
		cgCfg, cgErr := pctx.ParseCallgraphArg(*callgraphArg)
		if cgErr != nil {
			pairerrors.FatalError("context-v1", cgErr, globals.JSON)
		}
		reqCfg.Callgraph = cgCfg
	}
	if *bucketsArg != "" {
		buckets, bErr := pctx.ParseBucketsArg(*bucketsArg)
		if bErr != nil {
			pairerrors.FatalError("context-v1", bErr, globals.JSON)
		}
		reqCfg.Buckets = buckets
	}

	engine := pctx.NewEngine(repoRoot, indexPath)
	engine.Staleness = symbolindex.StalenessConfig{Exclude: cfg.Exclude}
	engine.Extractor = goextract.New()

	start := time.Now()
	metricsRegistry.ContextRequests.Inc()
	resp, err := engine.Query(stdcontext.Background(), reqCfg)
	metricsRegistry.ContextDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		pairerrors.FatalError("context-v1", err, globals.JSON)
	}
	metricsRegistry.ContextItemsEmit.Add(float64(len(resp.Items)))

	if globals.JSON {
		env := pctx.NewSuccessEnvelope(resp.Items, resp.Refusals, resp.NoSymbols, resp.NoMatches)
		data, _ := jsonMarshal(env)
		fmt.Println(string(data))
		return
	}

	if resp.NoSymbols {
		fmt.Println("No symbol index entries found. Run 'pairctl index' first.")
		return
	}
	if resp.NoMatches {
		fmt.Println("No matches for the given queries.")
		return
	}
	fmt.Print(pctx.RenderBundle(resp.Items, *fence))
	for _, r := range resp.Refusals {
		fmt.Fprintf(os.Stderr, "refused: %s (%s)\n", r.Path, r.Reason)
	}
}

func parseAnchor(s string) (pctx.Anchor, error) {
	path, lineStr, ok := cutLast(s, ':')
	if !ok {
		return pctx.Anchor{}, pairerrors.NewInvalidInput("Malformed anchor", s, "use the form path:line", nil)
	}
	line, err := atoi(lineStr)
	if err != nil || line <= 0 {
		return pctx.Anchor{}, pairerrors.NewInvalidInput("Malformed anchor line", s, "use the form path:line with a positive line number", err)
	}
	return pctx.Anchor{Path: path, Line: line}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
