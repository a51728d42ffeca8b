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

package context

import (
	stdcontext "context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// Engine ties the symbol index to query resolution, ranking, dedupe and
// budget fitting, producing one deterministic response per call.
type Engine struct {
	RepoRoot  string
	IndexPath string
	Staleness symbolindex.StalenessConfig
	Extractor symbolindex.Extractor
	Tokenizer Tokenizer
	Recent    map[string]bool // pieces emitted recently, for historyScore
}

// NewEngine builds an Engine with the default byte-estimate tokenizer.
func NewEngine(repoRoot, indexPath string) *Engine {
	return &Engine{
		RepoRoot:  repoRoot,
		IndexPath: indexPath,
		Tokenizer: DefaultTokenizer,
		Recent:    make(map[string]bool),
	}
}

// Response is the result of a Query call, ready for rendering.
type Response struct {
	Items     []Item
	Refusals  []Refusal
	NoSymbols bool
	NoMatches bool
}

var callgraphArgRe = regexp.MustCompile(`(\w+)=(\S+)`)

// ParseCallgraphArg parses the "anchor=P:L depth=N files_per_hop=M edges=K"
// callgraph configuration string.
func ParseCallgraphArg(arg string) (CallgraphConfig, error) {
	cfg := CallgraphConfig{Enabled: true, Depth: 2, FilesPerHop: 20, Edges: 500}
	for _, m := range callgraphArgRe.FindAllStringSubmatch(arg, -1) {
		key, val := m[1], m[2]
		switch key {
		case "anchor":
			// Split on the last ':' so drive letters (C:\...) stay intact.
			colon := strings.LastIndex(val, ":")
			if colon < 0 {
				return cfg, pairerrors.NewInvalidInput("Malformed callgraph anchor", val, "use anchor=path:line", nil)
			}
			line, err := strconv.Atoi(val[colon+1:])
			if err != nil {
				return cfg, pairerrors.NewInvalidInput("Malformed callgraph anchor line", val, "use anchor=path:line", err)
			}
			cfg.Anchor = Anchor{Path: val[:colon], Line: line}
		case "depth":
			n, err := strconv.Atoi(val)
			if err != nil {
				return cfg, pairerrors.NewInvalidInput("Malformed callgraph depth", val, "depth must be an integer in [1,3]", err)
			}
			cfg.Depth = n
		case "files_per_hop":
			n, err := strconv.Atoi(val)
			if err != nil {
				return cfg, pairerrors.NewInvalidInput("Malformed callgraph files_per_hop", val, "files_per_hop must be an integer", err)
			}
			cfg.FilesPerHop = n
		case "edges":
			n, err := strconv.Atoi(val)
			if err != nil {
				return cfg, pairerrors.NewInvalidInput("Malformed callgraph edges", val, "edges must be an integer", err)
			}
			cfg.Edges = n
		default:
			return cfg, pairerrors.NewInvalidInput("Unknown callgraph option", key, "recognized keys: anchor, depth, files_per_hop, edges", nil)
		}
	}
	return cfg, nil
}

// ParseBucketsArg parses the "Tag:cap,Tag:cap" buckets configuration
// string.
func ParseBucketsArg(arg string) ([]BucketCap, error) {
	if arg == "" {
		return nil, nil
	}
	var out []BucketCap
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, pairerrors.NewInvalidInput("Malformed buckets entry", part, "use Tag:cap,Tag:cap", nil)
		}
		cap, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, pairerrors.NewInvalidInput("Malformed bucket cap", part, "cap must be an integer", err)
		}
		out = append(out, BucketCap{Tag: Tag(strings.TrimSpace(kv[0])), Cap: cap})
	}
	return out, nil
}

// Query executes the full Context Assembly pipeline for cfg, returning a
// deterministic, token-budgeted, ranked set of pieces.
func (e *Engine) Query(ctx stdcontext.Context, cfg Config) (*Response, error) {
	cfg.ResolveTier()

	if err := symbolindex.EnsureFresh(ctx, e.Staleness, e.RepoRoot, e.IndexPath, e.Extractor); err != nil {
		return nil, err
	}
	idx, err := symbolindex.Load(e.IndexPath)
	if err != nil {
		return nil, pairerrors.NewRepoError("Cannot load symbol index", e.IndexPath, "reload the symbol index", err)
	}
	if len(idx.All()) == 0 {
		return &Response{NoSymbols: true}, nil
	}

	var candidates []Candidate
	for _, q := range cfg.Queries {
		candidates = append(candidates, Lookup(idx, q, cfg.Semantic, cfg.TopPerQuery)...)
	}
	bfsResults := BoundedCallgraphBFS(e.RepoRoot, idx, cfg.Callgraph)
	for _, r := range bfsResults {
		candidates = append(candidates, Candidate{Symbol: r.Symbol, Match: MatchCallgraph})
	}
	if cfg.Limit > 0 && len(candidates) > cfg.Limit {
		candidates = candidates[:cfg.Limit]
	}
	if len(candidates) == 0 {
		return &Response{NoMatches: true}, nil
	}

	pieces, _ := ExtractPieces(e.RepoRoot, candidates)
	if len(pieces) == 0 {
		return &Response{NoMatches: true}, nil
	}
	matchByKey := make(map[string]MatchKind, len(candidates))
	hopByKey := make(map[string]int, len(bfsResults))
	for _, c := range candidates {
		matchByKey[c.Symbol.ID()] = c.Match
	}
	for _, r := range bfsResults {
		hopByKey[r.Symbol.ID()] = r.Hop
	}

	merged := MergeOverlaps(pieces)

	var diags []Diagnostic
	if cfg.FailSignal != "" {
		diags = LoadFailSignalFile(cfg.FailSignal)
	}

	df, totalDocs := buildDocFrequency(merged)

	items := make([]Item, 0, len(merged))
	for _, p := range merged {
		match := MatchExact
		hop := -1
		if p.Symbol != nil {
			if m, ok := matchByKey[p.Symbol.ID()]; ok {
				match = m
			}
			if h, ok := hopByKey[p.Symbol.ID()]; ok {
				hop = h
			}
		}
		absPath := filepath.Join(e.RepoRoot, filepath.FromSlash(p.Path))
		tokens := tokenRe.FindAllString(normalizeForFingerprint(p.Text), -1)

		pr := Priority{
			Scope:        Sanitize(scopeScore(p.Symbol, cfg.Template)),
			Proximity:    Sanitize(proximityScore(e.RepoRoot, cfg.Anchor, cfg.HasAnchor, absPath)),
			CallDistance: Sanitize(callDistanceScore(hop)),
			FailSignal:   Sanitize(failSignalScore(diags, p.Path, p.StartLine, p.EndLine)),
			Lexical:      Sanitize(lexicalScore(match)),
			Novelty:      Sanitize(noveltyScore(df, totalDocs, tokens)),
			History:      Sanitize(historyScore(e.Recent, pieceKey(p))),
		}
		if cfg.NoveltyMin > 0 && pr.Novelty < cfg.NoveltyMin {
			continue
		}

		items = append(items, Item{
			Piece:       p,
			Priority:    pr,
			Match:       match,
			Fingerprint: ComputeFingerprint(p.Text),
		})
	}

	SortItems(items)

	threshold := cfg.DedupeThreshold
	if threshold <= 0 {
		threshold = 0.9
	}
	kept, refused := Deduplicate(items, threshold)
	var refusals []Refusal
	if refused > 0 {
		refusals = append(refusals, Refusal{Reason: fmt.Sprintf("%d item(s) collapsed by dedupe threshold", refused)})
	}

	tok := e.Tokenizer
	if tok == nil {
		tok = DefaultTokenizer
	}
	budgetItems := make([]BudgetItem, 0, len(kept))
	for i, it := range kept {
		hard := cfg.HasAnchor && it.Piece.Symbol != nil &&
			it.Piece.Path == cfg.Anchor.Path &&
			cfg.Anchor.Line >= it.Piece.StartLine && cfg.Anchor.Line <= it.Piece.EndLine
		t := tok.Estimate(it.Piece.Text)
		kept[i].Tokens = t
		budgetItems = append(budgetItems, BudgetItem{Item: kept[i], Tokens: t, Hard: hard})
	}

	budget := cfg.Budget
	if budget <= 0 {
		budget = tierPresets[TierB].Budget
	}
	fit := FitBudget(tok, budgetItems, budget, cfg.Buckets)
	refusals = append(refusals, fit.Refusals...)

	SortForRendering(fit.Kept)

	for _, it := range fit.Kept {
		e.Recent[pieceKey(it.Piece)] = true
	}

	return &Response{Items: fit.Kept, Refusals: refusals}, nil
}

func pieceKey(p Piece) string {
	return fmt.Sprintf("%s:%d-%d", p.Path, p.StartLine, p.EndLine)
}

// buildDocFrequency builds a crude document-frequency table over the
// merged pieces themselves, used as the corpus for novelty scoring when
// no larger repo-wide index is available.
func buildDocFrequency(pieces []Piece) (map[string]int, int) {
	df := make(map[string]int)
	for _, p := range pieces {
		seen := make(map[string]bool)
		for _, t := range tokenRe.FindAllString(normalizeForFingerprint(p.Text), -1) {
			if seen[t] {
				continue
			}
			seen[t] = true
			df[t]++
		}
	}
	return df, len(pieces)
}
