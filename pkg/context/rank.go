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
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// scopeScore rewards public symbols and, outside the refactor template,
// function bodies over bare type declarations.
func scopeScore(s *symbolindex.Symbol, tmpl Template) float64 {
	if s == nil {
		return 0
	}
	score := 0.0
	switch s.Visibility {
	case symbolindex.VisPublic:
		score += 3
	case symbolindex.VisCrate:
		score += 2
	case symbolindex.VisPrivate:
		score += 1
	}
	isFunc := s.Kind == symbolindex.KindFunction || s.Kind == symbolindex.KindMethod
	if tmpl != TemplateRefactor && isFunc {
		score += 1
	}
	return score
}

// proximityScore ranks same-file highest, then same-directory, then
// ascending path distance from a canonicalized anchor. It degrades
// gracefully (zero contribution) when the anchor can't be resolved.
func proximityScore(repoRoot string, anchor Anchor, hasAnchor bool, pieceAbsPath string) float64 {
	if !hasAnchor {
		return 0
	}
	anchorAbs := filepath.Join(repoRoot, filepath.FromSlash(anchor.Path))
	anchorClean := filepath.Clean(anchorAbs)
	pieceClean := filepath.Clean(pieceAbsPath)

	if anchorClean == pieceClean {
		return 10
	}
	if filepath.Dir(anchorClean) == filepath.Dir(pieceClean) {
		return 6
	}
	rel, err := filepath.Rel(filepath.Dir(anchorClean), filepath.Dir(pieceClean))
	if err != nil {
		return 0
	}
	distance := strings.Count(rel, string(filepath.Separator)) + 1
	return math.Max(0, 5-float64(distance))
}

// lexicalScore ranks match quality: exact > prefix > substring > fuzzy.
func lexicalScore(kind MatchKind) float64 {
	switch kind {
	case MatchExact:
		return 4
	case MatchPrefix:
		return 3
	case MatchSubstring:
		return 2
	case MatchFuzzy:
		return 1
	case MatchCallgraph:
		return 0.5
	default:
		return 0
	}
}

// severityWeight maps a fail-signal diagnostic level to a weight. The
// only hard contract is monotonicity: Error >= Warn >= Info.
func severityWeight(level string) float64 {
	switch strings.ToLower(level) {
	case "error":
		return 3
	case "warn", "warning":
		return 2
	case "info":
		return 1
	default:
		return 0
	}
}

// failSignalScore returns a bounded boost for pieces overlapping a
// flagged line, weighted by the highest severity seen for that line.
func failSignalScore(diags []Diagnostic, path string, startLine, endLine int) float64 {
	best := 0.0
	for _, d := range diags {
		if d.Path != path {
			continue
		}
		if d.Line < startLine || d.Line > endLine {
			continue
		}
		if w := severityWeight(d.Level); w > best {
			best = w
		}
	}
	return math.Min(best, 3) * 0.3 // bounded multiplier
}

// callDistanceScore converts a BFS hop distance into a bounded
// contribution (<= 0.15 of a representative total), via exponential
// decay. -1 means "not reached by BFS".
func callDistanceScore(hop int) float64 {
	if hop < 0 {
		return 0
	}
	const weight = 1.5 // empirically keeps the contribution under ~0.15 of a typical total
	return weight * math.Exp(-float64(hop))
}

// historyScore deprioritizes pieces identical (by path+range) to ones
// recently emitted, tracked per-anchor or globally by the caller.
func historyScore(recent map[string]bool, key string) float64 {
	if recent[key] {
		return -2
	}
	return 0
}

// noveltyScore computes a TF-IDF-like rarity score for a piece's tokens
// against the corpus document frequency table, returning Sanitize'd
// output. Below novelty_min the caller downranks or drops the item.
func noveltyScore(df map[string]int, totalDocs int, tokens []string) float64 {
	if totalDocs == 0 || len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	var sum float64
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		freq := df[t]
		if freq == 0 {
			freq = 1
		}
		idf := math.Log(float64(totalDocs) / float64(freq))
		sum += idf
	}
	if len(seen) == 0 {
		return 0
	}
	return Sanitize(sum / float64(len(seen)))
}

// Diagnostic is one parsed line from a fail-signal log, in the
// "path:line: level: message" compiler-diagnostic style.
type Diagnostic struct {
	Path  string
	Line  int
	Level string
	Msg   string
}

// SortItems orders items by descending Priority.Total, tie-broken by
// path ascending then start line ascending, using total-order
// comparisons throughout (every component is pre-sanitized).
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Priority.Total(), items[j].Priority.Total()
		if ti != tj {
			return ti > tj
		}
		if items[i].Piece.Path != items[j].Piece.Path {
			return items[i].Piece.Path < items[j].Piece.Path
		}
		return items[i].Piece.StartLine < items[j].Piece.StartLine
	})
}

// SortForRendering orders the final output by path ascending, then
// start line ascending — stable and independent of Priority, per the
// rendering contract.
func SortForRendering(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Piece.Path != items[j].Piece.Path {
			return items[i].Piece.Path < items[j].Piece.Path
		}
		return items[i].Piece.StartLine < items[j].Piece.StartLine
	})
}
