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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// nonFunctionTokens are control-flow keywords that look like call
// sites lexically ("if (", "for (") but never resolve to a symbol.
var nonFunctionTokens = map[string]bool{
	"if": true, "for": true, "while": true, "match": true,
	"switch": true, "return": true, "func": true,
}

var callsiteRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// CallResolver answers "what does this symbol call" using the flat
// symbol index for name resolution, without building a full static
// call graph ahead of time: callsites are extracted lazily, per
// symbol, during BFS.
type CallResolver struct {
	repoRoot string
	idx      *symbolindex.Index
	byName   map[string][]symbolindex.Symbol
	reader   *fileReader
}

// NewCallResolver builds a resolver over idx's functions and methods,
// grouping candidates by simple name for callsite resolution.
func NewCallResolver(repoRoot string, idx *symbolindex.Index) *CallResolver {
	r := &CallResolver{repoRoot: repoRoot, idx: idx, byName: make(map[string][]symbolindex.Symbol), reader: newFileReader()}
	for _, s := range idx.All() {
		if s.Kind != symbolindex.KindFunction && s.Kind != symbolindex.KindMethod {
			continue
		}
		r.byName[s.Name] = append(r.byName[s.Name], s)
	}
	for name := range r.byName {
		sortDeterministic(r.byName[name])
	}
	return r
}

// resolve picks the deterministic candidate for a called name: sorted
// by repo-relative path ascending then start line ascending, first
// wins when the name is ambiguous.
func (r *CallResolver) resolve(name string) (symbolindex.Symbol, bool) {
	cands := r.byName[name]
	if len(cands) == 0 {
		return symbolindex.Symbol{}, false
	}
	return cands[0], true
}

// callees extracts the lexical callsite names within sym's body,
// filtering out control-flow keywords, and resolves each via the
// symbol index.
func (r *CallResolver) callees(sym symbolindex.Symbol) []symbolindex.Symbol {
	lines, err := r.reader.lines(r.repoRoot, sym.Path)
	if err != nil {
		return nil
	}
	start := sym.StartLine
	end := sym.EndLine
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return nil
	}
	body := strings.Join(lines[start-1:end], "\n")

	seen := make(map[string]bool)
	var out []symbolindex.Symbol
	for _, m := range callsiteRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if nonFunctionTokens[name] || seen[name] {
			continue
		}
		seen[name] = true
		if callee, ok := r.resolve(name); ok && callee.ID() != sym.ID() {
			out = append(out, callee)
		}
	}
	sortDeterministic(out)
	return out
}

// enclosingFunction finds the innermost function/method symbol whose
// range contains line in path.
func enclosingFunction(idx *symbolindex.Index, path string, line int) (symbolindex.Symbol, bool) {
	var best symbolindex.Symbol
	found := false
	for _, s := range idx.ByPath(path) {
		if s.Kind != symbolindex.KindFunction && s.Kind != symbolindex.KindMethod {
			continue
		}
		if line < s.StartLine || line > s.EndLine {
			continue
		}
		if !found || (s.EndLine-s.StartLine) < (best.EndLine-best.StartLine) {
			best = s
			found = true
		}
	}
	return best, found
}

// BFSResult is one symbol reached by bounded call-graph expansion.
type BFSResult struct {
	Symbol symbolindex.Symbol
	Hop    int
}

// BoundedCallgraphBFS performs breadth-first expansion from the
// enclosing function at cfg.Anchor, honoring depth/files_per_hop/edges
// caps and deterministic tie-breaking for ambiguous names. Results
// preserve BFS discovery order; callers that merge this into a query
// stream should dedupe on insertion order, not re-sort.
func BoundedCallgraphBFS(repoRoot string, idx *symbolindex.Index, cfg CallgraphConfig) []BFSResult {
	if !cfg.Enabled {
		return nil
	}
	depth := cfg.Depth
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	filesPerHop := cfg.FilesPerHop
	if filesPerHop <= 0 {
		filesPerHop = 20
	}
	edgeCap := cfg.Edges
	if edgeCap <= 0 {
		edgeCap = 500
	}

	anchorFn, ok := enclosingFunction(idx, cfg.Anchor.Path, cfg.Anchor.Line)
	if !ok {
		return nil
	}

	resolver := NewCallResolver(repoRoot, idx)

	type queued struct {
		sym symbolindex.Symbol
		hop int
	}
	visited := map[string]bool{anchorFn.ID(): true}
	queue := []queued{{anchorFn, 0}}
	var results []BFSResult
	edgesUsed := 0

	for hop := 1; hop <= depth; hop++ {
		var next []queued
		filesThisHop := make(map[string]bool)

		var frontier []queued
		for _, q := range queue {
			if q.hop == hop-1 {
				frontier = append(frontier, q)
			}
		}
		sort.SliceStable(frontier, func(i, j int) bool {
			if frontier[i].sym.Path != frontier[j].sym.Path {
				return frontier[i].sym.Path < frontier[j].sym.Path
			}
			return frontier[i].sym.StartLine < frontier[j].sym.StartLine
		})

		for _, q := range frontier {
			for _, callee := range resolver.callees(q.sym) {
				if visited[callee.ID()] {
					continue
				}
				if edgesUsed >= edgeCap {
					goto done
				}
				edgesUsed++
				if !filesThisHop[callee.Path] {
					if len(filesThisHop) >= filesPerHop {
						continue
					}
					filesThisHop[callee.Path] = true
				}
				visited[callee.ID()] = true
				results = append(results, BFSResult{Symbol: callee, Hop: hop})
				next = append(next, queued{callee, hop})
			}
		}
		queue = append(queue, next...)
	}
done:
	return results
}

// LoadFailSignalFile is a convenience wrapper used by CLI layers to
// turn a --fail-signal path into Diagnostics, tolerating a missing
// file by returning no diagnostics rather than failing the request.
func LoadFailSignalFile(path string) []Diagnostic {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	diags, err := ParseFailSignal(path)
	if err != nil {
		return nil
	}
	return diags
}

var _ = filepath.Separator // keep filepath imported for platform-separator use elsewhere in the package
