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
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// Candidate is one lookup hit before piece extraction.
type Candidate struct {
	Symbol symbolindex.Symbol
	Match  MatchKind
	Query  string
}

// Lookup resolves one query against idx, trying exact, prefix,
// substring, then (if semantic) fuzzy matching, stopping at the first
// stage that yields any hits, capped at topPerQuery.
func Lookup(idx *symbolindex.Index, query string, semantic bool, topPerQuery int) []Candidate {
	if query == "" {
		return nil
	}

	if hits := lookupExact(idx, query); len(hits) > 0 {
		return capCandidates(hits, MatchExact, query, topPerQuery)
	}
	if hits := lookupPrefix(idx, query); len(hits) > 0 {
		return capCandidates(hits, MatchPrefix, query, topPerQuery)
	}
	if hits := lookupSubstring(idx, query); len(hits) > 0 {
		return capCandidates(hits, MatchSubstring, query, topPerQuery)
	}
	if semantic {
		if hits := lookupFuzzy(idx, query); len(hits) > 0 {
			return capCandidates(hits, MatchFuzzy, query, topPerQuery)
		}
	}
	return nil
}

func capCandidates(syms []symbolindex.Symbol, kind MatchKind, query string, topPerQuery int) []Candidate {
	sortDeterministic(syms)
	if topPerQuery > 0 && len(syms) > topPerQuery {
		syms = syms[:topPerQuery]
	}
	out := make([]Candidate, len(syms))
	for i, s := range syms {
		out[i] = Candidate{Symbol: s, Match: kind, Query: query}
	}
	return out
}

func sortDeterministic(syms []symbolindex.Symbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].Path != syms[j].Path {
			return syms[i].Path < syms[j].Path
		}
		return syms[i].StartLine < syms[j].StartLine
	})
}

func lookupExact(idx *symbolindex.Index, query string) []symbolindex.Symbol {
	return idx.ByExactName(query)
}

func lookupPrefix(idx *symbolindex.Index, query string) []symbolindex.Symbol {
	var out []symbolindex.Symbol
	for _, s := range idx.All() {
		if strings.HasPrefix(s.Name, query) || strings.HasPrefix(s.QualifiedName, query) {
			out = append(out, s)
		}
	}
	return out
}

func lookupSubstring(idx *symbolindex.Index, query string) []symbolindex.Symbol {
	var out []symbolindex.Symbol
	q := strings.ToLower(query)
	for _, s := range idx.All() {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.QualifiedName), q) {
			out = append(out, s)
		}
	}
	return out
}

// lookupFuzzy does a fold-case subsequence match: query's characters must
// appear, in order, within the candidate name. Sorting downstream still
// rewards prefix-dense matches even though the match test itself doesn't
// score closeness.
func lookupFuzzy(idx *symbolindex.Index, query string) []symbolindex.Symbol {
	if query == "" {
		return nil
	}
	var out []symbolindex.Symbol
	for _, s := range idx.All() {
		if fuzzy.MatchFold(query, s.Name) || fuzzy.MatchFold(query, s.QualifiedName) {
			out = append(out, s)
		}
	}
	return out
}
