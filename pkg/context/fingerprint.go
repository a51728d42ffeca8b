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
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/brassloom/pairctl/pkg/sigparse"
)

// simhashLongSpan is the line-count threshold above which Fingerprint
// falls back to a 64-bit simhash instead of keeping the full token
// shingle set, bounding fingerprint memory for very large pieces.
const simhashLongSpan = 200

var tokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Fingerprint is a similarity descriptor used for deduplication: a
// token-shingle set for Jaccard comparison, plus an exact content hash
// and a simhash fallback for long spans.
type Fingerprint struct {
	Shingles  map[string]bool // nil when simhash fallback is used
	Simhash   uint64
	ExactHash uint64
	tokenCount int
}

// ComputeFingerprint builds a Fingerprint for a piece. When sigparse
// can extract a Go function signature from the text (AST-aware hint),
// its parameter types are folded in as extra shingles so
// signature-equivalent pieces with renamed locals still collide.
func ComputeFingerprint(text string) Fingerprint {
	normalized := normalizeForFingerprint(text)
	tokens := tokenRe.FindAllString(normalized, -1)

	for _, p := range sigparse.ParseGoParams(firstLine(text)) {
		tokens = append(tokens, "type:"+p.Type)
	}

	exact := xxhash.Sum64String(normalized)

	if len(tokens) > simhashLongSpan {
		return Fingerprint{Simhash: simhash(tokens), ExactHash: exact, tokenCount: len(tokens)}
	}

	shingles := make(map[string]bool, len(tokens))
	for i := 0; i < len(tokens); i++ {
		end := i + 2
		if end > len(tokens) {
			end = len(tokens)
		}
		shingles[strings.Join(tokens[i:end], " ")] = true
	}
	return Fingerprint{Shingles: shingles, ExactHash: exact, tokenCount: len(tokens)}
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		return text[:idx]
	}
	return text
}

func normalizeForFingerprint(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}

// simhash computes a 64-bit simhash over token hashes, used as a cheap
// fallback fingerprint for spans too long to keep a full shingle set.
func simhash(tokens []string) uint64 {
	var weights [64]int
	for _, t := range tokens {
		h := xxhash.Sum64String(t)
		for b := 0; b < 64; b++ {
			if h&(1<<uint(b)) != 0 {
				weights[b]++
			} else {
				weights[b]--
			}
		}
	}
	var out uint64
	for b := 0; b < 64; b++ {
		if weights[b] > 0 {
			out |= 1 << uint(b)
		}
	}
	return out
}

// Jaccard returns the Jaccard similarity between two fingerprints. When
// either side used the simhash fallback, similarity is derived from
// normalized Hamming distance instead of set overlap.
func Jaccard(a, b Fingerprint) float64 {
	if a.Shingles == nil || b.Shingles == nil {
		dist := popcount(a.Simhash ^ b.Simhash)
		return 1 - float64(dist)/64
	}
	if len(a.Shingles) == 0 && len(b.Shingles) == 0 {
		return 1
	}
	inter, union := 0, 0
	seen := make(map[string]bool, len(a.Shingles)+len(b.Shingles))
	for s := range a.Shingles {
		seen[s] = true
	}
	for s := range b.Shingles {
		if !seen[s] {
			union++
		}
	}
	union += len(a.Shingles)
	for s := range a.Shingles {
		if b.Shingles[s] {
			inter++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func popcount(v uint64) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

// Deduplicate collapses items whose Jaccard similarity meets
// threshold, keeping the earlier (higher-priority, since items is
// expected pre-sorted by Priority) occurrence. Interface-tagged items
// only collapse on an exact hash match, never on fuzzy similarity.
func Deduplicate(items []Item, threshold float64) (kept []Item, refused int) {
	for _, it := range items {
		collapsed := false
		for _, k := range kept {
			if it.Piece.Tag == TagInterface || k.Piece.Tag == TagInterface {
				if it.Fingerprint.ExactHash == k.Fingerprint.ExactHash {
					collapsed = true
					break
				}
				continue
			}
			if Jaccard(it.Fingerprint, k.Fingerprint) >= threshold {
				collapsed = true
				break
			}
		}
		if collapsed {
			refused++
			continue
		}
		kept = append(kept, it)
	}
	return kept, refused
}

// sortedShingleKeys is used only for deterministic debug output; not on
// the hot path.
func sortedShingleKeys(fp Fingerprint) []string {
	keys := make([]string, 0, len(fp.Shingles))
	for k := range fp.Shingles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
