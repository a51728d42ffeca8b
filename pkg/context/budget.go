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
)

// Tokenizer estimates the token count of a rendered string. The real
// tokenizer is a pluggable external collaborator; byteEstimateTokenizer
// below is the fallback used when none is wired in, honoring the
// ceil(len_bytes/4) ± 10% contract.
type Tokenizer interface {
	Estimate(text string) int
}

// byteEstimateTokenizer is the fallback collaborator: ceil(bytes/4).
type byteEstimateTokenizer struct{}

func (byteEstimateTokenizer) Estimate(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// DefaultTokenizer is the fallback used when no external tokenizer is
// configured.
var DefaultTokenizer Tokenizer = byteEstimateTokenizer{}

// minTokenFloor is the minimum size an item may be shrunk to before the
// fitter gives up and refuses it outright instead of rendering a sliver.
const minTokenFloor = 20

// BudgetItem is one candidate offered to the fitter, carrying the
// minimum acceptable token floor it can be shrunk to.
type BudgetItem struct {
	Item      Item
	Tokens    int
	Hard      bool // seeded as indispensable (e.g. anchor's enclosing function)
	MinTokens int
}

// Refusal records one item the fitter could not fit whole: either refused
// outright or kept only as a truncated prefix.
type Refusal struct {
	Path   string
	Tag    Tag
	Reason string
}

// FitResult is the budget fitter's output.
type FitResult struct {
	Kept           []Item
	Refusals       []Refusal
	HardOverBudget bool
	TokensUsed     int
}

// takePrefix truncates text to at most maxTokens worth of content using
// tok, guaranteeing no overflow: it trims whole lines from the end until
// the estimate fits, then falls back to a byte-prefix cut if even one
// line overflows alone.
func takePrefix(tok Tokenizer, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if tok.Estimate(text) <= maxTokens {
		return text
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 1 {
		lines = lines[:len(lines)-1]
		candidate := strings.Join(lines, "\n")
		if tok.Estimate(candidate) <= maxTokens {
			return candidate
		}
	}
	// Single line still overflows; cut by estimated byte budget.
	maxBytes := maxTokens * 4
	if maxBytes >= len(text) {
		return text
	}
	if maxBytes < 0 {
		maxBytes = 0
	}
	return text[:maxBytes]
}

// FitBudget runs the two-pass fitter described in the Context Engine's
// budget-fitting stage: hard expansion for indispensable items, then a
// bucket-capped greedy fill for the rest, shrinking toward a floor or
// refusing and logging on overflow.
func FitBudget(tok Tokenizer, items []BudgetItem, budget int, buckets []BucketCap) FitResult {
	if tok == nil {
		tok = DefaultTokenizer
	}

	var result FitResult
	used := 0

	var soft []BudgetItem
	for _, it := range items {
		if !it.Hard {
			soft = append(soft, it)
			continue
		}
		result.Kept = append(result.Kept, it.Item)
		used += it.Tokens
	}
	if used > budget {
		result.HardOverBudget = true
	}

	capOf := make(map[Tag]int)
	for _, b := range buckets {
		capOf[b.Tag] = b.Cap
	}

	byTag := make(map[Tag][]BudgetItem)
	var tagOrder []Tag
	for _, it := range soft {
		tag := it.Item.Piece.Tag
		if _, ok := byTag[tag]; !ok {
			tagOrder = append(tagOrder, tag)
		}
		byTag[tag] = append(byTag[tag], it)
	}
	sort.Slice(tagOrder, func(i, j int) bool { return tagOrder[i] < tagOrder[j] })

	for _, tag := range tagOrder {
		group := byTag[tag]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Item.Priority.Total() > group[j].Item.Priority.Total()
		})

		bucketCap, hasBucketCap := capOf[tag]
		remainingGlobal := budget - used
		bucketUsed := 0

		for _, it := range group {
			globalRoom := remainingGlobal - bucketUsed
			if globalRoom <= 0 {
				result.Refusals = append(result.Refusals, Refusal{Path: it.Item.Piece.Path, Tag: tag, Reason: "budget exhausted"})
				continue
			}
			room := globalRoom
			if hasBucketCap {
				bucketRoom := bucketCap - bucketUsed
				if bucketRoom <= 0 {
					result.Refusals = append(result.Refusals, Refusal{Path: it.Item.Piece.Path, Tag: tag, Reason: "bucket cap exhausted"})
					continue
				}
				if bucketRoom < room {
					room = bucketRoom
				}
			}

			if it.Tokens <= room {
				result.Kept = append(result.Kept, it.Item)
				bucketUsed += it.Tokens
				continue
			}

			floor := it.MinTokens
			if floor <= 0 {
				floor = minTokenFloor
			}
			if room < floor {
				result.Refusals = append(result.Refusals, Refusal{Path: it.Item.Piece.Path, Tag: tag, Reason: "below minimum token floor"})
				continue
			}
			shrunk := it.Item
			shrunk.Piece.Text = takePrefix(tok, it.Item.Piece.Text, room)
			shrunk.Tokens = tok.Estimate(shrunk.Piece.Text)
			result.Kept = append(result.Kept, shrunk)
			result.Refusals = append(result.Refusals, Refusal{Path: it.Item.Piece.Path, Tag: tag, Reason: "truncated to fit"})
			bucketUsed += shrunk.Tokens
		}

		used += bucketUsed
	}

	result.TokensUsed = used
	return result
}
