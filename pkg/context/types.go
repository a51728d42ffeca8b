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

// Package context turns queries into a deterministic, token-budgeted,
// ranked set of source pieces for feeding to an LLM.
package context

import "github.com/brassloom/pairctl/pkg/symbolindex"

// Tag buckets an Item for budget-fitting purposes.
type Tag string

const (
	TagCode      Tag = "Code"
	TagInterface Tag = "Interface"
	TagTest      Tag = "Test"
)

// Template tunes ranking weights and default buckets.
type Template string

const (
	TemplateRefactor  Template = "refactor"
	TemplateBugfix    Template = "bugfix"
	TemplateFeature   Template = "feature"
	TemplateFreeform  Template = "freeform"
)

// Tier is a preset bundle of budget/limit/per-query caps.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// TierPreset describes one tier's defaults.
type TierPreset struct {
	Budget      int
	Limit       int
	TopPerQuery int
}

var tierPresets = map[Tier]TierPreset{
	TierA: {Budget: 1200, Limit: 60, TopPerQuery: 8},
	TierB: {Budget: 3000, Limit: 150, TopPerQuery: 16},
	TierC: {Budget: 6000, Limit: 300, TopPerQuery: 32},
}

// Anchor focuses ranking and callgraph expansion on a location.
type Anchor struct {
	Path string
	Line int
}

// CallgraphConfig configures bounded call-graph BFS expansion from an
// anchor function.
type CallgraphConfig struct {
	Enabled     bool
	Anchor      Anchor
	Depth       int
	FilesPerHop int
	Edges       int
}

// BucketCap is one entry of the "buckets" option: Tag:cap.
type BucketCap struct {
	Tag Tag
	Cap int
}

// Config bundles every recognized context-request option.
type Config struct {
	Queries         []string
	Anchor          Anchor
	HasAnchor       bool
	Budget          int
	Tier            Tier
	Limit           int
	TopPerQuery     int
	Semantic        bool
	Template        Template
	FailSignal      string
	Callgraph       CallgraphConfig
	Buckets         []BucketCap
	DedupeThreshold float64
	NoveltyMin      float64
	Fence           bool
	JSON            bool
	Quiet           bool
	ExplainScores   bool
}

// ResolveTier applies a tier preset's defaults to zero-valued fields,
// explicit Budget/Limit/TopPerQuery values always win.
func (c *Config) ResolveTier() {
	preset, ok := tierPresets[c.Tier]
	if !ok {
		return
	}
	if c.Budget == 0 {
		c.Budget = preset.Budget
	}
	if c.Limit == 0 {
		c.Limit = preset.Limit
	}
	if c.TopPerQuery == 0 {
		c.TopPerQuery = preset.TopPerQuery
	}
}

// MatchKind is how a candidate satisfied a query.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchSubstring
	MatchFuzzy
	MatchCallgraph
)

// Priority is the (level, relevance, proximity) tuple that orders
// Items. Higher Total always ranks first; NaN components are
// normalized to the lowest rank at construction time so comparisons
// never need special-case NaN handling.
type Priority struct {
	Scope        float64
	Proximity    float64
	CallDistance float64
	FailSignal   float64
	Lexical      float64
	Novelty      float64
	History      float64
}

// Total combines every signal into one comparable score. Each
// component is expected to already be sanitized (no NaN/Inf) by the
// stage that produced it.
func (p Priority) Total() float64 {
	return p.Scope + p.Proximity + p.CallDistance + p.FailSignal + p.Lexical + p.Novelty + p.History
}

// Sanitize replaces NaN with the lowest possible value and +/-Inf with
// large finite bounds, so Priority always participates in a total
// order.
func Sanitize(v float64) float64 {
	if v != v { // NaN
		return -1 << 31
	}
	if v > 1e18 {
		return 1e18
	}
	if v < -1e18 {
		return -1e18
	}
	return v
}

// Piece is a contiguous slice of a source file.
type Piece struct {
	Path      string
	Language  string
	StartLine int
	EndLine   int
	Text      string
	Tag       Tag
	Symbol    *symbolindex.Symbol
}

// Item is a ranked, deduplicated Piece ready for rendering.
type Item struct {
	Piece      Piece
	Priority   Priority
	Match      MatchKind
	Fingerprint Fingerprint
	Tokens     int
}
