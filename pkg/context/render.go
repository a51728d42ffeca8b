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
	"fmt"
	"path/filepath"
	"strings"
)

// langFromExt maps a handful of common extensions to fence tags; unknown
// extensions render with no language tag on the fence.
var langFromExt = map[string]string{
	".go":   "go",
	".rs":   "rust",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".rb":   "ruby",
	".sh":   "bash",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".md":   "markdown",
	".toml": "toml",
}

func languageTag(path string) string {
	return langFromExt[strings.ToLower(filepath.Ext(path))]
}

// RenderItem formats one Item per the rendering contract: a stable
// header naming the repo-relative path and inclusive line range,
// optionally fenced, with the raw slice text unchanged.
func RenderItem(it Item, fence bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s:%d-%d\n", it.Piece.Path, it.Piece.StartLine, it.Piece.EndLine)
	if fence {
		lang := languageTag(it.Piece.Path)
		fmt.Fprintf(&b, "```%s\n", lang)
		b.WriteString(it.Piece.Text)
		if !strings.HasSuffix(it.Piece.Text, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```")
	} else {
		b.WriteString(it.Piece.Text)
	}
	return b.String()
}

// RenderBundle renders a full sorted sequence of items (per
// SortForRendering's ordering), joined with a blank line between
// entries.
func RenderBundle(items []Item, fence bool) string {
	rendered := make([]string, 0, len(items))
	for _, it := range items {
		rendered = append(rendered, RenderItem(it, fence))
	}
	return strings.Join(rendered, "\n\n")
}

// ErrorEnvelope is the failure shape of the context JSON envelope.
type ErrorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ItemEnvelope is one rendered item in the JSON envelope.
type ItemEnvelope struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Language  string `json:"language,omitempty"`
	Text      string `json:"text"`
	Tokens    int    `json:"tokens"`
	Tag       Tag    `json:"tag"`
}

// Envelope is the JSON response shape shared by success, no_symbols and
// no_matches cases, and failures.
type Envelope struct {
	Schema   string         `json:"schema"`
	OK       bool           `json:"ok"`
	Items    []ItemEnvelope `json:"items,omitempty"`
	Refused  []Refusal      `json:"refusals,omitempty"`
	NoSymbols bool          `json:"no_symbols,omitempty"`
	NoMatches bool          `json:"no_matches,omitempty"`
	Error    *ErrorEnvelope `json:"error,omitempty"`
}

const envelopeSchema = "context-v1"

// NewSuccessEnvelope builds the success envelope for a rendered item
// set, flagging no_symbols/no_matches when the set is empty for those
// reasons specifically (distinct conditions the caller determines).
func NewSuccessEnvelope(items []Item, refusals []Refusal, noSymbols, noMatches bool) Envelope {
	out := make([]ItemEnvelope, 0, len(items))
	for _, it := range items {
		out = append(out, ItemEnvelope{
			Path:      it.Piece.Path,
			StartLine: it.Piece.StartLine,
			EndLine:   it.Piece.EndLine,
			Language:  it.Piece.Language,
			Text:      it.Piece.Text,
			Tokens:    it.Tokens,
			Tag:       it.Piece.Tag,
		})
	}
	return Envelope{
		Schema:    envelopeSchema,
		OK:        true,
		Items:     out,
		Refused:   refusals,
		NoSymbols: noSymbols,
		NoMatches: noMatches,
	}
}

// NewErrorEnvelope builds the failure envelope for a typed error kind.
func NewErrorEnvelope(kind, message, details string) Envelope {
	return Envelope{
		Schema: envelopeSchema,
		OK:     false,
		Error:  &ErrorEnvelope{Kind: kind, Message: message, Details: details},
	}
}
