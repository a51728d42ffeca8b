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
	"sort"
	"strings"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// docWiden is the small constant by which a piece's start is widened to
// try to include an immediately preceding docstring/comment line.
const docWiden = 2

// fileReader groups per-file reads so a file with many candidate
// symbols is read once.
type fileReader struct {
	cache map[string][]string
}

func newFileReader() *fileReader {
	return &fileReader{cache: make(map[string][]string)}
}

func (r *fileReader) lines(repoRoot, relPath string) ([]string, error) {
	if ls, ok := r.cache[relPath]; ok {
		return ls, nil
	}
	data, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(relPath))) //nolint:gosec
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	ls := strings.Split(text, "\n")
	r.cache[relPath] = ls
	return ls, nil
}

// ExtractPieces reads one piece per candidate symbol, widened to catch
// a preceding docstring/comment, grouping reads per file. Unreadable
// files are skipped (and returned separately) rather than failing the
// whole request, per the Context Engine's recoverable-error policy.
func ExtractPieces(repoRoot string, candidates []Candidate) ([]Piece, []string) {
	reader := newFileReader()
	var pieces []Piece
	var skipped []string

	for _, c := range candidates {
		lines, err := reader.lines(repoRoot, c.Symbol.Path)
		if err != nil {
			skipped = append(skipped, c.Symbol.Path)
			continue
		}
		start := c.Symbol.StartLine - docWiden
		if start < 1 {
			start = 1
		}
		end := c.Symbol.EndLine
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			continue
		}
		text := strings.Join(lines[start-1:end], "\n")
		pieces = append(pieces, Piece{
			Path:      c.Symbol.Path,
			Language:  c.Symbol.Language,
			StartLine: start,
			EndLine:   end,
			Text:      text,
			Tag:       tagFor(c.Symbol),
			Symbol:    &c.Symbol,
		})
	}
	return pieces, skipped
}

func tagFor(s symbolindex.Symbol) Tag {
	if strings.Contains(s.Path, "_test.") || strings.HasSuffix(s.Path, "_test.go") {
		return TagTest
	}
	switch s.Kind {
	case symbolindex.KindTrait:
		return TagInterface
	default:
		return TagCode
	}
}

// MergeOverlaps groups pieces by file and merges overlapping/adjacent
// ranges (end+1 >= next.start) into contiguous pieces, preserving
// stable order by starting line within each file and files in their
// first-seen order.
func MergeOverlaps(pieces []Piece) []Piece {
	byFile := make(map[string][]Piece)
	var fileOrder []string
	for _, p := range pieces {
		if _, ok := byFile[p.Path]; !ok {
			fileOrder = append(fileOrder, p.Path)
		}
		byFile[p.Path] = append(byFile[p.Path], p)
	}

	var out []Piece
	for _, path := range fileOrder {
		group := byFile[path]
		sort.SliceStable(group, func(i, j int) bool { return group[i].StartLine < group[j].StartLine })

		merged := []Piece{group[0]}
		for _, p := range group[1:] {
			last := &merged[len(merged)-1]
			if p.StartLine <= last.EndLine+1 {
				if p.EndLine > last.EndLine {
					last.Text = joinPieceText(last, p)
					last.EndLine = p.EndLine
				}
				continue
			}
			merged = append(merged, p)
		}
		out = append(out, merged...)
	}
	return out
}

// joinPieceText extends a's text to also cover b's tail, assuming b
// overlaps or immediately follows a (already checked by the caller).
func joinPieceText(a *Piece, b Piece) string {
	overlap := a.EndLine - b.StartLine + 1
	bLines := strings.Split(b.Text, "\n")
	if overlap >= len(bLines) {
		return a.Text
	}
	if overlap < 0 {
		overlap = 0
	}
	extra := bLines[overlap:]
	return a.Text + "\n" + strings.Join(extra, "\n")
}
