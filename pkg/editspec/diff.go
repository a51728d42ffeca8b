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

package editspec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// editSpan is one op's old/new line ranges once mapped into full-file
// coordinates, used to build diff hunks.
type editSpan struct {
	oldStart, oldEnd int // 1-based inclusive; oldEnd < oldStart means empty (pure insert)
	newStart, newEnd int
	op               Op
}

// mapEdits walks ops in ascending start order, tracking the cumulative
// line-count offset introduced by earlier edits, to express every op's
// effect in both original-file and new-file coordinates.
func mapEdits(ops []Op) []editSpan {
	sorted := append([]Op(nil), ops...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var spans []editSpan
	offset := 0
	for _, op := range sorted {
		switch op.Kind {
		case OpDelete:
			oldLen := op.End - op.Start + 1
			spans = append(spans, editSpan{
				oldStart: op.Start, oldEnd: op.End,
				newStart: op.Start + offset, newEnd: op.Start + offset - 1,
				op: op,
			})
			offset -= oldLen
		case OpReplace:
			oldLen := op.End - op.Start + 1
			newLen := len(splitBlock(op.New))
			newStart := op.Start + offset
			spans = append(spans, editSpan{
				oldStart: op.Start, oldEnd: op.End,
				newStart: newStart, newEnd: newStart + newLen - 1,
				op: op,
			})
			offset += newLen - oldLen
		case OpInsert:
			newLen := len(splitBlock(op.New))
			newStart := op.Start + offset + 1
			spans = append(spans, editSpan{
				oldStart: op.Start + 1, oldEnd: op.Start,
				newStart: newStart, newEnd: newStart + newLen - 1,
				op: op,
			})
			offset += newLen
		}
	}
	return spans
}

// hunk is a merged, context-expanded region of a unified diff.
type hunk struct {
	oldStart, oldEnd int
	newStart, newEnd int
	spans            []editSpan
}

// buildHunks expands each edit span by contextLines on either side
// (clamped to file bounds), then merges adjacent/overlapping expanded
// ranges using inclusive-end arithmetic.
func buildHunks(spans []editSpan, oldLineCount, newLineCount, contextLines int) []hunk {
	if len(spans) == 0 {
		return nil
	}

	type expanded struct {
		oldStart, oldEnd int
		newStart, newEnd int
		span             editSpan
	}
	var exps []expanded
	for _, sp := range spans {
		cOldStart := sp.oldStart - contextLines
		cOldEnd := sp.oldEnd + contextLines
		if cOldStart < 1 {
			cOldStart = 1
		}
		if cOldEnd > oldLineCount {
			cOldEnd = oldLineCount
		}
		cNewStart := sp.newStart - contextLines
		cNewEnd := sp.newEnd + contextLines
		if cNewStart < 1 {
			cNewStart = 1
		}
		if cNewEnd > newLineCount {
			cNewEnd = newLineCount
		}
		exps = append(exps, expanded{cOldStart, cOldEnd, cNewStart, cNewEnd, sp})
	}

	var hunks []hunk
	cur := hunk{oldStart: exps[0].oldStart, oldEnd: exps[0].oldEnd, newStart: exps[0].newStart, newEnd: exps[0].newEnd, spans: []editSpan{exps[0].span}}
	for _, e := range exps[1:] {
		// old_count = context_end - context_start + 1; adjacent/overlapping
		// when this span's expanded start doesn't exceed the current
		// hunk's end + 1.
		if e.oldStart <= cur.oldEnd+1 {
			if e.oldEnd > cur.oldEnd {
				cur.oldEnd = e.oldEnd
			}
			if e.newEnd > cur.newEnd {
				cur.newEnd = e.newEnd
			}
			cur.spans = append(cur.spans, e.span)
			continue
		}
		hunks = append(hunks, cur)
		cur = hunk{oldStart: e.oldStart, oldEnd: e.oldEnd, newStart: e.newStart, newEnd: e.newEnd, spans: []editSpan{e.span}}
	}
	hunks = append(hunks, cur)
	return hunks
}

// RenderUnifiedDiff builds a standard unified diff for one file block
// against the file's current on-disk content, regenerating GUARD-CID
// values from that current content (never from the spec) so stale
// guards are never shipped downstream.
func RenderUnifiedDiff(fb FileBlock, repoRoot string, contextLines int) ([]byte, error) {
	abs := filepath.Join(repoRoot, filepath.FromSlash(fb.Path))
	data, err := os.ReadFile(abs) //nolint:gosec
	if err != nil {
		return nil, pairerrors.NewRepoError("Cannot read target file for diff", fb.Path, "", err)
	}
	fc := LoadFileContent(data)

	for i := range fb.Ops {
		if fb.Ops[i].HasGuard {
			fb.Ops[i].GuardCID = GuardCID(fc, fb.Ops[i].Start, fb.Ops[i].End)
		}
	}

	newLines := ApplyOps(fc, fb.Ops)
	spans := mapEdits(fb.Ops)
	hunks := buildHunks(spans, len(fc.Lines), len(newLines), contextLines)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", fb.Path)
	fmt.Fprintf(&b, "+++ b/%s\n", fb.Path)

	for _, h := range hunks {
		oldCount := h.oldEnd - h.oldStart + 1
		newCount := h.newEnd - h.newStart + 1
		oldStartOut, newStartOut := h.oldStart, h.newStart
		if oldCount == 0 {
			oldStartOut = h.oldStart - 1
		}
		if newCount == 0 {
			newStartOut = h.newStart - 1
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStartOut, oldCount, newStartOut, newCount)

		emitHunkBody(&b, fc, newLines, h)
	}

	return []byte(b.String()), nil
}

// emitHunkBody walks a hunk's old range, emitting unchanged context
// lines verbatim and, at each edit span's boundary, the removed old
// lines followed by the added new lines.
func emitHunkBody(b *strings.Builder, fc FileContent, newLines []string, h hunk) {
	spanByOldStart := make(map[int]editSpan, len(h.spans))
	for _, sp := range h.spans {
		spanByOldStart[sp.oldStart] = sp
	}

	oldLine := h.oldStart
	newLine := h.newStart
	for oldLine <= h.oldEnd || newLine <= h.newEnd {
		if sp, ok := spanByOldStart[oldLine]; ok {
			delete(spanByOldStart, oldLine)
			for i := sp.oldStart; i <= sp.oldEnd; i++ {
				fmt.Fprintf(b, "-%s\n", fc.Lines[i-1])
			}
			for i := sp.newStart; i <= sp.newEnd; i++ {
				fmt.Fprintf(b, "+%s\n", newLines[i-1])
			}
			if sp.oldEnd >= sp.oldStart {
				oldLine = sp.oldEnd + 1
			}
			newLine = sp.newEnd + 1
			continue
		}
		if oldLine > h.oldEnd {
			break
		}
		fmt.Fprintf(b, " %s\n", fc.Lines[oldLine-1])
		oldLine++
		newLine++
	}
}
