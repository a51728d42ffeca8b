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

import "strings"

// MarkerBlock is one detected conflict region, 2-way or 3-way.
type MarkerBlock struct {
	StartLine int // 1-based, the <<<<<<< line
	EndLine   int // 1-based, the >>>>>>> line
	Ours      []string
	Base      []string // nil for a 2-way block
	Theirs    []string
	ThreeWay  bool
}

const (
	markerOurs   = "<<<<<<<"
	markerBase   = "|||||||"
	markerSep    = "======="
	markerTheirs = ">>>>>>>"
)

// DetectConflictMarkers scans content line-by-line for column-0 conflict
// markers. Non-UTF-8 bytes are tolerated: scanning operates on raw byte
// lines, not runes, so it never panics on invalid encoding.
func DetectConflictMarkers(content []byte, eol string) []MarkerBlock {
	lines := strings.Split(normalizeToLF(content, eol), "\n")

	var blocks []MarkerBlock
	i := 0
	for i < len(lines) {
		if strings.HasPrefix(lines[i], markerOurs) {
			block := MarkerBlock{StartLine: i + 1}
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], markerBase) && !strings.HasPrefix(lines[i], markerSep) {
				block.Ours = append(block.Ours, lines[i])
				i++
			}
			if i < len(lines) && strings.HasPrefix(lines[i], markerBase) {
				block.ThreeWay = true
				i++
				for i < len(lines) && !strings.HasPrefix(lines[i], markerSep) {
					block.Base = append(block.Base, lines[i])
					i++
				}
			}
			if i < len(lines) && strings.HasPrefix(lines[i], markerSep) {
				i++
			}
			for i < len(lines) && !strings.HasPrefix(lines[i], markerTheirs) {
				block.Theirs = append(block.Theirs, lines[i])
				i++
			}
			if i < len(lines) && strings.HasPrefix(lines[i], markerTheirs) {
				block.EndLine = i + 1
				i++
			}
			blocks = append(blocks, block)
			continue
		}
		i++
	}
	return blocks
}

func normalizeToLF(content []byte, eol string) string {
	s := string(content)
	if eol == "\r\n" {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return s
}

// Resolution is the outcome of attempting to auto-resolve one marker
// block with SmartMerge.
type Resolution struct {
	Resolved   bool
	Lines      []string
	Rule       string
	Confidence float64
}

// minConfidence is the floor SmartMerge resolutions must clear to be
// accepted by an applier.
const minConfidence = 0.95

// SmartMerge applies, in order, whitespace-only / addition-only /
// superset / disjoint-edits rules to one marker block, returning the
// first rule that fires. If none fire, Resolution.Resolved is false.
func SmartMerge(block MarkerBlock) Resolution {
	if r, ok := whitespaceOnly(block); ok {
		return r
	}
	if r, ok := additionOnly(block); ok {
		return r
	}
	if block.ThreeWay {
		if r, ok := supersetOfBase(block); ok {
			return r
		}
	}
	if r, ok := disjointEdits(block); ok {
		return r
	}
	return Resolution{Resolved: false, Rule: "Unresolved", Confidence: 0}
}

func joinTrim(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(strings.TrimSpace(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// whitespaceOnly fires when ours and theirs differ only in whitespace;
// the non-whitespace-normalized side... both normalize identically, so
// either side is equivalent. Picks theirs for stability with git's own
// convention of preferring the incoming side when content is identical
// modulo whitespace.
func whitespaceOnly(block MarkerBlock) (Resolution, bool) {
	if joinTrim(block.Ours) != joinTrim(block.Theirs) {
		return Resolution{}, false
	}
	return Resolution{Resolved: true, Lines: block.Theirs, Rule: "whitespace-only", Confidence: 1.0}, true
}

// additionOnly fires when one side's lines are a superset of the
// other's at the line level (the shorter side's lines all appear, in
// order, within the longer side).
func additionOnly(block MarkerBlock) (Resolution, bool) {
	if isLineSubsequence(block.Ours, block.Theirs) {
		return Resolution{Resolved: true, Lines: block.Theirs, Rule: "addition-only", Confidence: 0.99}, true
	}
	if isLineSubsequence(block.Theirs, block.Ours) {
		return Resolution{Resolved: true, Lines: block.Ours, Rule: "addition-only", Confidence: 0.99}, true
	}
	return Resolution{}, false
}

// supersetOfBase fires (3-way only) when exactly one side is a strict
// superset of base at the line level and the other side equals base
// (i.e. only one side actually changed anything).
func supersetOfBase(block MarkerBlock) (Resolution, bool) {
	oursChanged := !linesEqual(block.Ours, block.Base)
	theirsChanged := !linesEqual(block.Theirs, block.Base)
	if oursChanged && !theirsChanged && isLineSubsequence(block.Base, block.Ours) {
		return Resolution{Resolved: true, Lines: block.Ours, Rule: "superset", Confidence: 0.98}, true
	}
	if theirsChanged && !oursChanged && isLineSubsequence(block.Base, block.Theirs) {
		return Resolution{Resolved: true, Lines: block.Theirs, Rule: "superset", Confidence: 0.98}, true
	}
	return Resolution{}, false
}

// disjointEdits fires only when one side of the block is empty: the two
// sides are then unioned in ours-then-theirs order. Blocks where both
// sides have lines are left unresolved by this rule.
func disjointEdits(block MarkerBlock) (Resolution, bool) {
	if len(block.Ours) == 0 || len(block.Theirs) == 0 {
		merged := append(append([]string{}, block.Ours...), block.Theirs...)
		return Resolution{Resolved: true, Lines: merged, Rule: "disjoint-edits", Confidence: 0.96}, true
	}
	return Resolution{}, false
}

func isLineSubsequence(short, long []string) bool {
	if len(short) == 0 {
		return true
	}
	j := 0
	for i := 0; i < len(long) && j < len(short); i++ {
		if long[i] == short[j] {
			j++
		}
	}
	return j == len(short)
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ResolveMarkers scans content for conflict markers and replaces every
// block SmartMerge resolves with confidence >= minConfidence, returning
// the rewritten content and the blocks left unresolved.
func ResolveMarkers(content []byte, eol string) ([]byte, []MarkerBlock) {
	blocks := DetectConflictMarkers(content, eol)
	if len(blocks) == 0 {
		return content, nil
	}

	lines := strings.Split(normalizeToLF(content, eol), "\n")
	var out []string
	var unresolved []MarkerBlock
	cursor := 0

	for _, blk := range blocks {
		out = append(out, lines[cursor:blk.StartLine-1]...)
		res := SmartMerge(blk)
		if res.Resolved && res.Confidence >= minConfidence {
			out = append(out, res.Lines...)
		} else {
			out = append(out, lines[blk.StartLine-1:blk.EndLine]...)
			unresolved = append(unresolved, blk)
		}
		cursor = blk.EndLine
	}
	out = append(out, lines[cursor:]...)

	joined := strings.Join(out, eol)
	return []byte(joined), unresolved
}
