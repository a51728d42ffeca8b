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
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// FileContent holds a target file's original bytes decomposed into
// lines, plus the line-ending metadata needed to reconstruct it.
type FileContent struct {
	Lines           []string // without line terminators
	EOL             string   // "\n" or "\r\n"
	TrailingNewline bool
}

// LoadFileContent splits raw file bytes into FileContent, taking the line
// ending from the first line and noting whether the file ends with a
// terminator.
func LoadFileContent(data []byte) FileContent {
	s := string(data)
	eol := "\n"
	if idx := strings.IndexByte(s, '\n'); idx > 0 && s[idx-1] == '\r' {
		eol = "\r\n"
	}
	trailing := strings.HasSuffix(s, eol)
	normalized := strings.ReplaceAll(s, "\r\n", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")
	var lines []string
	if normalized != "" || s != "" {
		lines = strings.Split(normalized, "\n")
	}
	if s == "" {
		lines = nil
	}
	return FileContent{Lines: lines, EOL: eol, TrailingNewline: trailing}
}

// normalizeLine strips trailing whitespace for OLD:/GUARD-CID comparison,
// per the guard-determinism invariant (stable under trailing-whitespace
// and CRLF/LF differences).
func normalizeLine(s string) string {
	return strings.TrimRight(s, " \t\r")
}

// GuardCID computes the xxh64 digest of normalized content at [start,end]
// (1-based inclusive), matching the guard attached to a REPLACE.
func GuardCID(fc FileContent, start, end int) string {
	var b strings.Builder
	for i := start; i <= end && i <= len(fc.Lines); i++ {
		if i < 1 {
			continue
		}
		b.WriteString(normalizeLine(fc.Lines[i-1]))
		b.WriteByte('\n')
	}
	h := xxhash.Sum64String(b.String())
	return hex16(h)
}

func hex16(v uint64) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// ValidationErrorKind enumerates the typed conflict reasons surfaced during
// validation; all map to KindConflicts.
type ValidationErrorKind string

const (
	SpanOutOfRange        ValidationErrorKind = "SpanOutOfRange"
	OldContentMismatch    ValidationErrorKind = "OldContentMismatch"
	GuardMismatch         ValidationErrorKind = "GuardMismatch"
	OverlappingOperations ValidationErrorKind = "OverlappingOperations"
)

// ValidateFileBlock checks every operation in fb against fc, returning
// the first violation found. Operations are checked in spec order so
// error messages are deterministic.
func ValidateFileBlock(fb FileBlock, fc FileContent) error {
	n := len(fc.Lines)

	for _, op := range fb.Ops {
		switch op.Kind {
		case OpInsert:
			if op.Start < 0 || op.Start > n+1 {
				return conflictErr(SpanOutOfRange, fb.Path, op, "insert point is outside the file (0..len+1)")
			}
		default:
			if op.Start < 1 || op.End > n || op.Start > op.End {
				return conflictErr(SpanOutOfRange, fb.Path, op, "referenced line span is outside the current file")
			}
		}

		if op.HasOld {
			actual := joinNormalized(fc, op.Start, op.End)
			expected := joinNormalizedText(op.Old)
			if actual != expected {
				return conflictErr(OldContentMismatch, fb.Path, op, "OLD: block does not match the file's current content at that span")
			}
		}

		if op.HasGuard {
			want := strings.ToLower(op.GuardCID)
			got := GuardCID(fc, op.Start, op.End)
			if want != got {
				return conflictErr(GuardMismatch, fb.Path, op, "GUARD-CID does not match the current content at that span; the file changed since the spec was authored")
			}
		}
	}

	if err := checkOverlaps(fb); err != nil {
		return err
	}
	return nil
}

func joinNormalized(fc FileContent, start, end int) string {
	var parts []string
	for i := start; i <= end; i++ {
		parts = append(parts, normalizeLine(fc.Lines[i-1]))
	}
	return strings.Join(parts, "\n")
}

func joinNormalizedText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = normalizeLine(l)
	}
	return strings.Join(lines, "\n")
}

// checkOverlaps flags REPLACE/DELETE operations on the same file whose
// spans overlap. Two INSERTs at the same line are legal.
func checkOverlaps(fb FileBlock) error {
	type span struct {
		start, end int
		op         Op
	}
	var spans []span
	for _, op := range fb.Ops {
		if op.Kind == OpInsert {
			continue
		}
		spans = append(spans, span{op.Start, op.End, op})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start <= spans[i-1].end {
			return conflictErr(OverlappingOperations, fb.Path, spans[i].op, "two operations on this file touch overlapping line ranges")
		}
	}
	return nil
}

func conflictErr(kind ValidationErrorKind, path string, op Op, detail string) error {
	return pairerrors.NewConflictsError(string(kind), detail, "reload the file or adjust the spec's line spans", nil).
		WithLineSpan(path, op.Start, op.End)
}

// ApplyOrder returns op indices in the stable application order defined
// by the spec: by starting line ascending; among equal starts, DELETE
// before REPLACE before INSERT; then reversed within the file so
// highest-line operations apply first and earlier indices stay valid.
func ApplyOrder(ops []Op) []int {
	idx := make([]int, len(ops))
	for i := range idx {
		idx[i] = i
	}
	kindRank := func(k OpKind) int {
		switch k {
		case OpDelete:
			return 0
		case OpReplace:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := ops[idx[i]], ops[idx[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return kindRank(a.Kind) < kindRank(b.Kind)
	})
	// Reverse so application proceeds highest-line-first.
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}
