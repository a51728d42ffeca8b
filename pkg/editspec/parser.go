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
	"strconv"
	"strings"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// Parse reads a textual edit spec and returns the parsed Spec. Unknown
// directives and malformed line spans fail with InvalidInput, each
// pointing at the spec line that triggered the failure.
func Parse(text string) (*Spec, error) {
	p := &parser{lines: splitLines(text)}
	return p.parse()
}

type parser struct {
	lines []string
	pos   int // 0-based index into lines

	pendingGuard    string
	pendingHasGuard bool
}

func (p *parser) parse() (*Spec, error) {
	spec := &Spec{}
	var cur *FileBlock

	for p.pos < len(p.lines) {
		raw := p.lines[p.pos]
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "#") {
			p.pos++
			continue
		}

		switch {
		case strings.HasPrefix(line, "FILE:"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "FILE:"))
			if path == "" {
				return nil, p.errf("Empty FILE path", "FILE: directive requires a repo-relative path")
			}
			spec.Files = append(spec.Files, FileBlock{Path: path})
			cur = &spec.Files[len(spec.Files)-1]
			p.pos++

		case strings.HasPrefix(line, "GUARD-CID:"):
			if cur == nil {
				return nil, p.errf("GUARD-CID outside FILE block", "a GUARD-CID directive must follow a FILE: and precede its operation")
			}
			p.pendingGuard = strings.TrimSpace(strings.TrimPrefix(line, "GUARD-CID:"))
			p.pendingHasGuard = true
			p.pos++

		case strings.HasPrefix(line, "REPLACE lines"):
			if cur == nil {
				return nil, p.errf("REPLACE outside FILE block", "a REPLACE directive must follow a FILE:")
			}
			start, end, err := p.parseSpan(strings.TrimPrefix(line, "REPLACE lines"))
			if err != nil {
				return nil, err
			}
			op := Op{Kind: OpReplace, Start: start, End: end, SourceLine: p.pos + 1}
			p.attachPendingGuard(&op)
			p.pos++
			if err := p.parseOldNew(&op, true); err != nil {
				return nil, err
			}
			cur.Ops = append(cur.Ops, op)

		case strings.HasPrefix(line, "INSERT at"):
			if cur == nil {
				return nil, p.errf("INSERT outside FILE block", "an INSERT directive must follow a FILE:")
			}
			rest := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "INSERT at")), ":")
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil || n < 0 {
				return nil, p.errf("Invalid INSERT line", "INSERT at requires a non-negative line number")
			}
			op := Op{Kind: OpInsert, Start: n, End: n, SourceLine: p.pos + 1}
			p.attachPendingGuard(&op)
			p.pos++
			if err := p.parseOldNew(&op, false); err != nil {
				return nil, err
			}
			cur.Ops = append(cur.Ops, op)

		case strings.HasPrefix(line, "DELETE lines"):
			if cur == nil {
				return nil, p.errf("DELETE outside FILE block", "a DELETE directive must follow a FILE:")
			}
			start, end, err := p.parseSpan(strings.TrimPrefix(line, "DELETE lines"))
			if err != nil {
				return nil, err
			}
			op := Op{Kind: OpDelete, Start: start, End: end, SourceLine: p.pos + 1}
			p.attachPendingGuard(&op)
			cur.Ops = append(cur.Ops, op)
			p.pos++

		default:
			return nil, p.errf("Unknown directive", "line does not begin with a recognized directive: "+truncate(line, 60))
		}
	}

	return spec, nil
}

// parseSpan parses "N[-M]:" (trailing colon optional, as DELETE omits
// it) into a 1-based inclusive span.
func (p *parser) parseSpan(rest string) (int, int, error) {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, ":")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, 0, p.errf("Missing line span", "expected N or N-M")
	}
	parts := strings.SplitN(rest, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || start < 1 {
		return 0, 0, p.errf("Invalid line span start", "line numbers are 1-based and must be positive")
	}
	end := start
	if len(parts) == 2 {
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || end < start {
			return 0, 0, p.errf("Invalid line span end", "end of range must be >= start")
		}
	}
	return start, end, nil
}

// parseOldNew consumes the OLD:/NEW: headers following a REPLACE or
// INSERT directive. allowOld controls whether OLD: is accepted (INSERT
// has no prior content to compare against).
func (p *parser) parseOldNew(op *Op, allowOld bool) error {
	p.skipBlank()
	if allowOld && p.peekIs("OLD:") {
		p.pos++
		block, err := p.readBlock()
		if err != nil {
			return err
		}
		op.Old = block
		op.HasOld = true
		p.skipBlank()
	}
	if !p.peekIs("NEW:") {
		return p.errf("Missing NEW: block", "every REPLACE/INSERT operation requires a NEW: block")
	}
	p.pos++
	block, err := p.readBlock()
	if err != nil {
		return err
	}
	op.New = block
	op.HasNew = true
	return nil
}

// attachPendingGuard transfers a GUARD-CID seen before this operation's
// directive line onto the operation, then clears it so it isn't reused
// by a later operation in the same file block.
func (p *parser) attachPendingGuard(op *Op) {
	if p.pendingHasGuard {
		op.GuardCID = p.pendingGuard
		op.HasGuard = true
		p.pendingHasGuard = false
		p.pendingGuard = ""
	}
}

func (p *parser) peekIs(prefix string) bool {
	if p.pos >= len(p.lines) {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(p.lines[p.pos]), prefix)
}

func (p *parser) skipBlank() {
	if p.pos < len(p.lines) && strings.TrimSpace(p.lines[p.pos]) == "" {
		p.pos++
	}
}

var directiveStarts = []string{"OLD:", "NEW:", "FILE:", "REPLACE lines", "INSERT at", "DELETE lines", "GUARD-CID:"}

func isDirectiveStart(line string) bool {
	t := strings.TrimSpace(line)
	for _, d := range directiveStarts {
		if strings.HasPrefix(t, d) {
			return true
		}
	}
	return false
}

// readBlock reads a fenced or unfenced content block starting at the
// current position (immediately after an OLD:/NEW: header).
func (p *parser) readBlock() (string, error) {
	// Optionally consume one blank line before the block body.
	if p.pos < len(p.lines) && strings.TrimSpace(p.lines[p.pos]) == "" {
		p.pos++
	}

	if p.pos < len(p.lines) {
		trimmed := strings.TrimSpace(p.lines[p.pos])
		fenceLen := countLeadingBackticks(trimmed)
		if fenceLen >= 3 {
			p.pos++
			var body []string
			closed := false
			for p.pos < len(p.lines) {
				t := strings.TrimSpace(p.lines[p.pos])
				if countLeadingBackticks(t) == fenceLen && strings.Count(t, "`") == fenceLen {
					closed = true
					p.pos++
					break
				}
				body = append(body, p.lines[p.pos])
				p.pos++
			}
			if !closed {
				return "", p.errf("Unterminated fenced block", "closing fence must use the same backtick count as the opening fence")
			}
			return strings.Join(body, "\n"), nil
		}
	}

	var body []string
	for p.pos < len(p.lines) {
		if isDirectiveStart(p.lines[p.pos]) {
			break
		}
		body = append(body, p.lines[p.pos])
		p.pos++
	}
	// Trim trailing blank lines used as block separators.
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	return strings.Join(body, "\n"), nil
}

func countLeadingBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

func (p *parser) errf(title, detail string) error {
	line := p.pos + 1
	return pairerrors.NewInvalidInput(title, detail, "fix the edit spec and retry", nil).WithLineSpan("<spec>", line, line)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
