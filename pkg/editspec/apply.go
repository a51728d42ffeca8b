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

// ApplyOps mutates a copy of fc.Lines according to ops (already
// validated) in the stable order defined by ApplyOrder, and returns the
// resulting line slice. It does not touch fc itself.
func ApplyOps(fc FileContent, ops []Op) []string {
	lines := append([]string(nil), fc.Lines...)
	order := ApplyOrder(ops)

	for _, i := range order {
		op := ops[i]
		switch op.Kind {
		case OpDelete:
			lines = append(lines[:op.Start-1], lines[op.End:]...)
		case OpReplace:
			newLines := splitBlock(op.New)
			tail := append([]string(nil), lines[op.End:]...)
			lines = append(lines[:op.Start-1], newLines...)
			lines = append(lines, tail...)
		case OpInsert:
			at := op.Start
			if at > len(lines) {
				at = len(lines) // INSERT at len+1 appends
			}
			newLines := splitBlock(op.New)
			tail := append([]string(nil), lines[at:]...)
			lines = append(lines[:at], newLines...)
			lines = append(lines, tail...)
		}
	}
	return lines
}

// splitBlock splits a NEW: block into lines. An empty block yields no
// lines (a valid delete-via-replace).
func splitBlock(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Render reconstructs file bytes from lines using fc's original EOL
// style and trailing-newline status.
func Render(fc FileContent, lines []string) []byte {
	body := strings.Join(lines, fc.EOL)
	if fc.TrailingNewline && len(lines) > 0 {
		body += fc.EOL
	}
	return []byte(body)
}
