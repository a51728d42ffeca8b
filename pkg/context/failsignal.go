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
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// ParseFailSignal reads a compiler/test-log file in the
// "path:line: level: message" style, tolerating lines that don't match
// the shape (only the recognizable subset contributes diagnostics).
//
// Windows-style drive-letter paths ("C:\foo\bar.go:12: error: ...")
// remain intact because the split happens from the right: the first
// two colon-separated fields found by scanning from the end are line
// and level, and everything before them is the path.
func ParseFailSignal(path string) ([]Diagnostic, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, pairerrors.NewRepoError("Cannot read fail-signal log", path, "provide a readable compiler/test log", err)
	}
	defer f.Close()

	var diags []Diagnostic
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if d, ok := parseDiagnosticLine(scanner.Text()); ok {
			diags = append(diags, d)
		}
	}
	return diags, nil
}

func parseDiagnosticLine(line string) (Diagnostic, bool) {
	// message is everything after the second rsplit boundary; work from
	// the right so "C:\foo.go" drive letters never get mistaken for the
	// line-number separator.
	msgIdx := strings.LastIndex(line, ": ")
	if msgIdx == -1 {
		return Diagnostic{}, false
	}
	head, msg := line[:msgIdx], line[msgIdx+2:]

	levelIdx := strings.LastIndex(head, ": ")
	if levelIdx == -1 {
		return Diagnostic{}, false
	}
	pathLine, level := head[:levelIdx], strings.TrimSpace(head[levelIdx+2:])

	lineIdx := strings.LastIndex(pathLine, ":")
	if lineIdx == -1 {
		return Diagnostic{}, false
	}
	p, lineStr := pathLine[:lineIdx], pathLine[lineIdx+1:]
	n, err := strconv.Atoi(strings.TrimSpace(lineStr))
	if err != nil {
		return Diagnostic{}, false
	}

	return Diagnostic{Path: filepath.ToSlash(filepath.Clean(p)), Line: n, Level: level, Msg: msg}, true
}
