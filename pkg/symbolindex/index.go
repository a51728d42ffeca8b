// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package symbolindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// Index is a sequence of Symbol records loaded from one JSON-lines file.
type Index struct {
	Path    string
	Symbols []Symbol

	byPath map[string][]int // path -> indices into Symbols
	byName map[string][]int // plain name -> indices into Symbols
}

// Load reads a JSON-lines symbol index file. Each non-blank line must be a
// single Symbol JSON object; a malformed line yields an error pointing at
// its 1-based line number rather than silently dropping the entry.
func Load(path string) (*Index, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled repo state
	if err != nil {
		return nil, pairerrors.NewRepoError(
			"Cannot open symbol index",
			fmt.Sprintf("failed to open %s", path),
			"run the indexer to (re)generate the symbol index",
			err,
		)
	}
	defer f.Close()

	idx := &Index{Path: path}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		var sym Symbol
		if err := json.Unmarshal([]byte(trimmed), &sym); err != nil {
			return nil, pairerrors.NewInvalidInput(
				"Malformed symbol index line",
				fmt.Sprintf("line %d of %s is not a valid Symbol record", lineNo, path),
				"regenerate the symbol index with the extractor collaborator",
				err,
			).WithLineSpan(path, lineNo, lineNo)
		}
		idx.Symbols = append(idx.Symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, pairerrors.NewInternalError(
			"Failed reading symbol index",
			fmt.Sprintf("I/O error scanning %s", path),
			"",
			err,
		)
	}

	idx.buildLookups()
	return idx, nil
}

func (idx *Index) buildLookups() {
	idx.byPath = make(map[string][]int, len(idx.Symbols))
	idx.byName = make(map[string][]int, len(idx.Symbols))
	for i, s := range idx.Symbols {
		idx.byPath[s.Path] = append(idx.byPath[s.Path], i)
		idx.byName[s.Name] = append(idx.byName[s.Name], i)
	}
}

// ByPath returns all symbols defined in a given repo-relative path.
func (idx *Index) ByPath(path string) []Symbol {
	out := make([]Symbol, 0, len(idx.byPath[path]))
	for _, i := range idx.byPath[path] {
		out = append(out, idx.Symbols[i])
	}
	return out
}

// ByExactName returns all symbols whose plain Name equals name.
func (idx *Index) ByExactName(name string) []Symbol {
	out := make([]Symbol, 0, len(idx.byName[name]))
	for _, i := range idx.byName[name] {
		out = append(out, idx.Symbols[i])
	}
	return out
}

// All returns every symbol in the index.
func (idx *Index) All() []Symbol { return idx.Symbols }
