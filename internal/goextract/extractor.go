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

// Package goextract is the bundled default symbol extractor: a small
// Go-only declaration scanner using go/ast, good enough to dogfood
// pairctl on itself without depending on a general multi-language
// tree-sitter pipeline.
package goextract

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/brassloom/pairctl/pkg/symbolindex"
)

// defaultExclude lists directories that never contain project source.
var defaultExclude = []string{".git", "vendor", "node_modules", ".backup-root"}

// Extractor walks a repository and extracts function, method and type
// declarations from .go files via go/ast; const and var declarations
// are not extracted.
type Extractor struct {
	Exclude []string

	// Progress, when set, is called once per .go file visited so a
	// caller can drive a progress bar during a full rebuild.
	Progress func(path string)
}

// New builds an Extractor with the default exclude set.
func New() *Extractor {
	return &Extractor{Exclude: defaultExclude}
}

// Extract implements symbolindex.Extractor.
func (e *Extractor) Extract(ctx context.Context, repoRoot string) ([]symbolindex.Symbol, error) {
	var symbols []symbolindex.Symbol
	fset := token.NewFileSet()

	walkErr := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && e.excluded(filepath.Base(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		src, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return nil
		}
		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			return nil // tolerate unparsable files, consistent with the engine's degrade-on-recoverable-error policy
		}
		symbols = append(symbols, symbolsInFile(fset, file, filepath.ToSlash(rel))...)
		if e.Progress != nil {
			e.Progress(rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return symbols, nil
}

func (e *Extractor) excluded(base string) bool {
	for _, p := range e.Exclude {
		if base == p {
			return true
		}
	}
	return false
}

func symbolsInFile(fset *token.FileSet, file *ast.File, relPath string) []symbolindex.Symbol {
	var out []symbolindex.Symbol
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			out = append(out, funcSymbol(fset, d, relPath))
		case *ast.GenDecl:
			out = append(out, genDeclSymbols(fset, d, relPath)...)
		}
	}
	return out
}

func funcSymbol(fset *token.FileSet, d *ast.FuncDecl, relPath string) symbolindex.Symbol {
	kind := symbolindex.KindFunction
	qualified := d.Name.Name
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = symbolindex.KindMethod
		qualified = receiverTypeName(d.Recv.List[0].Type) + "." + d.Name.Name
	}
	start := fset.Position(d.Pos())
	end := fset.Position(d.End())
	return symbolindex.Symbol{
		Path:          relPath,
		Language:      "go",
		Kind:          kind,
		Name:          d.Name.Name,
		QualifiedName: qualified,
		ByteStart:     int64(d.Pos()),
		ByteEnd:       int64(d.End()),
		StartLine:     start.Line,
		EndLine:       end.Line,
		Visibility:    visibilityOf(d.Name.Name),
		Doc:           docText(d.Doc),
	}
}

func genDeclSymbols(fset *token.FileSet, d *ast.GenDecl, relPath string) []symbolindex.Symbol {
	var out []symbolindex.Symbol
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		kind := symbolindex.KindStruct
		switch ts.Type.(type) {
		case *ast.InterfaceType:
			kind = symbolindex.KindTrait
		case *ast.StructType:
			kind = symbolindex.KindStruct
		default:
			kind = symbolindex.KindOther
		}
		start := fset.Position(ts.Pos())
		end := fset.Position(ts.End())
		doc := docText(ts.Doc)
		if doc == "" {
			doc = docText(d.Doc)
		}
		out = append(out, symbolindex.Symbol{
			Path:          relPath,
			Language:      "go",
			Kind:          kind,
			Name:          ts.Name.Name,
			QualifiedName: ts.Name.Name,
			ByteStart:     int64(ts.Pos()),
			ByteEnd:       int64(ts.End()),
			StartLine:     start.Line,
			EndLine:       end.Line,
			Visibility:    visibilityOf(ts.Name.Name),
			Doc:           doc,
		})
	}
	return out
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return "?"
	}
}

func visibilityOf(name string) symbolindex.Visibility {
	if name == "" {
		return symbolindex.VisUnknown
	}
	r := []rune(name)[0]
	if unicode.IsUpper(r) {
		return symbolindex.VisPublic
	}
	return symbolindex.VisPrivate
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}
