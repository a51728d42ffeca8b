// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package symbolindex loads and maintains the on-disk symbol index: a
// JSON-lines file of Symbol records produced by an external symbol
// extractor (tree-sitter or similar — out of scope here, see collab.go).
package symbolindex

// Kind enumerates the recognized symbol kinds.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindImpl      Kind = "impl"
	KindOther     Kind = "other"
)

// Visibility enumerates the recognized symbol visibilities.
type Visibility string

const (
	VisPublic  Visibility = "public"
	VisCrate   Visibility = "crate"
	VisPrivate Visibility = "private"
	VisUnknown Visibility = "unknown"
)

// Symbol is a single definition record in the on-disk index.
type Symbol struct {
	Path          string     `json:"path"`            // repo-relative file path
	Language      string     `json:"language"`        // language tag
	Kind          Kind       `json:"kind"`             // function/method/class/struct/enum/trait/impl/other
	Name          string     `json:"name"`             // plain name
	QualifiedName string     `json:"qualified_name"`   // fully-qualified name
	ByteStart     int64      `json:"byte_start"`
	ByteEnd       int64      `json:"byte_end"`
	StartLine     int        `json:"start_line"` // 1-based inclusive
	EndLine       int        `json:"end_line"`   // 1-based inclusive
	Visibility    Visibility `json:"visibility"`
	Doc           string     `json:"doc,omitempty"`
}

// ID returns a stable identifier for the symbol, used as Piece origin and
// in callgraph BFS visited-sets. It does not need to be cryptographic —
// just unique per (path, name, start line) within one index generation.
func (s Symbol) ID() string {
	return s.Path + "#" + s.QualifiedName + "@" + itoa(s.StartLine)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
