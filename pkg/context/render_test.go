// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderItem_Fenced(t *testing.T) {
	it := Item{Piece: Piece{Path: "pkg/a.go", StartLine: 3, EndLine: 5, Text: "func Foo() {}"}}
	out := RenderItem(it, true)
	if !strings.Contains(out, "### pkg/a.go:3-5") {
		t.Fatalf("missing header: %s", out)
	}
	if !strings.Contains(out, "```go") {
		t.Fatalf("missing language fence: %s", out)
	}
}

func TestRenderItem_Unfenced(t *testing.T) {
	it := Item{Piece: Piece{Path: "a.txt", StartLine: 1, EndLine: 1, Text: "hello"}}
	out := RenderItem(it, false)
	if strings.Contains(out, "```") {
		t.Fatalf("unexpected fence in unfenced render: %s", out)
	}
}

func TestNewSuccessEnvelope_RoundTripsJSON(t *testing.T) {
	items := []Item{{Piece: Piece{Path: "a.go", StartLine: 1, EndLine: 2, Text: "x", Tag: TagCode}, Tokens: 5}}
	env := NewSuccessEnvelope(items, nil, false, false)
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.OK || len(got.Items) != 1 || got.Items[0].Path != "a.go" {
		t.Fatalf("unexpected round-trip: %+v", got)
	}
}

func TestNewErrorEnvelope_Shape(t *testing.T) {
	env := NewErrorEnvelope("InvalidInput", "bad query", "")
	if env.OK {
		t.Fatalf("expected ok=false")
	}
	if env.Error == nil || env.Error.Kind != "InvalidInput" {
		t.Fatalf("unexpected error envelope: %+v", env.Error)
	}
}
