// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"strconv"
	"strings"
)

// cutLast splits s on the last occurrence of sep, so Windows-style
// "C:\foo\bar.go:42" style paths with embedded colons still split on the
// line-number separator correctly.
func cutLast(s string, sep byte) (before, after string, ok bool) {
	i := strings.LastIndexByte(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

func atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
