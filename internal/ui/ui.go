// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the terminal presentation helpers shared by the
// pairctl subcommands: header styling, dimmed text, and colorized counts.
// Color is disabled automatically on non-tty stdout or when NO_COLOR/--no-color
// is set.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// Init disables color when stdout isn't a tty, NO_COLOR is set, or the
// caller passes noColor explicitly (--no-color).
func Init(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	_, _ = Bold.Printf("== %s ==\n", title)
}

// SubHeader prints a bold subsection title without the "==" framing.
func SubHeader(title string) {
	_, _ = Bold.Printf("%s\n", title)
}

// Label formats a field label for "%s %s\n" styled rows.
func Label(s string) string {
	return Bold.Sprint(s)
}

// DimText returns s rendered in faint style.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders an integer count in bold.
func CountText(n int) string {
	return Bold.Sprint(fmt.Sprintf("%d", n))
}

// Success prints a green confirmation line to stdout.
func Success(format string, args ...any) {
	_, _ = Green.Fprintf(os.Stdout, format+"\n", args...)
}

// Warningf prints a yellow warning line to stderr.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Fprintf(os.Stderr, format+"\n", args...)
}

// Errorf prints a red error line to stderr.
func Errorf(format string, args ...any) {
	_, _ = Red.Fprintf(os.Stderr, format+"\n", args...)
}
