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
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors defines the typed error kinds shared by the context,
// edit and backup engines, and maps them to the CLI's exit codes.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind is a component-local error classification mapped to an exit code
// by the outer CLI layer.
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput" // exit 3
	KindRepo         Kind = "Repo"         // exit 4
	KindConflicts    Kind = "Conflicts"    // exit 2
	KindInternal     Kind = "Internal"     // exit 5
)

// ExitCode returns the process exit code for a Kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConflicts:
		return 2
	case KindInvalidInput:
		return 3
	case KindRepo:
		return 4
	default:
		return 5
	}
}

// Error is the structured error type returned across package boundaries.
// Title is a short human summary, Detail explains what went wrong, and
// Remediation is the actionable next step shown to the user.
type Error struct {
	Kind         Kind
	Title        string
	Detail       string
	Remediation  string
	Path         string
	Cause        error
	LineStart    int
	LineEnd      int
	HasLineSpan  bool
}

func (e *Error) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		if e.HasLineSpan {
			if e.LineStart == e.LineEnd {
				msg = fmt.Sprintf("%s:%d: %s", e.Path, e.LineStart, msg)
			} else {
				msg = fmt.Sprintf("%s:%d-%d: %s", e.Path, e.LineStart, e.LineEnd, msg)
			}
		} else {
			msg = fmt.Sprintf("%s: %s", e.Path, msg)
		}
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, title, detail, remediation string, cause error) *Error {
	return &Error{Kind: kind, Title: title, Detail: detail, Remediation: remediation, Cause: cause}
}

// NewInvalidInput builds a parse/validation error (exit 3).
func NewInvalidInput(title, detail, remediation string, cause error) *Error {
	return newErr(KindInvalidInput, title, detail, remediation, cause)
}

// NewRepoError builds a repository-boundary error (exit 4).
func NewRepoError(title, detail, remediation string, cause error) *Error {
	return newErr(KindRepo, title, detail, remediation, cause)
}

// NewConflictsError builds a drift/conflict error (exit 2).
func NewConflictsError(title, detail, remediation string, cause error) *Error {
	return newErr(KindConflicts, title, detail, remediation, cause)
}

// NewInternalError builds an internal/I-O error (exit 5).
func NewInternalError(title, detail, remediation string, cause error) *Error {
	return newErr(KindInternal, title, detail, remediation, cause)
}

// WithLineSpan attaches a 1-based line span to the error for reporting.
func (e *Error) WithLineSpan(path string, start, end int) *Error {
	e.Path = path
	e.LineStart = start
	e.LineEnd = end
	e.HasLineSpan = true
	return e
}

// WithPath attaches a path without a line span.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// KindOf extracts the Kind from an arbitrary error, defaulting to Internal
// when the error isn't one of ours.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// envelope is the shared JSON failure shape: {schema, ok:false, error:{...}}.
type envelope struct {
	Schema string        `json:"schema"`
	OK     bool          `json:"ok"`
	Error  envelopeError `json:"error"`
}

type envelopeError struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// FatalError reports err to stderr (plain or JSON) and exits the process
// with the exit code corresponding to its Kind.
func FatalError(schema string, err error, jsonMode bool) {
	var e *Error
	if !as(err, &e) {
		e = NewInternalError("Unexpected error", err.Error(), "", err)
	}

	if jsonMode {
		env := envelope{
			Schema: schema,
			OK:     false,
			Error: envelopeError{
				Kind:        string(e.Kind),
				Message:     e.Error(),
				Details:     e.Detail,
				Remediation: e.Remediation,
			},
		}
		data, _ := json.Marshal(env)
		fmt.Fprintln(os.Stdout, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		if e.Remediation != "" {
			fmt.Fprintf(os.Stderr, "  remediation: %s\n", e.Remediation)
		}
	}
	os.Exit(e.Kind.ExitCode())
}
