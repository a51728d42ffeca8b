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
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/brassloom/pairctl/pkg/backupstore"
	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// Conflict describes one unresolved per-file problem surfaced by apply.
type Conflict struct {
	Path   string
	Kind   ValidationErrorKind
	Detail string
}

// Preview is the result of check(spec): what would happen without
// writing anything.
type Preview struct {
	Paths     []string
	Conflicts []Conflict
}

// Report is the result of apply(spec): what was actually written, plus
// the backup session that captured pre-state.
type Report struct {
	Applied        []string
	Conflicts      []Conflict
	BackupSession  string
	BackupDir      string
	UsedThreeWay   bool
	Warning        string
}

// Engine is the common contract every apply strategy implements.
type Engine interface {
	Check(spec *Spec, repoRoot string) (*Preview, error)
	Apply(spec *Spec, repoRoot string) (*Report, error)
}

// Internal applies operations directly in-process.
type Internal struct {
	Store        *backupstore.Store
	AllowBinary  bool
}

// NewInternal builds an Internal engine rooted at repoRoot.
func NewInternal(repoRoot string) *Internal {
	return &Internal{Store: backupstore.New(repoRoot)}
}

func (e *Internal) repoRoot() string { return e.Store.RepoRoot }

// Check validates every file block without writing anything.
func (e *Internal) Check(spec *Spec, repoRoot string) (*Preview, error) {
	preview := &Preview{}
	for _, fb := range spec.Files {
		preview.Paths = append(preview.Paths, fb.Path)
		abs := filepath.Join(repoRoot, filepath.FromSlash(fb.Path))
		data, err := os.ReadFile(abs) //nolint:gosec
		if err != nil {
			return nil, pairerrors.NewRepoError("Cannot read target file", fb.Path, "", err)
		}
		fc := LoadFileContent(data)
		if err := ValidateFileBlock(fb, fc); err != nil {
			if pe, ok := err.(*pairerrors.Error); ok {
				preview.Conflicts = append(preview.Conflicts, Conflict{Path: fb.Path, Kind: ValidationErrorKind(pe.Title), Detail: pe.Detail})
				continue
			}
			return nil, err
		}
	}
	return preview, nil
}

// Apply validates and writes every file block atomically, backing up
// pre-state first. On any per-file failure the backup session is
// finalized as failed and no partial writes are left in place: files
// already written in this call are rolled back by rewriting the
// original content read at the start of the call.
func (e *Internal) Apply(spec *Spec, repoRoot string) (*Report, error) {
	report := &Report{}

	sess, err := e.Store.Begin("internal")
	if err != nil {
		return nil, err
	}

	type pending struct {
		abs string
		fc  FileContent
		out []byte
	}
	var plan []pending

	for _, fb := range spec.Files {
		abs := filepath.Join(repoRoot, filepath.FromSlash(fb.Path))
		data, err := os.ReadFile(abs) //nolint:gosec
		if err != nil {
			_ = e.Store.Finalize(sess, false)
			return nil, pairerrors.NewRepoError("Cannot read target file", fb.Path, "", err)
		}
		fc := LoadFileContent(data)

		if err := ValidateFileBlock(fb, fc); err != nil {
			if pe, ok := err.(*pairerrors.Error); ok {
				report.Conflicts = append(report.Conflicts, Conflict{Path: fb.Path, Kind: ValidationErrorKind(pe.Title), Detail: pe.Detail})
				_ = e.Store.Finalize(sess, false)
				return report, err
			}
			_ = e.Store.Finalize(sess, false)
			return nil, err
		}

		newLines := ApplyOps(fc, fb.Ops)
		out := Render(fc, newLines)

		if LooksBinary(out) && !e.AllowBinary {
			_ = e.Store.Finalize(sess, false)
			return nil, pairerrors.NewConflictsError("Refusing to write binary content", fb.Path, "pass --allow-binary to permit this", nil).WithPath(fb.Path)
		}

		if err := e.Store.Stage(sess, abs); err != nil {
			_ = e.Store.Finalize(sess, false)
			return nil, err
		}
		plan = append(plan, pending{abs: abs, fc: fc, out: out})
	}

	for _, pl := range plan {
		if err := WriteFileAtomic(pl.abs, pl.out, e.AllowBinary); err != nil {
			// Best-effort rollback of whatever already landed this call.
			for _, done := range plan {
				if done.abs == pl.abs {
					break
				}
				_ = WriteFileAtomic(done.abs, Render(done.fc, done.fc.Lines), true)
			}
			_ = e.Store.Finalize(sess, false)
			return nil, err
		}
		report.Applied = append(report.Applied, pl.abs)
	}

	if err := e.Store.Finalize(sess, true); err != nil {
		return report, err
	}
	report.BackupSession = sess.ID
	report.BackupDir = sess.Dir
	return report, nil
}

// External3Way renders a unified diff and applies it out-of-process via
// a three-way merge helper (e.g. `git apply --3way` or `patch`).
type External3Way struct {
	Store       *backupstore.Store
	HelperPath  string // e.g. "git"; invoked as `HelperPath apply --3way -`
	Timeout     time.Duration
}

// NewExternal3Way builds an External3Way engine using git as the merge
// helper, assumed to be on PATH.
func NewExternal3Way(repoRoot string) *External3Way {
	return &External3Way{Store: backupstore.New(repoRoot), HelperPath: "git", Timeout: 60 * time.Second}
}

func (e *External3Way) Check(spec *Spec, repoRoot string) (*Preview, error) {
	internal := &Internal{Store: e.Store}
	return internal.Check(spec, repoRoot)
}

// Apply renders a unified diff per file and pipes it to the merge
// helper's three-way apply mode, tolerating drift when enough context
// survives around the edited hunks.
func (e *External3Way) Apply(spec *Spec, repoRoot string) (*Report, error) {
	report := &Report{UsedThreeWay: true}

	sess, err := e.Store.Begin("external3way")
	if err != nil {
		return nil, err
	}

	for _, fb := range spec.Files {
		abs := filepath.Join(repoRoot, filepath.FromSlash(fb.Path))
		if err := e.Store.Stage(sess, abs); err != nil {
			_ = e.Store.Finalize(sess, false)
			return nil, err
		}

		diff, err := RenderUnifiedDiff(fb, repoRoot, 3)
		if err != nil {
			_ = e.Store.Finalize(sess, false)
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
		cmd := exec.CommandContext(ctx, e.HelperPath, "apply", "--3way", "-")
		cmd.Dir = repoRoot
		cmd.Stdin = bytes.NewReader(diff)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		runErr := cmd.Run()
		cancel()

		if runErr != nil {
			report.Conflicts = append(report.Conflicts, Conflict{
				Path:   fb.Path,
				Kind:   GuardMismatch,
				Detail: "external three-way merge reported conflict: " + stderr.String(),
			})
			_ = e.Store.Finalize(sess, false)
			return report, pairerrors.NewConflictsError("External merge reported a conflict", fb.Path, "resolve manually or rerun with Internal engine", runErr)
		}
		report.Applied = append(report.Applied, abs)
	}

	if err := e.Store.Finalize(sess, true); err != nil {
		return report, err
	}
	report.BackupSession = sess.ID
	report.BackupDir = sess.Dir
	return report, nil
}

// Hybrid tries Internal first; on a drift conflict it retries with
// External3Way. If repoRoot is not a git repository, Hybrid degrades to
// Internal and sets Report.Warning.
type Hybrid struct {
	Internal *Internal
	External *External3Way
}

// NewHybrid builds a Hybrid engine over repoRoot.
func NewHybrid(repoRoot string) *Hybrid {
	return &Hybrid{Internal: NewInternal(repoRoot), External: NewExternal3Way(repoRoot)}
}

func (h *Hybrid) Check(spec *Spec, repoRoot string) (*Preview, error) {
	return h.Internal.Check(spec, repoRoot)
}

func (h *Hybrid) Apply(spec *Spec, repoRoot string) (*Report, error) {
	if !isGitRepo(repoRoot) {
		report, err := h.Internal.Apply(spec, repoRoot)
		if report != nil {
			report.Warning = "no repository available; hybrid degraded to internal apply"
		}
		return report, err
	}

	report, err := h.Internal.Apply(spec, repoRoot)
	if err == nil {
		return report, nil
	}
	if pairerrors.KindOf(err) != pairerrors.KindConflicts {
		return report, err
	}
	return h.External.Apply(spec, repoRoot)
}

func isGitRepo(repoRoot string) bool {
	info, err := os.Stat(filepath.Join(repoRoot, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}
