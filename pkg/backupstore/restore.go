// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backupstore

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// RestoreResult describes what Restore did to one file.
type RestoreResult struct {
	RelPath string
	Applied bool
	Reason  string // non-empty when Applied is false (dry run or refusal)
}

// RestorePlan is the result of a restore invocation.
type RestorePlan struct {
	SessionID    string // the id of the session restored from
	NewSessionID string // the id of the session capturing pre-restore state
	Results      []RestoreResult
}

// Restore writes the backed-up content of the selected paths (or all
// files in the session, if paths is empty) back to their original
// locations via atomic rename. It first creates a new session capturing
// the pre-restore state, so a restore is itself reversible.
//
// Restore refuses to touch a file whose current on-disk content diverges
// from what the *next* newer backup session recorded for it (i.e. there
// are uncommitted changes since that snapshot) unless force is set.
func (s *Store) Restore(id string, paths []string, dryRun bool, force bool) (*RestorePlan, error) {
	m, err := s.Show(id, false)
	if err != nil {
		return nil, err
	}

	newerBackups, err := s.newerBackupsOf(id, m)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[filepath.ToSlash(p)] = true
	}

	var preRestoreSess *Session
	if !dryRun {
		preRestoreSess, err = s.Begin("restore")
		if err != nil {
			return nil, err
		}
	}

	plan := &RestorePlan{SessionID: id}
	if preRestoreSess != nil {
		plan.NewSessionID = preRestoreSess.ID
	}

	finalizeSuccess := true
	for _, fr := range m.Files {
		if len(wanted) > 0 && !wanted[fr.RelPath] {
			continue
		}
		res := RestoreResult{RelPath: fr.RelPath}
		absTarget := filepath.Join(s.RepoRoot, filepath.FromSlash(fr.RelPath))

		if !force {
			if conflict, reason := s.hasConflictingChange(fr, newerBackups[fr.RelPath]); conflict {
				res.Applied = false
				res.Reason = reason
				plan.Results = append(plan.Results, res)
				continue
			}
		}

		if dryRun {
			res.Applied = true
			res.Reason = "dry-run"
			plan.Results = append(plan.Results, res)
			continue
		}

		if err := s.Stage(preRestoreSess, absTarget); err != nil {
			// Target may not currently exist; that's fine for a restore of
			// a deleted file, so only hard-fail on unexpected errors.
			if !os.IsNotExist(unwrapPathErr(err)) {
				finalizeSuccess = false
			}
		}

		backedUpPath := filepath.Join(s.sessionFilesDir(id), filepath.FromSlash(fr.RelPath))
		content, rerr := os.ReadFile(backedUpPath) //nolint:gosec
		if rerr != nil {
			res.Applied = false
			res.Reason = rerr.Error()
			finalizeSuccess = false
			plan.Results = append(plan.Results, res)
			continue
		}

		if err := writeFileAtomic(absTarget, content); err != nil {
			res.Applied = false
			res.Reason = err.Error()
			finalizeSuccess = false
			plan.Results = append(plan.Results, res)
			continue
		}

		res.Applied = true
		plan.Results = append(plan.Results, res)
	}

	if preRestoreSess != nil {
		if err := s.Finalize(preRestoreSess, finalizeSuccess); err != nil {
			return plan, err
		}
	}

	return plan, nil
}

// newerBackupsOf finds, for every path in m, the nearest backup record of
// that path from a session strictly newer than id. If a newer session
// recorded the path, its digest is the expected "last known state" the
// current file should match; if nothing newer touched the path, there is
// nothing to conflict with and the restore always proceeds.
func (s *Store) newerBackupsOf(id string, m *Manifest) (map[string]FileRecord, error) {
	baseTime, ok := parseSessionTime(id)
	if !ok {
		return nil, nil
	}
	sessions, err := s.List(Filters{})
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(m.Files))
	for _, fr := range m.Files {
		wanted[fr.RelPath] = true
	}

	result := make(map[string]FileRecord)
	// sessions are newest-first; walk from the end (oldest) forward and keep
	// the first record seen per path, which is the *nearest* newer session.
	for i := len(sessions) - 1; i >= 0; i-- {
		si := sessions[i]
		if !si.Timestamp.After(baseTime) || !si.Success {
			continue
		}
		sm, err := s.Show(si.ID, false)
		if err != nil {
			continue
		}
		for _, fr := range sm.Files {
			if _, seen := result[fr.RelPath]; wanted[fr.RelPath] && !seen {
				result[fr.RelPath] = fr
			}
		}
	}
	return result, nil
}

// hasConflictingChange reports whether the file currently on disk diverges
// from the nearest known newer snapshot, which would mean some change was
// made outside of any tracked session and restoring would silently discard
// it. When no newer snapshot recorded the path, there is nothing to
// conflict with.
func (s *Store) hasConflictingChange(fr FileRecord, newer FileRecord) (bool, string) {
	if newer.RelPath == "" {
		return false, ""
	}
	absPath := filepath.Join(s.RepoRoot, filepath.FromSlash(fr.RelPath))
	content, err := os.ReadFile(absPath) //nolint:gosec
	if err != nil {
		return false, "" // file doesn't exist or unreadable: nothing to conflict with
	}
	digest := blake3.Sum256(content)
	if hex.EncodeToString(digest[:]) == newer.Blake3 {
		return false, ""
	}
	return true, "current file content differs from the last tracked snapshot; pass force to overwrite"
}

func (s *Store) sessionFilesDir(id string) string {
	return s.sessionDir(id)
}

func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return pairerrors.NewInternalError("Cannot create directory for restore", dir, "", err)
	}
	tmp, err := os.CreateTemp(dir, ".restore-*.tmp")
	if err != nil {
		return pairerrors.NewInternalError("Cannot create temp restore file", dir, "", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot write temp restore file", tmpPath, "", err)
	}
	if perm, statErr := os.Stat(path); statErr == nil {
		_ = os.Chmod(tmpPath, perm.Mode())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot close temp restore file", tmpPath, "", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pairerrors.NewInternalError("Cannot rename restored file into place", path, "", err)
	}
	return nil
}

func unwrapPathErr(err error) error {
	if pe, ok := err.(*pairerrors.Error); ok && pe.Cause != nil {
		return pe.Cause
	}
	return err
}
