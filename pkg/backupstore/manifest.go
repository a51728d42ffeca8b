// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backupstore

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"lukechampine.com/blake3"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// staleLockAge is the age after which an index lock file is considered
// abandoned and may be reclaimed.
const staleLockAge = 60 * time.Second

// EOLStyle is the detected line-ending convention of a file.
type EOLStyle string

const (
	EOLUnknown EOLStyle = "unknown"
	EOLLF      EOLStyle = "lf"
	EOLCRLF    EOLStyle = "crlf"
)

// DetectEOL inspects content for the dominant line ending. Mixed content
// is classified by its first line break.
func DetectEOL(content []byte) EOLStyle {
	idx := bytes.IndexByte(content, '\n')
	if idx == -1 {
		return EOLUnknown
	}
	if idx > 0 && content[idx-1] == '\r' {
		return EOLCRLF
	}
	return EOLLF
}

// FileRecord describes one file captured by a backup session.
type FileRecord struct {
	RelPath string   `json:"rel_path"`
	Size    int64    `json:"size"`
	Blake3  string   `json:"blake3"`
	EOL     EOLStyle `json:"eol"`
}

// Manifest is the per-session JSON manifest.
type Manifest struct {
	Schema    string       `json:"schema"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Engine    string       `json:"engine"`
	Commit    string       `json:"commit,omitempty"`
	Files     []FileRecord `json:"files"`
	Success   bool         `json:"success"`
}

// indexEntry is one line of the append-only session index.
type indexEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Engine    string `json:"engine"`
	Success   bool   `json:"success"`
}

// Stage validates absPath is inside repoRoot (rejecting traversal and
// symlinks that escape), copies its content into the session directory at
// the same repo-relative path, and records its size/digest/EOL style in
// the in-memory manifest. It does not touch the original file.
func (s *Store) Stage(sess *Session, absPath string) error {
	relPath, err := s.relUnderRoot(absPath)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return pairerrors.NewRepoError("Cannot stat file to back up", absPath, "", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return pairerrors.NewRepoError("Symlink target cannot be resolved", absPath, "refusing to back up a dangling symlink", err)
		}
		if !s.isUnderRoot(target) {
			return pairerrors.NewRepoError(
				"Refusing to back up symlink escaping repository",
				absPath,
				"the target resolves outside repo_root",
				nil,
			)
		}
	}

	content, err := os.ReadFile(absPath) //nolint:gosec // absPath validated above
	if err != nil {
		return pairerrors.NewRepoError("Cannot read file to back up", absPath, "", err)
	}

	digest := blake3.Sum256(content)

	destPath := filepath.Join(sess.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return pairerrors.NewInternalError("Cannot create backup mirror directory", filepath.Dir(destPath), "", err)
	}
	if err := os.WriteFile(destPath, content, 0o640); err != nil {
		return pairerrors.NewInternalError("Cannot write backup copy", destPath, "", err)
	}

	sess.Manifest.Files = append(sess.Manifest.Files, FileRecord{
		RelPath: relPath,
		Size:    int64(len(content)),
		Blake3:  hex.EncodeToString(digest[:]),
		EOL:     DetectEOL(content),
	})
	return nil
}

// relUnderRoot validates absPath is inside the repo root and returns the
// repo-relative path, rejecting `..` traversal.
func (s *Store) relUnderRoot(absPath string) (string, error) {
	if !s.isUnderRoot(absPath) {
		return "", pairerrors.NewRepoError(
			"Path escapes repository root",
			absPath,
			"only files under repo_root may be backed up",
			nil,
		)
	}
	rel, err := filepath.Rel(s.RepoRoot, absPath)
	if err != nil {
		return "", pairerrors.NewInternalError("Cannot compute relative path", absPath, "", err)
	}
	return filepath.ToSlash(rel), nil
}

func (s *Store) isUnderRoot(absPath string) bool {
	root := filepath.Clean(s.RepoRoot)
	target := filepath.Clean(absPath)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// Finalize writes the manifest atomically (temp+rename), appends one line
// to the index under an exclusive lock held only for the duration of the
// append, and — on success — writes the DONE marker last. On failure the
// session is left without DONE so readers treat it as invalid.
func (s *Store) Finalize(sess *Session, success bool) error {
	sess.Manifest.Success = success

	data, err := json.MarshalIndent(sess.Manifest, "", "  ")
	if err != nil {
		return pairerrors.NewInternalError("Cannot marshal manifest", sess.ID, "", err)
	}

	manifestPath := filepath.Join(sess.Dir, manifestName)
	if err := writeAtomic(manifestPath, data); err != nil {
		return err
	}

	if err := s.appendIndex(indexEntry{
		ID:        sess.ID,
		Timestamp: sess.Manifest.Timestamp,
		Engine:    sess.Manifest.Engine,
		Success:   success,
	}); err != nil {
		return err
	}

	if !success {
		return nil // no DONE marker: readers skip this session
	}

	donePath := filepath.Join(sess.Dir, doneMarker)
	if err := os.WriteFile(donePath, nil, 0o640); err != nil {
		return pairerrors.NewInternalError("Cannot write DONE marker", donePath, "", err)
	}
	return nil
}

// appendIndex appends one line to <repo>/.backup-root/index.jsonl under a
// cross-process advisory lock held only for the duration of the append.
func (s *Store) appendIndex(e indexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Root(), 0o750); err != nil {
		return pairerrors.NewInternalError("Cannot create backup root", s.Root(), "", err)
	}

	lockPath := s.IndexPath() + ".lock"
	fl := flock.New(lockPath)
	if err := reclaimStaleLock(lockPath); err != nil {
		// Non-fatal: fall through and try to lock anyway.
		_ = err
	}
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return pairerrors.NewInternalError("Cannot acquire backup index lock", lockPath, "", err)
	}
	defer fl.Unlock() //nolint:errcheck

	f, err := os.OpenFile(s.IndexPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec
	if err != nil {
		return pairerrors.NewInternalError("Cannot open backup index", s.IndexPath(), "", err)
	}
	defer f.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return pairerrors.NewInternalError("Cannot marshal index entry", e.ID, "", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return pairerrors.NewInternalError("Cannot append to backup index", s.IndexPath(), "", err)
	}
	return f.Sync()
}

// reclaimStaleLock removes a lock file older than 60 seconds, logging the
// reclaim. flock itself would otherwise leave a genuinely abandoned lock
// (e.g. after a killed process) stuck forever on some platforms.
func reclaimStaleLock(lockPath string) error {
	info, err := os.Stat(lockPath)
	if err != nil {
		return nil // nothing to reclaim
	}
	if time.Since(info.ModTime()) <= staleLockAge {
		return nil
	}
	fmt.Fprintf(os.Stderr, "warning: reclaiming stale backup lock %s (age %s)\n", lockPath, time.Since(info.ModTime()))
	return os.Remove(lockPath)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return pairerrors.NewInternalError("Cannot create temp manifest", dir, "", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot write temp manifest", tmpPath, "", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot fsync temp manifest", tmpPath, "", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot close temp manifest", tmpPath, "", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pairerrors.NewInternalError("Cannot rename manifest into place", path, "", err)
	}
	syncParentDir(dir)
	return nil
}

func syncParentDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync() // no-op error on platforms without directory fsync support
}
