// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backupstore

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// CleanupPolicy controls Cleanup. Exactly one of OlderThan/KeepLatest
// should be set; if both are zero, Cleanup is a no-op beyond removing
// abandoned incomplete sessions.
type CleanupPolicy struct {
	OlderThan  time.Duration
	KeepLatest int
}

// CleanupResult reports what Cleanup removed.
type CleanupResult struct {
	RemovedSessions []string
	DedupedFiles    int
	FreedBytes      int64
}

type sessionDirInfo struct {
	id      string
	modTime time.Time
	hasDone bool
}

// Cleanup removes sessions matching policy, always first removing
// incomplete (no-DONE) sessions older than 60 seconds that aren't
// actively being written. It then deduplicates identical backup files
// (by BLAKE3 digest) across the sessions that remain, replacing
// duplicate content with a hard link where the filesystem allows it.
func (s *Store) Cleanup(policy CleanupPolicy) (*CleanupResult, error) {
	result := &CleanupResult{}

	entries, err := os.ReadDir(s.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, pairerrors.NewInternalError("Cannot list backup root", s.Root(), "", err)
	}

	var sessions []sessionDirInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, sessionDirInfo{
			id:      e.Name(),
			modTime: info.ModTime(),
			hasDone: s.hasDone(s.sessionDir(e.Name())),
		})
	}

	// Always reap abandoned incomplete sessions.
	for _, si := range sessions {
		if si.hasDone {
			continue
		}
		if time.Since(si.modTime) <= staleLockAge {
			continue
		}
		dir := s.sessionDir(si.id)
		if err := os.RemoveAll(dir); err == nil {
			result.RemovedSessions = append(result.RemovedSessions, si.id)
		}
	}

	// Re-read surviving complete sessions, newest first.
	var complete []sessionDirInfo
	for _, si := range sessions {
		if si.hasDone {
			complete = append(complete, si)
		}
	}
	sort.Slice(complete, func(i, j int) bool {
		ti, _ := parseSessionTime(complete[i].id)
		tj, _ := parseSessionTime(complete[j].id)
		return ti.After(tj)
	})

	var toRemove []sessionDirInfo
	var toKeep []sessionDirInfo
	now := time.Now().UTC()
	for i, si := range complete {
		remove := false
		if policy.KeepLatest > 0 && i >= policy.KeepLatest {
			remove = true
		}
		if policy.OlderThan > 0 {
			ts, ok := parseSessionTime(si.id)
			if ok && now.Sub(ts) > policy.OlderThan {
				remove = true
			}
		}
		if remove {
			toRemove = append(toRemove, si)
		} else {
			toKeep = append(toKeep, si)
		}
	}

	for _, si := range toRemove {
		dir := s.sessionDir(si.id)
		size, _ := dirSize(dir)
		if err := os.RemoveAll(dir); err == nil {
			result.RemovedSessions = append(result.RemovedSessions, si.id)
			result.FreedBytes += size
		}
	}

	deduped, err := s.dedupeRetained(toKeep)
	if err == nil {
		result.DedupedFiles = deduped
	}

	return result, nil
}

// dedupeRetained hard-links identical (same BLAKE3) backup files across
// retained sessions to the first occurrence, saving disk without losing
// any session's ability to restore.
func (s *Store) dedupeRetained(sessions []sessionDirInfo) (int, error) {
	seen := make(map[string]string) // blake3 -> absolute path of first copy
	deduped := 0
	for _, si := range sessions {
		m, err := s.Show(si.id, false)
		if err != nil {
			continue
		}
		for _, fr := range m.Files {
			abs := filepath.Join(s.sessionDir(si.id), filepath.FromSlash(fr.RelPath))
			if first, ok := seen[fr.Blake3]; ok {
				if first == abs {
					continue
				}
				if relinkFile(first, abs) == nil {
					deduped++
				}
			} else {
				seen[fr.Blake3] = abs
			}
		}
	}
	return deduped, nil
}

// relinkFile replaces dst with a hard link to src when possible. If hard
// linking fails (e.g. cross-device), it leaves dst untouched.
func relinkFile(src, dst string) error {
	tmp := dst + ".relink-tmp"
	if err := os.Link(src, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		// Payload size excludes manifest.json and DONE markers.
		base := filepath.Base(path)
		if base == manifestName || base == doneMarker {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}
