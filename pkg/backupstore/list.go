// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package backupstore

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// SessionInfo is the lightweight per-session summary returned by List,
// built from index entries only — manifests are read lazily for the
// top-N results after filtering/sorting to keep listing fast.
type SessionInfo struct {
	ID        string
	Timestamp time.Time
	Engine    string
	Success   bool
}

// Filters narrows List results.
type Filters struct {
	Since       time.Duration // 0 means no lower bound
	SuccessOnly bool
	EngineName  string // case-insensitive exact match; "" means no filter
	Limit       int    // 0 means unlimited
}

// ParseSince parses durations of the form "Nd", "Nh", "Nm", "Ns".
// Negative values are rejected.
func ParseSince(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) < 2 {
		return 0, pairerrors.NewInvalidInput("Invalid since-duration", s, "use a form like 7d, 12h, 30m, 90s", nil)
	}
	unit := s[len(s)-1]
	numStr := s[:len(s)-1]
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, pairerrors.NewInvalidInput("Invalid since-duration", s, "use a form like 7d, 12h, 30m, 90s", err)
	}
	if n < 0 {
		return 0, pairerrors.NewInvalidInput("Negative since-duration rejected", s, "use a non-negative duration", nil)
	}
	var unitDur time.Duration
	switch unit {
	case 'd':
		unitDur = 24 * time.Hour
	case 'h':
		unitDur = time.Hour
	case 'm':
		unitDur = time.Minute
	case 's':
		unitDur = time.Second
	default:
		return 0, pairerrors.NewInvalidInput("Invalid since-duration unit", s, "use one of d, h, m, s", nil)
	}
	return time.Duration(n * float64(unitDur)), nil
}

// List enumerates sessions from the index, applying filters, and returns
// them newest-first.
func (s *Store) List(f Filters) ([]SessionInfo, error) {
	entries, err := s.readIndexEntries()
	if err != nil {
		return nil, err
	}

	var out []SessionInfo
	now := time.Now().UTC()
	for _, e := range entries {
		ts, ok := parseSessionTime(e.ID)
		if !ok {
			ts, _ = time.Parse(time.RFC3339Nano, e.Timestamp)
		}
		if f.Since > 0 && now.Sub(ts) > f.Since {
			continue
		}
		if f.SuccessOnly && !e.Success {
			continue
		}
		if f.EngineName != "" && !strings.EqualFold(f.EngineName, e.Engine) {
			continue
		}
		out = append(out, SessionInfo{ID: e.ID, Timestamp: ts, Engine: e.Engine, Success: e.Success})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) readIndexEntries() ([]indexEntry, error) {
	f, err := os.Open(s.IndexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pairerrors.NewInternalError("Cannot open backup index", s.IndexPath(), "", err)
	}
	defer f.Close()

	var entries []indexEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e indexEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // tolerate a corrupt trailing line from a crashed append
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, pairerrors.NewInternalError("Failed reading backup index", s.IndexPath(), "", err)
	}
	return entries, nil
}

// Show returns the full manifest for one session. It refuses sessions
// without a DONE marker unless allowIncomplete is set (used internally by
// diagnostic tooling).
func (s *Store) Show(id string, allowIncomplete bool) (*Manifest, error) {
	dir := s.sessionDir(id)
	if !allowIncomplete && !s.hasDone(dir) {
		return nil, pairerrors.NewRepoError("Session is incomplete", id, "session has no DONE marker; it may be mid-write or from a failed apply", nil)
	}
	data, err := os.ReadFile(s.manifestPath(dir)) //nolint:gosec
	if err != nil {
		return nil, pairerrors.NewRepoError("Cannot read session manifest", id, "", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, pairerrors.NewInternalError("Cannot parse session manifest", id, "", err)
	}
	return &m, nil
}

// Latest returns the most recent session that has a DONE marker.
func (s *Store) Latest() (*Manifest, error) {
	return s.resolveAlias(Filters{})
}

// LastSuccessful returns the most recent session with Success == true and
// a DONE marker.
func (s *Store) LastSuccessful() (*Manifest, error) {
	return s.resolveAlias(Filters{SuccessOnly: true})
}

func (s *Store) resolveAlias(f Filters) (*Manifest, error) {
	sessions, err := s.List(f)
	if err != nil {
		return nil, err
	}
	for _, si := range sessions {
		if s.hasDone(s.sessionDir(si.ID)) {
			return s.Show(si.ID, false)
		}
	}
	return nil, pairerrors.NewRepoError("No valid backup session found", "", "run an edit apply to create one", nil)
}

func (s *Store) sessionDir(id string) string {
	return s.Root() + string(os.PathSeparator) + id
}

func (s *Store) manifestPath(sessionDir string) string {
	return sessionDir + string(os.PathSeparator) + manifestName
}

func (s *Store) hasDone(sessionDir string) bool {
	_, err := os.Stat(sessionDir + string(os.PathSeparator) + doneMarker)
	return err == nil
}
