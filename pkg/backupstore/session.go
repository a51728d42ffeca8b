// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backupstore implements the crash-safe, content-addressed,
// append-indexed session store that the edit engine depends on for
// atomicity and rollback.
package backupstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

const (
	rootDirName  = ".backup-root"
	indexLogName = "index.jsonl"
	doneMarker   = "DONE"
	manifestName = "manifest.json"
)

// Store roots backup sessions under <repoRoot>/.backup-root.
type Store struct {
	RepoRoot string
	mu       sync.Mutex // guards index append for this process; cross-process via flock
}

// New creates a Store rooted at repoRoot. It does not create any
// directories until the first session begins.
func New(repoRoot string) *Store {
	return &Store{RepoRoot: repoRoot}
}

// Root returns the backup root directory.
func (s *Store) Root() string {
	return filepath.Join(s.RepoRoot, rootDirName)
}

// IndexPath returns the append-only session index file path.
func (s *Store) IndexPath() string {
	return filepath.Join(s.Root(), indexLogName)
}

// Session is an in-progress or completed backup session.
type Session struct {
	ID       string
	Dir      string
	Manifest Manifest
}

// Begin generates a unique session id (UTC millisecond timestamp, bumped
// past the previous id minted by this process so ids are strictly
// monotonic even within the same millisecond, plus a short random
// suffix), creates the session directory, and returns an empty Session.
func (s *Store) Begin(engineName string) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, pairerrors.NewInternalError("Cannot generate session id", "", "", err)
	}
	dir := filepath.Join(s.Root(), id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, pairerrors.NewInternalError("Cannot create backup session directory", dir, "", err)
	}

	sess := &Session{
		ID:  id,
		Dir: dir,
		Manifest: Manifest{
			Schema:    "backup-session-v1",
			ID:        id,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Engine:    engineName,
			Files:     nil,
			Success:   false,
		},
	}
	return sess, nil
}

// idMu guards lastIDMillis, the millisecond part of the last id minted by
// this process.
var (
	idMu         sync.Mutex
	lastIDMillis int64
)

// newSessionID returns "<UTC millis>-<6 hex chars>" so ids sort correctly
// both lexically and when parsed, keeping them monotonic by real time.
func newSessionID() (string, error) {
	var buf [3]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	idMu.Lock()
	millis := time.Now().UTC().UnixMilli()
	if millis <= lastIDMillis {
		millis = lastIDMillis + 1
	}
	lastIDMillis = millis
	idMu.Unlock()
	return fmt.Sprintf("%013d-%s", millis, hex.EncodeToString(buf[:])), nil
}

// parseSessionTime extracts the millisecond timestamp a session id was
// minted with, for sorting index entries by parsed time rather than
// string comparison (ids sort correctly as strings too, but list()
// filtering needs a time.Time for since-duration comparisons).
func parseSessionTime(id string) (time.Time, bool) {
	if len(id) < 14 || id[13] != '-' {
		return time.Time{}, false
	}
	var millis int64
	for i := 0; i < 13; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
		millis = millis*10 + int64(c-'0')
	}
	return time.UnixMilli(millis).UTC(), true
}
