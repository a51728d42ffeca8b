// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package symbolindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// writeJSONLines writes symbols to path via temp file + atomic rename, so a
// crash mid-write never leaves a partially-written index visible to readers.
func writeJSONLines(path string, symbols []Symbol) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".symbolindex-*.tmp")
	if err != nil {
		return pairerrors.NewInternalError("Cannot create temp index file", dir, "", err)
	}
	tmpPath := tmp.Name()
	removeTmp := true
	defer func() {
		if removeTmp {
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, s := range symbols {
		if err := enc.Encode(s); err != nil {
			_ = tmp.Close()
			return pairerrors.NewInternalError("Cannot encode symbol", s.Path, "", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return pairerrors.NewInternalError("Cannot flush index", tmpPath, "", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pairerrors.NewInternalError("Cannot fsync index", tmpPath, "", err)
	}
	if err := tmp.Close(); err != nil {
		return pairerrors.NewInternalError("Cannot close index temp file", tmpPath, "", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pairerrors.NewInternalError("Cannot rename index into place", fmt.Sprintf("%s -> %s", tmpPath, path), "", err)
	}
	removeTmp = false
	syncDir(dir)
	return nil
}

// syncDir fsyncs the parent directory so the rename above is itself
// durable. On platforms where directory fsync isn't supported this is a
// documented no-op (the error is ignored).
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // dir is derived from caller-controlled index path
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
