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
	"os"
	"path/filepath"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
)

// LooksBinary heuristically flags content as binary: a NUL byte in the
// first 8000 bytes, matching the common git/grep heuristic.
func LooksBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) != -1
}

// WriteFileAtomic writes data to path via temp-file-in-same-dir, copies
// the original file's permissions (if it existed) onto the temp file,
// and renames over the original. allowBinary must be true to overwrite
// content LooksBinary flags as binary.
func WriteFileAtomic(path string, data []byte, allowBinary bool) error {
	if LooksBinary(data) && !allowBinary {
		return pairerrors.NewConflictsError(
			"Refusing to write binary content",
			path,
			"pass --allow-binary to permit writing detected binary content",
			nil,
		).WithPath(path)
	}

	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}

	tmp, err := os.CreateTemp(dir, ".editspec-*.tmp")
	if err != nil {
		return pairerrors.NewInternalError("Cannot create temp file", dir, "", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot write temp file", tmpPath, "", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot fsync temp file", tmpPath, "", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot close temp file", tmpPath, "", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return pairerrors.NewInternalError("Cannot set permissions on temp file", tmpPath, "", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pairerrors.NewInternalError("Cannot rename temp file into place", path, "", err)
	}
	return nil
}
