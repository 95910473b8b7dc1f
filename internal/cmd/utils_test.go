// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestFileStructure creates a test file structure under the given baseDir.
func setupTestFileStructure(tb testing.TB, baseDir string) {
	tb.Helper()

	if err := os.MkdirAll(filepath.Join(baseDir, "valid", "subdir"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Symlink(filepath.Join(baseDir, "valid", "subdir"), filepath.Join(baseDir, "valid", "link")); err != nil {
		require.NoError(tb, err)
	}

	if err := os.WriteFile(filepath.Join(baseDir, "valid", "invalid.yaml"), []byte("\tinvalid yaml file"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.WriteFile(filepath.Join(baseDir, "valid", "subdir", "file.txt"), []byte("txt file"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Symlink(filepath.Join(baseDir, "valid", "invalid.yaml"), filepath.Join(baseDir, "symlink.file")); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Mkdir(filepath.Join(baseDir, "secret"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}
	if err := os.Chmod(filepath.Join(baseDir, "secret"), 0o0000); err != nil {
		require.NoError(tb, err)
	}
}

// setupTestEnv points the store to a temporary database and disables the event bus.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	storePath := filepath.Join(t.TempDir(), "unisync.db")
	t.Setenv("UNISYNC_STORE_PATH", storePath)
	t.Setenv("UNISYNC_WORKSPACE_PATH", "")
	t.Setenv("UNISYNC_MAPPING_PATHS", "")
	t.Setenv("UNISYNC_LOCK_REDIS_URL", "")
	t.Setenv("EVENTS_BACKEND", "none")
	return storePath
}
