// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/config"
	"github.com/mia-platform/unisync/internal/mapper"
)

func TestCollectPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	setupTestFileStructure(t, tmpDir)
	testCases := map[string]struct {
		paths         []string
		expectedFiles []string
		expectedError error
	}{
		"single file": {
			paths: []string{
				filepath.Join(tmpDir, "valid", "subdir", "file.txt"),
			},
			expectedFiles: []string{
				filepath.Join(tmpDir, "valid", "subdir", "file.txt"),
			},
		},
		"directory with files and subdirectories": {
			paths: []string{
				filepath.Join(tmpDir, "valid"),
			},
			expectedFiles: []string{
				filepath.Join(tmpDir, "valid", "invalid.yaml"),
			},
		},
		"file and directory": {
			paths: []string{
				filepath.Join(tmpDir, "valid", "subdir", "file.txt"),
				filepath.Join(tmpDir, "valid"),
			},
			expectedFiles: []string{
				filepath.Join(tmpDir, "valid", "subdir", "file.txt"),
				filepath.Join(tmpDir, "valid", "invalid.yaml"),
			},
		},
		"non existent path": {
			paths: []string{
				filepath.Join(tmpDir, "nonexistent"),
			},
			expectedError: os.ErrNotExist,
		},
		"permission denied path": {
			paths: []string{
				filepath.Join(tmpDir, "secret"),
			},
			expectedError: os.ErrPermission,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			files, err := collectPaths(test.paths)
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
				assert.Empty(t, files)
				return
			}

			assert.NoError(t, err)
			assert.ElementsMatch(t, test.expectedFiles, files)
		})
	}
}

func TestLoadMappers(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		paths         []string
		expectedKeys  []string
		expectedError error
	}{
		"valid mapping config": {
			paths:        []string{filepath.Join("testdata", "mappings", "transaction.yaml")},
			expectedKeys: []string{"transaction"},
		},
		"no mapping files": {
			expectedKeys: []string{},
		},
		"error reading config": {
			paths:         []string{filepath.Join("testdata", "workspace.yaml")},
			expectedError: config.ErrParsing,
		},
		"error in mapping definition": {
			paths:         []string{filepath.Join("testdata", "invalid", "transaction.yaml")},
			expectedError: mapper.ErrInvalidDefinition,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			mappers, err := loadMappers(test.paths)
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
				return
			}

			require.NoError(t, err)
			keys := make([]string, 0, len(mappers))
			for key, m := range mappers {
				require.NotNil(t, m)
				keys = append(keys, key)
			}
			assert.ElementsMatch(t, test.expectedKeys, keys)
		})
	}
}
