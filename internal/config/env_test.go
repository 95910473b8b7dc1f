// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	testCases := map[string]struct {
		env           map[string]string
		expected      Env
		expectedError error
	}{
		"defaults": {
			expected: Env{StorePath: "unisync.db", DefaultPipelines: true, LockTTL: time.Minute},
		},
		"full configuration": {
			env: map[string]string{
				"UNISYNC_STORE_PATH":        "/data/unisync.db",
				"UNISYNC_WORKSPACE_PATH":    "/etc/unisync/workspace.yaml",
				"UNISYNC_MAPPING_PATHS":     "/etc/unisync/mappings,/etc/unisync/extra.yaml",
				"UNISYNC_LOCK_REDIS_URL":    "redis://localhost:6379/0",
				"UNISYNC_DEFAULT_PIPELINES": "false",
				"UNISYNC_LOCK_TTL":          "5m",
			},
			expected: Env{
				StorePath:     "/data/unisync.db",
				WorkspacePath: "/etc/unisync/workspace.yaml",
				MappingPaths:  []string{"/etc/unisync/mappings", "/etc/unisync/extra.yaml"},
				LockRedisURL:  "redis://localhost:6379/0",
				LockTTL:       5 * time.Minute,
			},
		},
		"invalid redis url": {
			env:           map[string]string{"UNISYNC_LOCK_REDIS_URL": "http://localhost"},
			expectedError: ErrEnvVariablesNotValid,
		},
		"lock ttl too short": {
			env:           map[string]string{"UNISYNC_LOCK_TTL": "10ms"},
			expectedError: ErrEnvVariablesNotValid,
		},
		"invalid boolean": {
			env:           map[string]string{"UNISYNC_DEFAULT_PIPELINES": "maybe"},
			expectedError: ErrEnvVariablesNotValid,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			for key, value := range test.env {
				t.Setenv(key, value)
			}

			loaded, err := LoadEnv()
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, loaded)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("UNISYNC_TEST_ENV_FILE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("UNISYNC_TEST_ENV_FILE") })

	require.NoError(t, LoadEnvFiles())
	require.NoError(t, LoadEnvFiles(path))
	assert.Equal(t, "from-file", os.Getenv("UNISYNC_TEST_ENV_FILE"))

	require.Error(t, LoadEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
}
