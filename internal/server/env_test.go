// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironmentVariables(t *testing.T) {
	t.Run("load environment variables", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "3000")
		t.Setenv("HTTP_HOST", "127.0.0.1")
		envVars, err := LoadServerConfig()
		require.NoError(t, err)
		assert.Equal(t, 3000, envVars.HTTPPort)
		assert.Equal(t, "127.0.0.1:3000", envVars.address())
		assert.True(t, envVars.DisableStartupMessage)
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "655350")
		_, err := LoadServerConfig()
		require.ErrorIs(t, err, ErrEnvVariablesNotValid)
	})

	t.Run("port is not a number", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "http")
		_, err := LoadServerConfig()
		require.ErrorIs(t, err, ErrEnvVariablesNotValid)
	})
}

func TestLoadValidateEnvironmentVariables(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		config    Config
		expectErr bool
	}{
		"negative port": {
			config:    Config{HTTPHost: "0.0.0.0", HTTPPort: -1},
			expectErr: true,
		},
		"port too big": {
			config:    Config{HTTPHost: "0.0.0.0", HTTPPort: 655350},
			expectErr: true,
		},
		"empty host": {
			config:    Config{HTTPHost: " ", HTTPPort: 3000},
			expectErr: true,
		},
		"valid config": {
			config: Config{HTTPHost: "0.0.0.0", HTTPPort: 3000},
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvironmentVariables(&test.config)
			if test.expectErr {
				require.ErrorIs(t, err, ErrEnvVariablesNotValid)
				return
			}
			require.NoError(t, err)
		})
	}
}
