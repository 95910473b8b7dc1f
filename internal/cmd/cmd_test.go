// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/server"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/store/sqlite"
)

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	outBuffer := new(bytes.Buffer)
	errBuffer := new(bytes.Buffer)
	cmd.SetOut(outBuffer)
	cmd.SetErr(errBuffer)
	cmd.SetUsageTemplate("usage string")
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return outBuffer.String(), errBuffer.String(), err
}

func TestCmdsWithoutArguments(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cmd *cobra.Command
	}{
		"sync command prints usage": {
			cmd: SyncCmd(),
		},
		"provision command prints usage": {
			cmd: ProvisionCmd(),
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			out, errOut, err := executeCmd(t, test.cmd)
			require.NoError(t, err)
			assert.Equal(t, "usage string", out)
			assert.Empty(t, errOut)
		})
	}
}

func TestSyncCmd(t *testing.T) {
	storePath := setupTestEnv(t)

	out, errOut, err := executeCmd(t, SyncCmd(),
		"pipe_demo",
		"--"+workspaceFlagName, filepath.Join("testdata", "workspace.yaml"),
		"--"+mappingPathFlagName, filepath.Join("testdata", "mappings"),
	)
	require.NoError(t, err, errOut)

	assert.Contains(t, out, `"id":"tx_1"`)
	assert.Contains(t, out, `"description":"Salary"`)
	assert.Contains(t, out, `"status": "completed"`)
	assert.NotContains(t, out, `"entity":"contact"`)

	s, err := sqlite.Open(t.Context(), storePath)
	require.NoError(t, err)
	defer s.Close()

	connection, err := s.GetConnection(t.Context(), "conn_sandbox")
	require.NoError(t, err)
	assert.Equal(t, "sandbox-1", connection.Settings["access_token"])

	pipeline, err := s.GetPipeline(t.Context(), "pipe_demo")
	require.NoError(t, err)
	assert.NotEmpty(t, pipeline.SourceState)
	require.NotNil(t, pipeline.LastSyncCompletedAt)
}

func TestSyncCmdErrors(t *testing.T) {
	testCases := map[string]struct {
		args                 []string
		expectedError        error
		expectedErrorMessage string
	}{
		"unknown pipeline": {
			args:          []string{"pipe_missing"},
			expectedError: store.ErrNotFound,
		},
		"missing mapping path": {
			args:                 []string{"pipe_demo", "--" + mappingPathFlagName, filepath.Join("testdata", "missing")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("mapping file %q: %s\n", filepath.Join("testdata", "missing"), syscall.ENOENT),
		},
		"missing env file": {
			args:          []string{"pipe_demo", "--" + envFileFlagName, filepath.Join("testdata", "missing.env")},
			expectedError: syscall.ENOENT,
		},
		"missing workspace": {
			args:          []string{"pipe_demo", "--" + workspaceFlagName, filepath.Join("testdata", "missing.yaml")},
			expectedError: syscall.ENOENT,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			setupTestEnv(t)

			out, errOut, err := executeCmd(t, SyncCmd(), test.args...)
			require.ErrorIs(t, err, test.expectedError)
			assert.Empty(t, out)
			if test.expectedErrorMessage != "" {
				assert.Equal(t, test.expectedErrorMessage, errOut)
				return
			}
			assert.NotEmpty(t, errOut)
		})
	}
}

func TestProvisionCmd(t *testing.T) {
	storePath := setupTestEnv(t)

	out, errOut, err := executeCmd(t, ProvisionCmd(),
		"conn_sandbox",
		"--"+workspaceFlagName, filepath.Join("testdata", "provision.yaml"),
		"--"+triggerSyncFlagName,
	)
	require.NoError(t, err, errOut)
	assert.Contains(t, out, `"id":"tx_1"`)
	assert.Contains(t, out, `"status": "completed"`)

	s, err := sqlite.Open(t.Context(), storePath)
	require.NoError(t, err)
	defer s.Close()

	pipelines, err := s.ListPipelinesBySource(t.Context(), "conn_sandbox")
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "conn_stdout", pipelines[0].DestinationID)
}

func TestServeCmdInvalidServerConfig(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("HTTP_PORT", "0")

	_, errOut, err := executeCmd(t, ServeCmd())
	require.ErrorIs(t, err, server.ErrEnvVariablesNotValid)
	assert.Contains(t, errOut, "HTTP_PORT")
}
