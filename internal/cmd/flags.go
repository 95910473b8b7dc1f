// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mia-platform/unisync/internal/config"
)

const (
	envFileFlagName  = "env-file"
	envFileFlagUsage = "Path to a .env file loaded before reading the configuration. Can be specified multiple times."

	mappingPathFlagName  = "mapping-file"
	mappingPathFlagShort = "f"
	mappingPathFlagUsage = "Path to a file or directory containing custom mapping rules. Can be specified multiple times."

	workspaceFlagName  = "workspace"
	workspaceFlagShort = "w"
	workspaceFlagUsage = "Path to a workspace file applied to the store at startup; overrides UNISYNC_WORKSPACE_PATH."

	fullResyncFlagName  = "full-resync"
	fullResyncFlagUsage = "If set, ignores the persisted states and reads the source from the beginning"

	triggerSyncFlagName  = "sync"
	triggerSyncFlagUsage = "If set, runs every pipeline reading from the connection"
)

// flags collects the CLI options shared by every command.
type flags struct {
	envFiles      []string
	mappingPaths  []string
	workspacePath string
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.envFiles, envFileFlagName, nil, envFileFlagUsage)
	cmd.Flags().StringArrayVarP(
		&f.mappingPaths,
		mappingPathFlagName,
		mappingPathFlagShort,
		nil,
		mappingPathFlagUsage)
	cmd.Flags().StringVarP(&f.workspacePath, workspaceFlagName, workspaceFlagShort, "", workspaceFlagUsage)
}

// toOptions builds an options instance from the parsed flags, the environment and the
// CLI arguments. The env files are loaded before the environment is read.
func (f *flags) toOptions(_ *cobra.Command, args []string) (*options, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}

	if err := config.LoadEnvFiles(f.envFiles...); err != nil {
		return nil, err
	}

	envVars, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if f.workspacePath != "" {
		envVars.WorkspacePath = f.workspacePath
	}

	mappingPaths, err := collectPaths(append(envVars.MappingPaths, f.mappingPaths...))
	if err != nil {
		return nil, err
	}

	return &options{
		target:       target,
		env:          envVars,
		mappingPaths: mappingPaths,
	}, nil
}

// syncFlags adds the flags of the sync command.
type syncFlags struct {
	flags
	fullResync bool
}

func (f *syncFlags) addFlags(cmd *cobra.Command) {
	f.flags.addFlags(cmd)
	cmd.Flags().BoolVar(&f.fullResync, fullResyncFlagName, false, fullResyncFlagUsage)
}

// provisionFlags adds the flags of the provision command.
type provisionFlags struct {
	flags
	triggerSync bool
}

func (f *provisionFlags) addFlags(cmd *cobra.Command) {
	f.flags.addFlags(cmd)
	cmd.Flags().BoolVar(&f.triggerSync, triggerSyncFlagName, false, triggerSyncFlagUsage)
}
