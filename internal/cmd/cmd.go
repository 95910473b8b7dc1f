// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	syncCmdUsage = "sync PIPELINE_ID"
	syncCmdShort = "run a pipeline once"
	syncCmdLong  = `Run a pipeline once.
	The source of the pipeline is read from the last committed state, or from the
	beginning when a full resync is requested, and every record passes through the
	links of the pipeline before reaching the destination.

	Connections and pipelines are read from the store; a workspace file can be
	applied to the store before the run with the --workspace flag.`

	syncCmdExample = `# Sync a pipeline declared in a workspace file
	unisync sync pipe_banking --workspace workspace.yaml --mapping-file mappings/

	# Sync from the beginning ignoring the persisted state
	unisync sync pipe_banking --full-resync`

	serveCmdUsage = "serve"
	serveCmdShort = "start the unified API and the sync endpoints"
	serveCmdLong  = `Start the HTTP server.
	The server exposes the unified vertical API under /unified, the endpoint to
	trigger pipeline syncs under /pipelines and the status routes under /-/.
	The listening address is configured with the HTTP_HOST and HTTP_PORT
	environment variables.`

	serveCmdExample = `# Serve the workspace connections on port 8080
	HTTP_PORT=8080 unisync serve --workspace workspace.yaml`

	provisionCmdUsage = "provision CONNECTION_ID"
	provisionCmdShort = "handle the update of a connection"
	provisionCmdLong  = `Handle the update of a connection.
	When the connection belongs to an org with a default destination and has no
	pipeline towards it, the default pipeline is created. With --sync every
	pipeline reading from the connection is run.`

	provisionCmdExample = `# Create the default pipeline of a new connection and run it
	unisync provision conn_plaid --sync`
)

// SyncCmd returns the Cobra command that runs a pipeline once.
func SyncCmd() *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:     syncCmdUsage,
		Short:   heredoc.Doc(syncCmdShort),
		Long:    heredoc.Doc(syncCmdLong),
		Example: heredoc.Doc(syncCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeSync(cmd.Context(), cmd.OutOrStdout(), flags.fullResync); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// ServeCmd returns the Cobra command that starts the HTTP server.
func ServeCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     serveCmdUsage,
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Doc(serveCmdLong),
		Example: heredoc.Doc(serveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeServe(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// ProvisionCmd returns the Cobra command that handles the update of a connection.
func ProvisionCmd() *cobra.Command {
	flags := &provisionFlags{}
	cmd := &cobra.Command{
		Use:     provisionCmdUsage,
		Short:   heredoc.Doc(provisionCmdShort),
		Long:    heredoc.Doc(provisionCmdLong),
		Example: heredoc.Doc(provisionCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.executeProvision(cmd.Context(), cmd.OutOrStdout(), flags.triggerSync); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
