// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mia-platform/unisync/internal/config"
	"github.com/mia-platform/unisync/internal/pipeline"
	"github.com/mia-platform/unisync/internal/server"
)

// options configures the commands: target is the pipeline or connection argument.
type options struct {
	target       string
	env          config.Env
	mappingPaths []string
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if o.target == "" {
		return errNoArguments
	}

	return nil
}

// executeSync runs the target pipeline and prints its run record. Records written by
// the writer connector share out with the run record.
func (o *options) executeSync(ctx context.Context, out io.Writer, fullResync bool) error {
	app, err := newApp(ctx, o, out)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	run, err := app.runner.Sync(ctx, o.target, pipeline.Options{FullResync: fullResync})
	if run.ID != "" {
		err = errors.Join(err, printJSON(out, run))
	}
	return err
}

// executeProvision handles the update of the target connection and prints the records
// of the runs it triggered.
func (o *options) executeProvision(ctx context.Context, out io.Writer, triggerSync bool) error {
	app, err := newApp(ctx, o, out)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	runs, err := app.runner.HandleConnectionUpdate(ctx, o.target, triggerSync)
	for _, run := range runs {
		err = errors.Join(err, printJSON(out, run))
	}
	return err
}

// executeServe serves the HTTP API until the process is interrupted.
func (o *options) executeServe(ctx context.Context) error {
	serverConfig, err := server.LoadServerConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, o, os.Stdout)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	srv, err := server.NewServer(ctx, serverConfig, server.Dependencies{
		Store:      app.store,
		Connectors: app.connectors,
		Router:     app.router,
		Syncer:     app.runner,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
