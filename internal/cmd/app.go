// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mia-platform/unisync/internal/config"
	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/connector/azblob"
	"github.com/mia-platform/unisync/internal/connector/azure"
	"github.com/mia-platform/unisync/internal/connector/azuredevops"
	"github.com/mia-platform/unisync/internal/connector/catalog"
	"github.com/mia-platform/unisync/internal/connector/gcp"
	"github.com/mia-platform/unisync/internal/connector/sandbox"
	sqlitedestination "github.com/mia-platform/unisync/internal/connector/sqlite"
	"github.com/mia-platform/unisync/internal/connector/writer"
	"github.com/mia-platform/unisync/internal/events"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/lock"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/pipeline"
	"github.com/mia-platform/unisync/internal/store/sqlite"
	"github.com/mia-platform/unisync/internal/vertical"
	"github.com/mia-platform/unisync/internal/vertical/banking"
	"github.com/mia-platform/unisync/internal/vertical/unified"
)

const loggerName = "unisync:cmd"

// app holds the collaborators shared by the commands.
type app struct {
	store      *sqlite.Store
	connectors *connector.Registry
	router     *vertical.Router
	runner     *pipeline.Runner

	closers []func(context.Context) error
}

// newApp opens the store, applies the workspace and assembles the runner. The writer
// connector writes to out.
func newApp(ctx context.Context, opts *options, out io.Writer) (_ *app, err error) {
	log := logger.Named(ctx, loggerName)

	a := &app{}
	defer func() {
		if err != nil {
			a.close(ctx)
		}
	}()

	a.store, err = sqlite.Open(ctx, opts.env.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	if opts.env.WorkspacePath != "" {
		workspace, err := config.LoadWorkspace(opts.env.WorkspacePath)
		if err != nil {
			return nil, err
		}
		if err := workspace.Apply(ctx, a.store); err != nil {
			return nil, err
		}
		log.Debug("workspace applied", "path", opts.env.WorkspacePath)
	}

	links, err := newLinkRegistry(opts.mappingPaths)
	if err != nil {
		return nil, err
	}

	a.connectors, err = newConnectorRegistry(out)
	if err != nil {
		return nil, err
	}

	a.router = unified.NewRouter()
	if err := a.connectors.RegisterAdapters(ctx, a.router); err != nil {
		return nil, err
	}

	runnerOptions := pipeline.RunnerOptions{
		Store:      a.store,
		Connectors: a.connectors,
		Links:      links,
	}

	eventsConfig, err := events.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	bus, err := events.NewFromConfig(ctx, eventsConfig)
	if err != nil {
		return nil, err
	}
	if bus != nil {
		runnerOptions.Emitter = bus
		a.closers = append(a.closers, bus.Close)
	}

	if opts.env.LockRedisURL != "" {
		client, err := lock.DialRedis(ctx, opts.env.LockRedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		runnerOptions.Locker = lock.NewRedis(client, lock.RedisOptions{TTL: opts.env.LockTTL})
	}

	if opts.env.DefaultPipelines {
		runnerOptions.Provisioner = pipeline.NewProvisioner(a.store)
	}

	a.runner, err = pipeline.NewRunner(runnerOptions)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// close releases the collaborators in reverse order of creation.
func (a *app) close(ctx context.Context) {
	log := logger.Named(ctx, loggerName)

	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, a.closers[i](context.WithoutCancel(ctx)))
	}
	if errs != nil {
		log.Warn("error releasing resources", "error", errs.Error())
	}
}

// newLinkRegistry returns the generic links, the banking link and the mapping link built
// from the mapping files at mappingPaths.
func newLinkRegistry(mappingPaths []string) (*link.Registry, error) {
	registry := link.DefaultRegistry()
	if err := banking.RegisterLinks(registry); err != nil {
		return nil, err
	}

	mappers, err := loadMappers(mappingPaths)
	if err != nil {
		return nil, err
	}
	if err := config.RegisterMappingLink(registry, mappers); err != nil {
		return nil, err
	}

	return registry, nil
}

// newConnectorRegistry returns the registry of every shipped connector. Connector
// defaults are read from the environment; connection settings override them.
func newConnectorRegistry(out io.Writer) (*connector.Registry, error) {
	connectors := []connector.Connector{
		sandbox.New(sandbox.Options{Dataset: sandbox.DefaultDataset()}),
		writer.New(out),
	}

	for _, constructor := range []func() (connector.Connector, error){
		fromEnv(azblob.New),
		fromEnv(azure.New),
		fromEnv(azuredevops.New),
		fromEnv(catalog.New),
		fromEnv(func() (*gcp.Connector, error) { return gcp.New() }),
		fromEnv(sqlitedestination.New),
	} {
		c, err := constructor()
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}

	return connector.NewRegistry(connectors...)
}

// fromEnv adapts the constructor of a connector configured from the environment.
func fromEnv[T connector.Connector](newConnector func() (T, error)) func() (connector.Connector, error) {
	return func() (connector.Connector, error) {
		c, err := newConnector()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
