// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azuredevops implements a source reading the git repositories and the teams
// of an Azure DevOps organization.
package azuredevops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	Name    = "azuredevops"
	logName = "unisync:connector:azuredevops"

	gitRepositoryType = "gitrepository"
	teamType          = "team"
)

var (
	ErrDevOpsSource = errors.New("azure devops source")

	_ connector.Source          = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

// resource describes how a type is listed.
type resource struct {
	path  string
	query func() url.Values
}

var resources = map[string]resource{
	gitRepositoryType: {
		path: "_apis/git/repositories",
		query: func() url.Values {
			return url.Values{"includeLinks": {"true"}, "includeAllUrls": {"true"}, "includeHidden": {"true"}}
		},
	},
	teamType: {
		path: "_apis/teams",
		query: func() url.Values {
			return url.Values{"$expandIdentity": {"true"}}
		},
	},
}

// Connector is the Azure DevOps source.
type Connector struct {
	config

	httpClient *http.Client
}

// New creates a new Azure DevOps Connector reading the default configuration from the
// env variables.
func New() (*Connector, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleErr(err)
	}

	return &Connector{config: config}, nil
}

func (c *Connector) Name() string {
	return Name
}

// NewInstance implements connector.InstanceFactory.
func (c *Connector) NewInstance(_ context.Context, connection store.Connection, _ connector.SettingsChanged) (any, error) {
	overrides, err := connector.DecodeSettings[config](connection)
	if err != nil {
		return nil, handleErr(err)
	}

	merged := c.merge(overrides)
	if err := merged.validate(); err != nil {
		return nil, handleErr(err)
	}

	client, err := newClient(merged.connection(), c.httpClient)
	if err != nil {
		return nil, handleErr(err)
	}
	return client, nil
}

// SourceSync implements connector.Source. Every type is read by its own sub-source and
// the streams are merged. Every page is followed by a commit and a checkpoint holding
// the continuation tokens of all the types, so an interrupted run resumes from the page
// each type was reading.
func (c *Connector) SourceSync(ctx context.Context, req connector.SourceRequest, out chan<- operation.Operation) error {
	client, err := connector.InstanceAs[*client](req.Instance)
	if err != nil {
		return handleErr(err)
	}

	shared := &checkpoints{state: source.DecodeState(ctx, req.State)}
	subSources := make([]source.SubSource, 0, len(resources))
	for _, typeString := range []string{gitRepositoryType, teamType} {
		if !req.StreamEnabled(typeString) {
			continue
		}
		subSources = append(subSources, source.SubSource{
			Name:    typeString,
			Produce: c.typeProducer(client, typeString, shared),
		})
	}
	if len(subSources) == 0 {
		return nil
	}

	return handleErr(source.FanIn(subSources...)(ctx, out))
}

// checkpoints is the source state shared by the sub-sources.
type checkpoints struct {
	lock  sync.Mutex
	state source.State
}

// commit records the cursor of typeString and emits the whole state. The lock is held
// while sending so checkpoints leave in the order they are taken.
func (c *checkpoints) commit(ctx context.Context, out chan<- operation.Operation, typeString, token string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.state = c.state.With(typeString, token)
	return link.Send(ctx, out, operation.NewStateComplete(c.state.Raw(), nil))
}

func (c *checkpoints) position(typeString string) string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state[typeString]
}

func (c *Connector) typeProducer(devops *client, typeString string, shared *checkpoints) link.Producer {
	return func(ctx context.Context, out chan<- operation.Operation) error {
		log := logger.Named(ctx, logName)
		resource := resources[typeString]

		start := ""
		if token, ok := cursor.Decode[cursor.PageToken](ctx, shared.position(typeString)); ok {
			log.Debug("resuming type", "type", typeString)
			start = token.Token
		}

		fetch := func(ctx context.Context, token string) ([]map[string]any, string, error) {
			query := resource.query()
			if token != "" {
				query.Set("continuationToken", token)
			}
			return devops.list(ctx, resource.path, query)
		}

		emit := func(ctx context.Context, items []map[string]any, next string) error {
			for _, item := range items {
				id, _ := item["id"].(string)
				if id == "" {
					log.Warn("skipping item without id", "type", typeString)
					continue
				}
				if err := link.Send(ctx, out, operation.NewData(id, typeString, item, Name)); err != nil {
					return err
				}
			}
			if err := link.Send(ctx, out, operation.NewCommit()); err != nil {
				return err
			}

			token := ""
			if next != "" {
				token = cursor.Encode(cursor.PageToken{Token: next})
			}
			return shared.commit(ctx, out, typeString, token)
		}

		return source.Paginate(ctx, start, fetch, emit)
	}
}

// handleErr always wraps the given error with ErrDevOpsSource keeping the chain intact
// for the classification of the run error.
func handleErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDevOpsSource, err)
}
