// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azure implements a source listing the resources of an Azure subscription
// through Resource Graph queries.
package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
)

var (
	// ErrAzureSource is the sentinel error for all Azure Source errors.
	ErrAzureSource = errors.New("azure source")
	// ErrUnexpectedResult reports query results that are not a list of objects.
	ErrUnexpectedResult = errors.New("unexpected query result")

	_ connector.Source          = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

const (
	Name    = "azure"
	logName = "unisync:connector:azure"

	resourceGraphQueryTemplate          = "resources | where type =~ '%s'"
	resourceContainerGraphQueryTemplate = "resourcecontainers | where type =~ '%s'"
)

// containerTypes maps the resource types living in the resourcecontainers table to
// their type in Resource Graph.
var containerTypes = map[string]string{
	"Microsoft.Resources/resourceGroups": "Microsoft.Resources/subscriptions/resourceGroups",
	"Microsoft.Resources/subscriptions":  "Microsoft.Resources/subscriptions",
}

func graphQuery(resourceType string) string {
	if containerType, ok := containerTypes[resourceType]; ok {
		return fmt.Sprintf(resourceContainerGraphQueryTemplate, containerType)
	}
	return fmt.Sprintf(resourceGraphQueryTemplate, resourceType)
}

// Connector is the Azure source.
type Connector struct {
	config
}

// New creates a new Azure Connector reading the default configuration from the env
// variables.
func New() (*Connector, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Connector{config: config}, nil
}

func (c *Connector) Name() string {
	return Name
}

// Instance is the Resource Graph client of a connection.
type Instance struct {
	config
	client *armresourcegraph.Client
}

// NewInstance implements connector.InstanceFactory.
func (c *Connector) NewInstance(_ context.Context, connection store.Connection, _ connector.SettingsChanged) (any, error) {
	overrides, err := connector.DecodeSettings[config](connection)
	if err != nil {
		return nil, handleError(err)
	}

	merged := c.merge(overrides)
	if err := merged.validateForSync(); err != nil {
		return nil, handleError(err)
	}

	client, err := merged.azureGraphClient()
	if err != nil {
		return nil, handleError(err)
	}
	return &Instance{config: merged, client: client}, nil
}

// SourceSync implements connector.Source. Every page of a resource type is followed by
// a commit and a checkpoint holding the skip token of the next page.
func (c *Connector) SourceSync(ctx context.Context, req connector.SourceRequest, out chan<- operation.Operation) error {
	log := logger.Named(ctx, logName)
	instance, err := connector.InstanceAs[*Instance](req.Instance)
	if err != nil {
		return handleError(err)
	}

	state := source.DecodeState(ctx, req.State)
	for _, resourceType := range instance.ResourceTypes {
		if !req.StreamEnabled(resourceType) {
			continue
		}

		start := ""
		if token, ok := cursor.Decode[cursor.PageToken](ctx, state[resourceType]); ok {
			log.Debug("resuming resource type", "type", resourceType)
			start = token.Token
		}

		fetch := func(ctx context.Context, skipToken string) ([]map[string]any, string, error) {
			return instance.query(ctx, graphQuery(resourceType), skipToken)
		}

		emit := func(ctx context.Context, items []map[string]any, next string) error {
			for _, item := range items {
				id, _ := item["id"].(string)
				if id == "" {
					log.Warn("skipping resource without id", "type", resourceType)
					continue
				}
				item["type"] = resourceType
				if err := link.Send(ctx, out, operation.NewData(id, resourceType, item, Name)); err != nil {
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
			state = state.With(resourceType, token)
			return link.Send(ctx, out, operation.NewStateComplete(state.Raw(), nil))
		}

		if err := source.Paginate(ctx, start, fetch, emit); err != nil {
			return handleError(err)
		}
	}

	return nil
}

// query runs one page of query on the subscription of the instance.
func (i *Instance) query(ctx context.Context, query, skipToken string) ([]map[string]any, string, error) {
	options := &armresourcegraph.QueryRequestOptions{
		ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
		Top:          to.Ptr(i.PageSize),
	}
	if skipToken != "" {
		options.SkipToken = to.Ptr(skipToken)
	}

	resp, err := i.client.Resources(ctx, armresourcegraph.QueryRequest{
		Query:         to.Ptr(query),
		Subscriptions: []*string{to.Ptr(i.SubscriptionID)},
		Options:       options,
	}, nil)
	if err != nil {
		return nil, "", err
	}

	items, err := resultItems(resp.Data)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if resp.SkipToken != nil {
		next = *resp.SkipToken
	}
	return items, next, nil
}

func resultItems(data any) ([]map[string]any, error) {
	if data == nil {
		return nil, nil
	}

	rows, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrUnexpectedResult, data)
	}

	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: got row of type %T", ErrUnexpectedResult, row)
		}
		items = append(items, item)
	}
	return items, nil
}

// handleError always wraps the given error with ErrAzureSource keeping the chain
// intact for the classification of the run error.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrAzureSource, err)
}
