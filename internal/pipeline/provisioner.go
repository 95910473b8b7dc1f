// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"
	"fmt"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

// Provisioner wires connections without a pipeline to the default destination of their
// org.
type Provisioner struct {
	store store.Store
}

func NewProvisioner(s store.Store) *Provisioner {
	return &Provisioner{store: s}
}

// EnsureDefaultPipeline returns the pipeline from the connection to the default
// destination of its org, creating it when the connection has no pipeline at all.
// created is false when nothing was created; the returned pipeline is empty when the
// org has no default destination or the connection already has other pipelines.
func (p *Provisioner) EnsureDefaultPipeline(ctx context.Context, connectionID string) (pipeline store.Pipeline, created bool, err error) {
	log := logger.Named(ctx, loggerName)

	connection, err := p.store.GetConnection(ctx, connectionID)
	if err != nil {
		return store.Pipeline{}, false, fmt.Errorf("loading connection %s: %w", connectionID, err)
	}
	if connection.OrgID == "" {
		return store.Pipeline{}, false, nil
	}

	org, err := p.store.GetOrg(ctx, connection.OrgID)
	if err != nil {
		return store.Pipeline{}, false, fmt.Errorf("loading org %s: %w", connection.OrgID, err)
	}
	if org.DefaultDestinationID == "" || org.DefaultDestinationID == connectionID {
		return store.Pipeline{}, false, nil
	}

	existing, err := p.store.ListPipelinesBySource(ctx, connectionID)
	if err != nil {
		return store.Pipeline{}, false, err
	}
	if len(existing) > 0 {
		for _, candidate := range existing {
			if candidate.DestinationID == org.DefaultDestinationID {
				return candidate, false, nil
			}
		}
		return store.Pipeline{}, false, nil
	}

	// the store checks the couple again, two concurrent calls create one pipeline
	pipeline, created, err = p.store.CreatePipeline(ctx, store.Pipeline{
		SourceID:      connectionID,
		DestinationID: org.DefaultDestinationID,
	})
	if err != nil {
		return store.Pipeline{}, false, fmt.Errorf("creating default pipeline of %s: %w", connectionID, err)
	}
	if created {
		log.Info("default pipeline created", "pipelineId", pipeline.ID, "connectionId", connectionID, "destinationId", org.DefaultDestinationID)
	}
	return pipeline, created, nil
}
