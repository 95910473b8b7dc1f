// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/metrics"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
)

// track is the first link of every run. It opens the stream with an init stateUpdate,
// rejects operations missing their payload, counts the operations of the source, tags
// data with the source connection, persists connection updates as soon as they arrive
// and closes the stream with a complete stateUpdate carrying the last source state.
func (e *execution) track(initial json.RawMessage) link.Link {
	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		last := initial
		if err := link.Send(ctx, out, operation.NewStateInit()); err != nil {
			return err
		}

		for op := range in {
			if err := op.Validate(); err != nil {
				return syncerr.Internal(fmt.Errorf("connector %s emitted an invalid operation: %w", e.sourceConnection.ConnectorName, err))
			}
			e.count(op)

			switch op.Type {
			case operation.TypeData:
				op = op.WithConnection(e.sourceConnection.ID)
			case operation.TypeResoUpdate:
				if err := e.persistResoUpdate(ctx, op.ResoUpdate); err != nil {
					return err
				}
			case operation.TypeStateUpdate:
				if op.StateUpdate != nil && op.StateUpdate.Subtype == operation.StateComplete {
					last = op.StateUpdate.SourceState
				}
			}

			if err := link.Send(ctx, out, op); err != nil {
				return err
			}
		}

		return link.Send(ctx, out, operation.NewStateComplete(last, nil))
	}
}

func (e *execution) count(op operation.Operation) {
	switch op.Type {
	case operation.TypeData:
		e.counters.Data++
	case operation.TypeResoUpdate:
		e.counters.ResoUpdates++
	case operation.TypeStateUpdate:
		e.counters.StateUpdates++
	case operation.TypeCommit:
		e.counters.Commits++
	case operation.TypeReady:
		e.counters.Ready++
	}
	metrics.OperationsTotal.WithLabelValues(e.sourceConnection.ConnectorName, string(op.Type)).Inc()
}

// persistResoUpdate writes new settings and integration metadata of a connection
// immediately, so a crash later in the run does not lose refreshed credentials.
func (e *execution) persistResoUpdate(ctx context.Context, update *operation.ResoUpdate) error {
	if update == nil || (update.Settings == nil && update.Integration == nil) {
		return nil
	}

	connectionID := update.ID
	if connectionID == "" {
		connectionID = e.sourceConnection.ID
	}

	patch := store.ConnectionPatch{Settings: update.Settings}
	if update.Integration != nil {
		connection, err := e.runner.store.GetConnection(ctx, connectionID)
		if err != nil {
			return fmt.Errorf("loading connection %s: %w", connectionID, err)
		}
		config := maps.Clone(connection.Config)
		if config == nil {
			config = make(map[string]any, len(update.Integration))
		}
		maps.Copy(config, update.Integration)
		patch.Config = config
	}

	if _, err := e.runner.store.PatchConnection(ctx, connectionID, patch); err != nil {
		return fmt.Errorf("persisting update of connection %s: %w", connectionID, err)
	}
	e.log.Debug("connection update persisted", "connectionId", connectionID)
	return nil
}

// observe consumes the operations leaving the destination. The destination forwards a
// complete stateUpdate only after the data preceding it is written, so its states are
// the ones safe to resume from.
func (e *execution) observe(_ context.Context, in <-chan operation.Operation) error {
	for op := range in {
		if op.Type != operation.TypeStateUpdate || op.StateUpdate == nil || op.StateUpdate.Subtype != operation.StateComplete {
			continue
		}

		e.committed = true
		e.committedSource = op.StateUpdate.SourceState
		if op.StateUpdate.DestinationState != nil {
			e.committedDestination = op.StateUpdate.DestinationState
		}
	}
	return nil
}
