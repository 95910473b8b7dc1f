// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"context"

	"github.com/mia-platform/unisync/internal/operation"
)

// PrefixConnectorName renames every entity to `<connectorName>_<entityName>`.
func PrefixConnectorName() Link {
	return MapData(func(_ context.Context, data operation.Data) (operation.Data, error) {
		data.EntityName = data.ConnectorName + "_" + data.EntityName
		return data, nil
	})
}

// SingleTable collapses every entity into table. The id becomes `<entityName>_<id>` and
// the entity is wrapped with its provenance, so different entities never collide.
func SingleTable(table string) Link {
	return MapData(func(_ context.Context, data operation.Data) (operation.Data, error) {
		return operation.Data{
			ID:            data.EntityName + "_" + data.ID,
			EntityName:    table,
			ConnectorName: data.ConnectorName,
			ConnectionID:  data.ConnectionID,
			Entity: map[string]any{
				"entityName":    data.EntityName,
				"connectorName": data.ConnectorName,
				"connectionId":  data.ConnectionID,
				"id":            data.ID,
				"entity":        data.Entity,
			},
		}, nil
	})
}

// RenameOptions configures RenameEntity. Columns are keyed by the original entity name.
type RenameOptions struct {
	Entities map[string]string            `json:"entities,omitempty"`
	Columns  map[string]map[string]string `json:"columns,omitempty"`
}

// RenameEntity renames entities and their top level columns. Names without a rename
// rule are kept.
func RenameEntity(opts RenameOptions) Link {
	return MapData(func(_ context.Context, data operation.Data) (operation.Data, error) {
		original := data.EntityName
		if renamed, ok := opts.Entities[original]; ok && renamed != "" {
			data.EntityName = renamed
		}

		columns := opts.Columns[original]
		if len(columns) == 0 || data.Entity == nil {
			return data, nil
		}

		entity := make(map[string]any, len(data.Entity))
		for key, value := range data.Entity {
			if renamed, ok := columns[key]; ok && renamed != "" {
				key = renamed
			}
			entity[key] = value
		}
		data.Entity = entity
		return data, nil
	})
}
