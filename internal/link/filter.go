// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"context"
	"fmt"
	"slices"

	"github.com/mia-platform/unisync/internal/mapper"
	"github.com/mia-platform/unisync/internal/operation"
)

// MapperKey returns the key Mapping uses to find the mapper of a connector entity.
func MapperKey(connectorName, entityName string) string {
	return connectorName + ":" + entityName
}

// Mapping parses every data operation with the mapper registered for
// `<connectorName>:<entityName>`, falling back to `<entityName>`. Entities without a
// mapper pass through unchanged. A record rejected by a mapper aborts the stream.
func Mapping(mappers map[string]*mapper.Mapper) Link {
	return MapData(func(_ context.Context, data operation.Data) (operation.Data, error) {
		m, ok := mappers[MapperKey(data.ConnectorName, data.EntityName)]
		if !ok {
			m, ok = mappers[data.EntityName]
		}
		if !ok {
			return data, nil
		}

		entity, err := m.Parse(data.Entity)
		if err != nil {
			return data, fmt.Errorf("mapping %s %q: %w", data.EntityName, data.ID, err)
		}

		data.Entity = entity
		return data, nil
	})
}

// CategoryFilterOptions configures CategoryFilter.
type CategoryFilterOptions struct {
	// EntityName restricts the filter to one entity; empty filters every entity.
	EntityName string `json:"entityName,omitempty"`
	// Field is the key path of the category inside the entity.
	Field   string   `json:"field" validate:"required"`
	Allowed []string `json:"allowed"`
}

// CategoryFilter drops the data operations whose category is not in the allow list.
// Dropped records produce no operation at all: a record synced earlier and excluded
// later is not deleted downstream.
func CategoryFilter(opts CategoryFilterOptions) Link {
	path := mapper.Path(opts.Field)
	return Handle(Handlers{
		Data: func(_ context.Context, op operation.Operation) ([]operation.Operation, error) {
			if opts.EntityName != "" && op.Data.EntityName != opts.EntityName {
				return []operation.Operation{op}, nil
			}

			value, err := path.Resolve(op.Data.Entity)
			if err != nil {
				return nil, err
			}

			category, _ := value.(string)
			if !slices.Contains(opts.Allowed, category) {
				return nil, nil
			}
			return []operation.Operation{op}, nil
		},
	})
}
