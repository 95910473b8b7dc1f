// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"github.com/mia-platform/unisync/internal/operation"
)

//go:generate ${TOOLS_BIN}/stringer -type=DataOperation -trimprefix DataOperation
type DataOperation int

const (
	// DataOperationUpsert represents an upsert (insert or update) operation.
	DataOperationUpsert DataOperation = iota
	// DataOperationDelete represents a delete operation.
	DataOperationDelete
)

// Data is one record read from a provider.
type Data struct {
	// ID identifies the record inside its entity.
	ID string
	// Type is the entity name (e.g., "gitrepository", "team").
	Type string
	// Operation indicates whether the entity must be upserted or deleted.
	Operation DataOperation
	// Values holds the raw payload. It is ignored for delete operations.
	Values map[string]any
}

// ToOperation returns the data operation of d. Deletions carry a nil entity.
func (d Data) ToOperation(connectorName string) operation.Operation {
	entity := d.Values
	if d.Operation == DataOperationDelete {
		entity = nil
	}
	return operation.NewData(d.ID, d.Type, entity, connectorName)
}
