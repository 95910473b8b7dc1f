// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package destination

import (
	"encoding/json"
	"time"

	"github.com/mia-platform/unisync/internal/operation"
)

// Record is one data operation as written to a sink. A nil Data marks the deletion of
// the record.
type Record struct {
	Entity        string         `json:"entity"`
	ID            string         `json:"id"`
	ConnectorName string         `json:"connectorName,omitempty"`
	ConnectionID  string         `json:"connectionId,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	OperationTime string         `json:"operationTime,omitempty"`
}

// RecordFromData converts a data payload received at time now.
func RecordFromData(data operation.Data, now time.Time) Record {
	return Record{
		Entity:        data.EntityName,
		ID:            data.ID,
		ConnectorName: data.ConnectorName,
		ConnectionID:  data.ConnectionID,
		Data:          data.Entity,
		OperationTime: now.UTC().Format(time.RFC3339),
	}
}

// Deleted reports whether the record is a tombstone.
func (r Record) Deleted() bool {
	return r.Data == nil
}

// internalRecord breaks the recursion when customizing JSON marshaling.
type internalRecord Record

// MarshalJSON labels the payload with the operation derived from the data content.
func (r Record) MarshalJSON() ([]byte, error) {
	op := "upsert"
	if r.Deleted() {
		op = "delete"
	}

	return json.Marshal(struct {
		internalRecord

		Operation string `json:"operation"`
	}{
		internalRecord: internalRecord(r),
		Operation:      op,
	})
}
