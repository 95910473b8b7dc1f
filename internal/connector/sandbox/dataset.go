// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sandbox

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mia-platform/unisync/internal/cursor"
)

const (
	idField        = "id"
	updatedAtField = "updated_at"
)

// Dataset holds the records served by the sandbox, by entity name. Every record must
// carry an id and an updated_at RFC 3339 timestamp.
type Dataset struct {
	lock    sync.RWMutex
	records map[string][]map[string]any
}

func NewDataset(records map[string][]map[string]any) *Dataset {
	dataset := &Dataset{records: make(map[string][]map[string]any, len(records))}
	for entity, list := range records {
		for _, record := range list {
			dataset.Put(entity, record)
		}
	}
	return dataset
}

// Put inserts or replaces the record with the same id.
func (d *Dataset) Put(entity string, record map[string]any) {
	d.lock.Lock()
	defer d.lock.Unlock()

	record = maps.Clone(record)
	list := d.records[entity]
	idx := slices.IndexFunc(list, func(existing map[string]any) bool {
		return recordID(existing) == recordID(record)
	})
	if idx >= 0 {
		list[idx] = record
		return
	}
	d.records[entity] = append(list, record)
}

// Entities returns the entity names in alphabetical order.
func (d *Dataset) Entities() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return slices.Sorted(maps.Keys(d.records))
}

// sorted returns a copy of the records of entity ordered by update time and id.
func (d *Dataset) sorted(entity string) []map[string]any {
	d.lock.RLock()
	defer d.lock.RUnlock()

	list := make([]map[string]any, 0, len(d.records[entity]))
	for _, record := range d.records[entity] {
		list = append(list, maps.Clone(record))
	}
	slices.SortFunc(list, func(a, b map[string]any) int {
		return cmp.Or(
			updatedAt(a).Compare(updatedAt(b)),
			cmp.Compare(recordID(a), recordID(b)),
		)
	})
	return list
}

// get returns the record of entity with id.
func (d *Dataset) get(entity, id string) (map[string]any, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	for _, record := range d.records[entity] {
		if recordID(record) == id {
			return maps.Clone(record), true
		}
	}
	return nil, false
}

func recordID(record map[string]any) string {
	id, _ := record[idField].(string)
	return id
}

func updatedAt(record map[string]any) time.Time {
	value, _ := record[updatedAtField].(string)
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// startIndex returns the index of the first record after position.
func startIndex(records []map[string]any, position cursor.UpdatedAtOffset) int {
	first := slices.IndexFunc(records, func(record map[string]any) bool {
		return updatedAt(record).Equal(position.LastUpdatedAt)
	})
	if first >= 0 {
		return min(first+position.NextOffset, len(records))
	}

	after := slices.IndexFunc(records, func(record map[string]any) bool {
		return updatedAt(record).After(position.LastUpdatedAt)
	})
	if after < 0 {
		return len(records)
	}
	return after
}

// positionAfter returns the position following the first end records.
func positionAfter(records []map[string]any, end int) cursor.UpdatedAtOffset {
	last := updatedAt(records[end-1])
	first := slices.IndexFunc(records, func(record map[string]any) bool {
		return updatedAt(record).Equal(last)
	})
	return cursor.UpdatedAtOffset{LastUpdatedAt: last, NextOffset: end - first}
}

// afterID returns the index of the first record following position.
func afterID(records []map[string]any, position cursor.UpdatedAtID) int {
	idx := slices.IndexFunc(records, func(record map[string]any) bool {
		return cmp.Or(
			updatedAt(record).Compare(position.LastUpdatedAt),
			cmp.Compare(recordID(record), position.LastID),
		) > 0
	})
	if idx < 0 {
		return len(records)
	}
	return idx
}

// DefaultDataset returns a small banking and crm dataset.
func DefaultDataset() *Dataset {
	return NewDataset(map[string][]map[string]any{
		"account": {
			{"id": "acc_1", "name": "Everyday checking", "kind": "checking", "balance": 1520.35, "currency": "EUR", "updated_at": "2024-06-01T09:00:00Z"},
			{"id": "acc_2", "name": "Savings", "kind": "savings", "balance": 10250.0, "currency": "EUR", "updated_at": "2024-06-01T09:00:00Z"},
		},
		"transaction": {
			{"id": "tx_1", "account": "acc_1", "amt": 2500.0, "memo": "Salary", "category": "income", "date": "2024-06-01", "updated_at": "2024-06-01T10:00:00Z"},
			{"id": "tx_2", "account": "acc_1", "amt": -42.1, "memo": "Groceries", "category": "food", "date": "2024-06-02", "updated_at": "2024-06-02T18:30:00Z"},
			{"id": "tx_3", "account": "acc_1", "amt": -9.99, "memo": "Music subscription", "category": "entertainment", "date": "2024-06-03", "updated_at": "2024-06-03T07:15:00Z"},
		},
		"contact": {
			{"id": "ct_1", "first": "Ada", "last": "Lovelace", "email": "ada@example.com", "company": "co_1", "updated_at": "2024-05-20T12:00:00Z"},
			{"id": "ct_2", "first": "Alan", "last": "Turing", "email": "alan@example.com", "company": "co_1", "updated_at": "2024-05-21T12:00:00Z"},
		},
		"company": {
			{"id": "co_1", "name": "Analytical Engines", "domain": "example.com", "updated_at": "2024-05-19T12:00:00Z"},
		},
	})
}
