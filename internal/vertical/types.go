// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package vertical

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotConfigured is returned when no adapter is registered for the connector.
	ErrNotConfigured = errors.New("connector is not configured for this vertical")
	// ErrNotImplemented is returned when the adapter does not support the operation.
	ErrNotImplemented = errors.New("operation is not implemented by this connector")

	ErrInvalidAdapter   = errors.New("invalid adapter")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrUnknownVertical  = errors.New("unknown vertical")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrObjectNotFound is returned by point reads of missing objects.
	ErrObjectNotFound = errors.New("object not found")
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// SyncMode tells adapters if a list read is a full read or an incremental one.
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// ListInput is the input of every list operation.
type ListInput struct {
	Cursor   string   `json:"cursor,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
	SyncMode SyncMode `json:"sync_mode,omitempty"`
}

// WithDefaults fills the page size and the sync mode and clamps the page size.
func (in ListInput) WithDefaults() ListInput {
	if in.PageSize <= 0 {
		in.PageSize = DefaultPageSize
	}
	in.PageSize = min(in.PageSize, MaxPageSize)
	if in.SyncMode == "" {
		in.SyncMode = SyncModeFull
	}
	return in
}

// ParseListInput builds a ListInput from the query parameters of a request.
func ParseListInput(cursor, pageSize, syncMode string) (ListInput, error) {
	input := ListInput{Cursor: cursor, SyncMode: SyncMode(syncMode)}
	if pageSize != "" {
		size, err := strconv.Atoi(pageSize)
		if err != nil || size < 0 {
			return ListInput{}, fmt.Errorf("%w: page_size must be a positive integer", ErrInvalidInput)
		}
		input.PageSize = size
	}

	switch input.SyncMode {
	case "", SyncModeFull, SyncModeIncremental:
	default:
		return ListInput{}, fmt.Errorf("%w: unknown sync_mode %q", ErrInvalidInput, syncMode)
	}

	return input.WithDefaults(), nil
}

// GetInput is the input of point reads.
type GetInput struct {
	ID string `json:"id"`
}

// Page is the envelope of every list operation.
type Page[T any] struct {
	HasNextPage bool    `json:"has_next_page"`
	NextCursor  *string `json:"next_cursor"`
	Items       []T     `json:"items"`
}

// NewPage returns a page of items; a nil next cursor marks the last page.
func NewPage[T any](items []T, nextCursor *string) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{HasNextPage: nextCursor != nil, NextCursor: nextCursor, Items: items}
}

// Context carries the connection the operation is executed for.
type Context struct {
	ConnectionID  string
	ConnectorName string
	OrgID         string
	EndUserID     string
}

// Request is what adapters receive: the live client built by the connector, the
// operation input and the connection context.
type Request[I any] struct {
	Instance any
	Input    I
	Context  Context
}
