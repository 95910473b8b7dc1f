// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package connector defines the contracts a connector implements to take part in a
// sync: reading a source stream, consuming it as a destination, building the per run
// client instance and exposing vertical adapters.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/store"
)

var (
	ErrUnknownConnector   = errors.New("unknown connector")
	ErrInvalidConnector   = errors.New("invalid connector")
	ErrNotASource         = errors.New("connector cannot be used as source")
	ErrNotADestination    = errors.New("connector cannot be used as destination")
	ErrInvalidSettings    = errors.New("invalid connection settings")
	ErrUnexpectedInstance = errors.New("unexpected connector instance")
)

// Connector is implemented by every connector. The capabilities of a connector are
// expressed by the other interfaces of the package.
type Connector interface {
	Name() string
}

// SettingsChanged persists the new settings of a connection, for example refreshed
// credentials. It must be called as soon as the settings change.
type SettingsChanged func(ctx context.Context, settings map[string]any) error

// InstanceFactory builds the client used by a connector for one connection. Instances
// live for a single run or dispatch.
type InstanceFactory interface {
	NewInstance(ctx context.Context, connection store.Connection, onSettingsChanged SettingsChanged) (any, error)
}

// Closable instances are closed when the run using them ends.
type Closable interface {
	Close(ctx context.Context) error
}

// SourceRequest carries everything a source needs to produce its stream.
type SourceRequest struct {
	Connection store.Connection
	Instance   any
	// State is the last committed source state, empty on the first run and on full
	// resyncs.
	State      json.RawMessage
	Streams    map[string]bool
	FullResync bool
}

// StreamEnabled reports whether entity must be synced. All the entities are enabled
// when no stream selection is set.
func (r SourceRequest) StreamEnabled(entity string) bool {
	if len(r.Streams) == 0 {
		return true
	}
	return r.Streams[entity]
}

// Source produces the operations of a connection. SourceSync writes to out and returns
// when the stream is exhausted; it must not close out. Sources checkpoint their progress
// emitting a complete stateUpdate carrying the source state after the data it covers.
type Source interface {
	Connector
	SourceSync(ctx context.Context, req SourceRequest, out chan<- operation.Operation) error
}

// DestinationRequest carries everything a destination needs to consume a stream.
type DestinationRequest struct {
	Connection store.Connection
	Instance   any
	State      json.RawMessage
	FullResync bool
}

// Destination consumes the operations of a stream. The returned link writes the data it
// receives and forwards commit and stateUpdate operations only once every data preceding
// them is durably written.
type Destination interface {
	Connector
	DestinationSync(ctx context.Context, req DestinationRequest) (link.Link, error)
}

// Adapter connectors implement operations of one or more verticals. Adapter returns the
// value registered on the vertical router.
type Adapter interface {
	Connector
	Adapter() any
}

// NewInstance builds the instance of connection with c, when c is an InstanceFactory.
func NewInstance(ctx context.Context, c Connector, connection store.Connection, onSettingsChanged SettingsChanged) (any, error) {
	factory, ok := c.(InstanceFactory)
	if !ok {
		return nil, nil
	}
	return factory.NewInstance(ctx, connection, onSettingsChanged)
}

// CloseInstance closes instance when it is Closable.
func CloseInstance(ctx context.Context, instance any) error {
	closable, ok := instance.(Closable)
	if !ok {
		return nil
	}
	return closable.Close(ctx)
}

// DecodeSettings decodes the settings of a connection into T.
func DecodeSettings[T any](connection store.Connection) (T, error) {
	var settings T
	data, err := json.Marshal(connection.Settings)
	if err != nil {
		return settings, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return settings, nil
}

// EncodeSettings returns settings as a generic map suitable for a connection.
func EncodeSettings(settings any) (map[string]any, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var encoded map[string]any
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, err
	}
	return encoded, nil
}

// InstanceAs asserts instance to T.
func InstanceAs[T any](instance any) (T, error) {
	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T", ErrUnexpectedInstance, instance)
	}
	return typed, nil
}
