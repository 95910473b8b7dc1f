// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package connector

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/vertical"
)

const loggerName = "unisync:connector"

// Registry holds the connectors known to the process by name.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry validates and indexes connectors. Every connector must have a unique
// name and be usable as source, destination or vertical adapter.
func NewRegistry(connectors ...Connector) (*Registry, error) {
	registry := &Registry{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		if c == nil || c.Name() == "" {
			return nil, fmt.Errorf("%w: connector without name", ErrInvalidConnector)
		}
		if _, found := registry.connectors[c.Name()]; found {
			return nil, fmt.Errorf("%w: %s registered twice", ErrInvalidConnector, c.Name())
		}

		_, isSource := c.(Source)
		_, isDestination := c.(Destination)
		_, isAdapter := c.(Adapter)
		if !isSource && !isDestination && !isAdapter {
			return nil, fmt.Errorf("%w: %s is neither a source, a destination nor an adapter", ErrInvalidConnector, c.Name())
		}

		registry.connectors[c.Name()] = c
	}

	return registry, nil
}

// Names returns the registered connector names in alphabetical order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.connectors))
}

func (r *Registry) Get(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnector, name)
	}
	return c, nil
}

func (r *Registry) Source(name string) (Source, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	source, ok := c.(Source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotASource, name)
	}
	return source, nil
}

func (r *Registry) Destination(name string) (Destination, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	destination, ok := c.(Destination)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotADestination, name)
	}
	return destination, nil
}

// RegisterAdapters registers every adapter connector on router.
func (r *Registry) RegisterAdapters(ctx context.Context, router *vertical.Router) error {
	log := logger.Named(ctx, loggerName)
	for _, name := range r.Names() {
		adapter, ok := r.connectors[name].(Adapter)
		if !ok {
			continue
		}

		verticals, err := router.RegisterAdapter(name, adapter.Adapter())
		if err != nil {
			return fmt.Errorf("registering %s adapter: %w", name, err)
		}
		log.Debug("adapter registered", "connectorName", name, "verticals", verticals)
	}
	return nil
}
