// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package sandbox implements an in-memory connector: a source reading a Dataset with
// resumable cursors, a destination recording what it receives and the banking and crm
// adapters of the unified API.
package sandbox

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/cursor"
	"github.com/mia-platform/unisync/internal/destination"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/source"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	Name       = "sandbox"
	loggerName = "unisync:connector:sandbox"

	defaultPageSize = 50

	// expiredToken in the access_token setting makes NewInstance refresh it.
	expiredToken = "expired"
)

var (
	_ connector.Source          = &Connector{}
	_ connector.Destination     = &Connector{}
	_ connector.Adapter         = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

// Options configure a sandbox Connector.
type Options struct {
	// Name overrides the connector name, to register more than one sandbox.
	Name     string
	Dataset  *Dataset
	PageSize int
	// BatchSize is the destination batch size.
	BatchSize int
}

// Connector is the sandbox connector.
type Connector struct {
	name      string
	dataset   *Dataset
	pageSize  int
	batchSize int

	refreshes atomic.Int64

	lock    sync.Mutex
	written map[string][]destination.Record
}

func New(opts Options) *Connector {
	if opts.Name == "" {
		opts.Name = Name
	}
	if opts.Dataset == nil {
		opts.Dataset = NewDataset(nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	return &Connector{
		name:      opts.Name,
		dataset:   opts.Dataset,
		pageSize:  opts.PageSize,
		batchSize: opts.BatchSize,
		written:   make(map[string][]destination.Record),
	}
}

func (c *Connector) Name() string {
	return c.name
}

// Instance is the per connection client of the sandbox.
type Instance struct {
	ConnectionID string
	AccessToken  string
	dataset      *Dataset
}

// NewInstance implements connector.InstanceFactory. An expired access token is replaced
// and the new settings are persisted before the instance is returned.
func (c *Connector) NewInstance(ctx context.Context, connection store.Connection, onSettingsChanged connector.SettingsChanged) (any, error) {
	settings, err := connector.DecodeSettings[struct {
		AccessToken string `json:"access_token"`
	}](connection)
	if err != nil {
		return nil, err
	}

	instance := &Instance{ConnectionID: connection.ID, AccessToken: settings.AccessToken, dataset: c.dataset}
	if settings.AccessToken != expiredToken {
		return instance, nil
	}

	instance.AccessToken = "sandbox-" + strconv.FormatInt(c.refreshes.Add(1), 10)
	logger.Named(ctx, loggerName).Debug("refreshing sandbox token", "connectionId", connection.ID)
	if onSettingsChanged != nil {
		updated := maps.Clone(connection.Settings)
		updated["access_token"] = instance.AccessToken
		if err := onSettingsChanged(ctx, updated); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (c *Connector) instanceDataset(instance any) *Dataset {
	if typed, ok := instance.(*Instance); ok && typed.dataset != nil {
		return typed.dataset
	}
	return c.dataset
}

// SourceSync implements connector.Source. Entities are read in alphabetical order, one
// page at a time; every page is followed by a commit and a checkpoint of the position
// reached.
func (c *Connector) SourceSync(ctx context.Context, req connector.SourceRequest, out chan<- operation.Operation) error {
	log := logger.Named(ctx, loggerName)
	dataset := c.instanceDataset(req.Instance)
	state := source.DecodeState(ctx, req.State)

	for _, entity := range dataset.Entities() {
		if !req.StreamEnabled(entity) {
			continue
		}

		records := dataset.sorted(entity)
		start := 0
		if position, ok := cursor.Decode[cursor.UpdatedAtOffset](ctx, state[entity]); ok {
			start = startIndex(records, position)
		}
		log.Trace("reading entity", "entity", entity, "from", start, "records", len(records))

		fetch := func(_ context.Context, token string) ([]int, string, error) {
			from, err := strconv.Atoi(token)
			if err != nil {
				return nil, "", fmt.Errorf("invalid page token %q: %w", token, err)
			}
			end := min(from+c.pageSize, len(records))
			indexes := make([]int, 0, end-from)
			for idx := from; idx < end; idx++ {
				indexes = append(indexes, idx)
			}
			next := ""
			if end < len(records) {
				next = strconv.Itoa(end)
			}
			return indexes, next, nil
		}

		emit := func(ctx context.Context, indexes []int, _ string) error {
			if len(indexes) == 0 {
				return nil
			}
			for _, idx := range indexes {
				record := records[idx]
				if err := link.Send(ctx, out, operation.NewData(recordID(record), entity, record, c.name)); err != nil {
					return err
				}
			}
			if err := link.Send(ctx, out, operation.NewCommit()); err != nil {
				return err
			}

			position := positionAfter(records, indexes[len(indexes)-1]+1)
			state = state.With(entity, cursor.Encode(position))
			return link.Send(ctx, out, operation.NewStateComplete(state.Raw(), nil))
		}

		if err := source.Paginate(ctx, strconv.Itoa(start), fetch, emit); err != nil {
			return fmt.Errorf("sandbox %s: %w", entity, err)
		}
	}

	return nil
}

// DestinationSync implements connector.Destination recording the written records under
// the connection id.
func (c *Connector) DestinationSync(_ context.Context, req connector.DestinationRequest) (link.Link, error) {
	connectionID := req.Connection.ID
	return destination.Batch(destination.BatchOptions{ConnectorName: c.name, Size: c.batchSize}, func(_ context.Context, records []destination.Record) error {
		c.lock.Lock()
		defer c.lock.Unlock()
		c.written[connectionID] = append(c.written[connectionID], records...)
		return nil
	}), nil
}

// Written returns the records written to the destination connection.
func (c *Connector) Written(connectionID string) []destination.Record {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]destination.Record(nil), c.written[connectionID]...)
}

// Adapter implements connector.Adapter.
func (c *Connector) Adapter() any {
	return &adapter{connector: c}
}
