// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package writer implements a destination printing the committed records as newline
// delimited JSON.
package writer

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/destination"
	"github.com/mia-platform/unisync/internal/link"
)

const Name = "writer"

var _ connector.Destination = &Connector{}

// Connector writes to a shared io.Writer; concurrent runs never interleave a batch.
type Connector struct {
	writer io.Writer

	lock sync.Mutex
}

func New(w io.Writer) *Connector {
	return &Connector{
		writer: w,
	}
}

func (c *Connector) Name() string {
	return Name
}

// DestinationSync implements connector.Destination. Records are flushed on every commit.
func (c *Connector) DestinationSync(_ context.Context, _ connector.DestinationRequest) (link.Link, error) {
	return destination.Batch(destination.BatchOptions{ConnectorName: Name}, c.write), nil
}

func (c *Connector) write(_ context.Context, records []destination.Record) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	encoder := json.NewEncoder(c.writer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}
