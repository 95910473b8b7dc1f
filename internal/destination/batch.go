// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package destination

import (
	"context"
	"fmt"
	"time"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/metrics"
	"github.com/mia-platform/unisync/internal/operation"
)

const (
	loggerName = "unisync:destination"

	DefaultBatchSize = 500
)

// WriteFunc durably writes a batch of records. Records keep the stream order.
type WriteFunc func(ctx context.Context, records []Record) error

// BatchOptions configure a Batch link.
type BatchOptions struct {
	// ConnectorName labels the flush metric.
	ConnectorName string
	// Size is the number of records that triggers a flush, DefaultBatchSize when zero.
	Size int
	// Now returns the operation time of the records, time.Now when nil.
	Now func() time.Time
}

// Batch returns the link of a destination writing records with write. Data operations
// are buffered and consumed; the buffer is flushed when it is full, before a commit,
// before a complete stateUpdate and at the end of the stream. Every other operation is
// forwarded once the data preceding it has been written.
func Batch(opts BatchOptions, write WriteFunc) link.Link {
	size := opts.Size
	if size <= 0 {
		size = DefaultBatchSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		log := logger.Named(ctx, loggerName)
		buffer := make([]Record, 0, size)

		flush := func(reason string) error {
			if len(buffer) == 0 {
				return nil
			}

			log.Debug("flushing records", "connectorName", opts.ConnectorName, "records", len(buffer), "reason", reason)
			if err := write(ctx, buffer); err != nil {
				return fmt.Errorf("writing %d records: %w", len(buffer), err)
			}
			metrics.DestinationFlushes.WithLabelValues(opts.ConnectorName).Inc()
			buffer = make([]Record, 0, size)
			return nil
		}

		for op := range in {
			switch {
			case op.Type == operation.TypeData && op.Data != nil:
				buffer = append(buffer, RecordFromData(*op.Data, now()))
				if len(buffer) >= size {
					if err := flush("size"); err != nil {
						return err
					}
				}
				continue
			case op.Type == operation.TypeCommit:
				if err := flush("commit"); err != nil {
					return err
				}
			case op.Type == operation.TypeStateUpdate && op.StateUpdate != nil && op.StateUpdate.Subtype == operation.StateComplete:
				if err := flush("state"); err != nil {
					return err
				}
			}

			if err := link.Send(ctx, out, op); err != nil {
				return err
			}
		}

		return flush("end")
	}
}
