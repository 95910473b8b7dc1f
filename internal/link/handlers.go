// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"context"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/operation"
)

// Handler replaces one operation with zero or more operations. Returning no operation
// drops the input.
type Handler func(ctx context.Context, op operation.Operation) ([]operation.Operation, error)

// Handlers holds one optional Handler per operation type.
type Handlers struct {
	Data        Handler
	ResoUpdate  Handler
	StateUpdate Handler
	Ready       Handler
	Commit      Handler
}

func (h Handlers) forType(t operation.Type) Handler {
	switch t {
	case operation.TypeData:
		return h.Data
	case operation.TypeResoUpdate:
		return h.ResoUpdate
	case operation.TypeStateUpdate:
		return h.StateUpdate
	case operation.TypeReady:
		return h.Ready
	case operation.TypeCommit:
		return h.Commit
	}

	return nil
}

// Handle dispatches every operation to the handler registered for its type; operations
// without a handler pass through unchanged. Handlers run one at a time in stream order
// and the operations they return are emitted before the next input is read.
func Handle(handlers Handlers) Link {
	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		for op := range in {
			handler := handlers.forType(op.Type)
			if handler == nil {
				if err := Send(ctx, out, op); err != nil {
					return err
				}
				continue
			}

			results, err := handler(ctx, op)
			if err != nil {
				return err
			}
			for _, result := range results {
				if err := Send(ctx, out, result); err != nil {
					return err
				}
			}
		}

		return nil
	}
}

// MapData rewrites every data operation with fn; the other operations pass through.
func MapData(fn func(ctx context.Context, data operation.Data) (operation.Data, error)) Link {
	return Handle(Handlers{
		Data: func(ctx context.Context, op operation.Operation) ([]operation.Operation, error) {
			data, err := fn(ctx, *op.Clone().Data)
			if err != nil {
				return nil, err
			}

			op.Data = &data
			return []operation.Operation{op}, nil
		},
	})
}

// Tap calls observe for every operation and passes it through unchanged.
func Tap(observe func(ctx context.Context, op operation.Operation)) Link {
	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		for op := range in {
			observe(ctx, op)
			if err := Send(ctx, out, op); err != nil {
				return err
			}
		}
		return nil
	}
}

// Log writes every operation to the context logger at level. Entities are logged only
// at TRACE level.
func Log(level logger.Level) Link {
	return Tap(func(ctx context.Context, op operation.Operation) {
		log := logger.Named(ctx, loggerName)
		args := []any{"type", string(op.Type), "operation", op.String()}
		if level == logger.TRACE && op.Data != nil {
			args = append(args, "entity", op.Data.Entity)
		}
		log.Log(level, "operation", args...)
	})
}
