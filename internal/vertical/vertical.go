// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package vertical

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/metrics"
	"github.com/mia-platform/unisync/internal/tracing"
)

const loggerName = "unisync:vertical"

// Operation binds an operation name to the adapter interface implementing it.
type Operation struct {
	Name string
	// Object is the path segment exposing the operation on the unified API.
	Object string
	// PointRead is set for operations returning a single object by id.
	PointRead bool

	supports func(adapter any) bool
	invoke   func(ctx context.Context, adapter any, call Call) (any, error)
}

// List declares a list operation implemented by adapters satisfying A.
func List[A any, T any](name, object string, method func(adapter A, ctx context.Context, req Request[ListInput]) (Page[T], error)) Operation {
	return Operation{
		Name:   name,
		Object: object,
		supports: func(adapter any) bool {
			_, ok := adapter.(A)
			return ok
		},
		invoke: func(ctx context.Context, adapter any, call Call) (any, error) {
			input, ok := call.Input.(ListInput)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects a list input, got %T", ErrInvalidInput, name, call.Input)
			}
			return method(adapter.(A), ctx, Request[ListInput]{Instance: call.Instance, Input: input.WithDefaults(), Context: call.Context})
		},
	}
}

// Get declares a point read implemented by adapters satisfying A.
func Get[A any, T any](name, object string, method func(adapter A, ctx context.Context, req Request[GetInput]) (T, error)) Operation {
	return Operation{
		Name:      name,
		Object:    object,
		PointRead: true,
		supports: func(adapter any) bool {
			_, ok := adapter.(A)
			return ok
		},
		invoke: func(ctx context.Context, adapter any, call Call) (any, error) {
			input, ok := call.Input.(GetInput)
			if !ok || input.ID == "" {
				return nil, fmt.Errorf("%w: %s expects an id", ErrInvalidInput, name)
			}
			return method(adapter.(A), ctx, Request[GetInput]{Instance: call.Instance, Input: input, Context: call.Context})
		},
	}
}

// Call describes one dispatch.
type Call struct {
	ConnectorName string
	Operation     string
	Instance      any
	Input         any
	Context       Context
}

// Vertical is a set of operations and the adapters registered for them.
type Vertical struct {
	name       string
	operations map[string]Operation

	lock     sync.RWMutex
	adapters map[string]any
}

func New(name string, operations ...Operation) *Vertical {
	ops := make(map[string]Operation, len(operations))
	for _, op := range operations {
		ops[op.Name] = op
	}

	return &Vertical{
		name:       name,
		operations: ops,
		adapters:   make(map[string]any),
	}
}

func (v *Vertical) Name() string {
	return v.name
}

// Operations returns the operation names in alphabetical order.
func (v *Vertical) Operations() []string {
	return slices.Sorted(maps.Keys(v.operations))
}

// OperationFor returns the list operation, or the point read, exposed under object.
func (v *Vertical) OperationFor(object string, pointRead bool) (string, bool) {
	for _, op := range v.operations {
		if op.Object == object && op.PointRead == pointRead {
			return op.Name, true
		}
	}
	return "", false
}

// Register adds the adapter of a connector. The adapter must implement at least one
// operation of the vertical.
func (v *Vertical) Register(connectorName string, adapter any) error {
	if adapter == nil {
		return fmt.Errorf("%w: nil adapter for %s", ErrInvalidAdapter, connectorName)
	}

	if len(v.Implemented(adapter)) == 0 {
		return fmt.Errorf("%w: %T implements no %s operation", ErrInvalidAdapter, adapter, v.name)
	}

	v.lock.Lock()
	defer v.lock.Unlock()
	v.adapters[connectorName] = adapter
	return nil
}

// Implemented returns the operations adapter implements.
func (v *Vertical) Implemented(adapter any) []string {
	implemented := make([]string, 0, len(v.operations))
	for _, name := range v.Operations() {
		if v.operations[name].supports(adapter) {
			implemented = append(implemented, name)
		}
	}
	return implemented
}

// Connectors returns the connectors with a registered adapter.
func (v *Vertical) Connectors() []string {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return slices.Sorted(maps.Keys(v.adapters))
}

// Check reports whether the connector can serve operation without building any
// connector instance: ErrNotConfigured when it has no adapter, ErrNotImplemented when
// its adapter lacks the method.
func (v *Vertical) Check(connectorName, operation string) error {
	_, _, err := v.lookup(connectorName, operation)
	return err
}

func (v *Vertical) lookup(connectorName, operation string) (Operation, any, error) {
	op, ok := v.operations[operation]
	if !ok {
		return Operation{}, nil, fmt.Errorf("%w: %s/%s", ErrUnknownOperation, v.name, operation)
	}

	v.lock.RLock()
	adapter, ok := v.adapters[connectorName]
	v.lock.RUnlock()
	if !ok {
		return Operation{}, nil, fmt.Errorf("%w: %s has no %s adapter", ErrNotConfigured, connectorName, v.name)
	}
	if !op.supports(adapter) {
		return Operation{}, nil, fmt.Errorf("%w: %s does not support %s/%s", ErrNotImplemented, connectorName, v.name, operation)
	}
	return op, adapter, nil
}

// Dispatch invokes the operation on the adapter registered for the connector.
func (v *Vertical) Dispatch(ctx context.Context, call Call) (result any, err error) {
	op, adapter, err := v.lookup(call.ConnectorName, call.Operation)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "vertical.dispatch",
		attribute.String("vertical", v.name),
		attribute.String("operation", call.Operation),
		attribute.String("connector", call.ConnectorName),
	)
	start := time.Now()
	defer func() {
		resultLabel := "success"
		if err != nil {
			resultLabel = "error"
		}
		metrics.DispatchTotal.WithLabelValues(v.name, call.Operation, call.ConnectorName, resultLabel).Inc()
		metrics.DispatchDuration.WithLabelValues(v.name, call.Operation).Observe(time.Since(start).Seconds())
		tracing.End(span, err)
	}()

	logger.Named(ctx, loggerName).Debug("dispatching operation",
		"vertical", v.name,
		"operation", call.Operation,
		"connectorName", call.ConnectorName,
		"connectionId", call.Context.ConnectionID,
	)
	return op.invoke(ctx, adapter, call)
}
