// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package events publishes the outcome of sync runs to the configured message broker.
// Emission is fire and forget: a failed publish is logged and never fails the run.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/metrics"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	loggerName = "unisync:events"

	SyncCompleted = "sync.completed"
	SyncFailed    = "sync.failed"

	defaultPublishTimeout = 10 * time.Second
)

// Payload describes a finished run.
type Payload struct {
	PipelineID    string           `json:"pipeline_id"`
	SourceID      string           `json:"source_id"`
	DestinationID string           `json:"destination_id"`
	RunID         string           `json:"run_id"`
	Result        store.RunStatus  `json:"result"`
	ErrorKind     string           `json:"error_kind,omitempty"`
	ErrorDetail   string           `json:"error_detail,omitempty"`
	Metrics       store.RunMetrics `json:"metrics"`
}

// Event is the message handed to a Publisher.
type Event struct {
	Name      string    `json:"name"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   Payload   `json:"payload"`
}

// Key partitions the events of a pipeline together.
func (e Event) Key() string {
	return e.Payload.PipelineID
}

// Encode returns the JSON message of the event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Emitter sends run events.
type Emitter interface {
	Emit(ctx context.Context, name string, payload Payload)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// Bus is the Emitter publishing through a Publisher.
type Bus struct {
	kind      string
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

// NewBus returns a Bus publishing with publisher; kind labels logs and metrics.
func NewBus(kind string, publisher Publisher) *Bus {
	return &Bus{
		kind:      kind,
		publisher: publisher,
		timeout:   defaultPublishTimeout,
		now:       time.Now,
	}
}

// Emit implements Emitter. The publish is bounded by a timeout and detached from the
// cancellation of ctx, so that the outcome of a cancelled run is still delivered.
func (b *Bus) Emit(ctx context.Context, name string, payload Payload) {
	log := logger.Named(ctx, loggerName)
	event := Event{Name: name, EmittedAt: b.now().UTC(), Payload: payload}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	if err := b.publisher.Publish(publishCtx, event); err != nil {
		metrics.EventsEmitted.WithLabelValues(b.kind, name, "error").Inc()
		log.Error("failed to publish event", "emitter", b.kind, "event", name, "runId", payload.RunID, "error", err.Error())
		return
	}

	metrics.EventsEmitted.WithLabelValues(b.kind, name, "success").Inc()
	log.Trace("event published", "emitter", b.kind, "event", name, "runId", payload.RunID)
}

// Close releases the publisher.
func (b *Bus) Close(ctx context.Context) error {
	return b.publisher.Close(ctx)
}
