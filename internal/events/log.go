// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"context"

	"github.com/mia-platform/unisync/internal/logger"
)

// LogPublisher writes the events in the process log.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event Event) error {
	logger.Named(ctx, loggerName).Info("sync event",
		"event", event.Name,
		"pipelineId", event.Payload.PipelineID,
		"runId", event.Payload.RunID,
		"result", string(event.Payload.Result),
		"errorKind", event.Payload.ErrorKind,
		"data", event.Payload.Metrics.Data,
	)
	return nil
}

func (LogPublisher) Close(context.Context) error {
	return nil
}
