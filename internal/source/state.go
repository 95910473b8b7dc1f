// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/mia-platform/unisync/internal/logger"
)

// State is the source state of connectors syncing several entities: the opaque cursor
// to resume from for each entity.
type State map[string]string

// DecodeState reads the persisted state of a source. A malformed state is logged and
// treated as empty, so the sync restarts from scratch.
func DecodeState(ctx context.Context, raw json.RawMessage) State {
	state := State{}
	if len(raw) == 0 {
		return state
	}

	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Named(ctx, loggerName).Warn("ignoring malformed source state", "error", err.Error())
		return State{}
	}
	return state
}

// With returns a copy of s where entity resumes from cursor. An empty cursor removes
// entity, so its next sync starts from scratch.
func (s State) With(entity, cursor string) State {
	updated := maps.Clone(s)
	if updated == nil {
		updated = State{}
	}
	if cursor == "" {
		delete(updated, entity)
		return updated
	}
	updated[entity] = cursor
	return updated
}

// Raw returns s as a state blob.
func (s State) Raw() json.RawMessage {
	if s == nil {
		return json.RawMessage(`{}`)
	}
	data, _ := json.Marshal(map[string]string(s))
	return data
}
