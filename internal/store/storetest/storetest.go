// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package storetest contains the behaviour every store.Store implementation must have.
package storetest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/store"
)

// Run exercises newStore against the store.Store contract. newStore must return an empty
// store on every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("orgs", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := t.Context()

		_, err := s.GetOrg(ctx, "org_1")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.PutOrg(ctx, store.Org{ID: "org_1", DefaultDestinationID: "conn_db"}))
		org, err := s.GetOrg(ctx, "org_1")
		require.NoError(t, err)
		assert.Equal(t, "conn_db", org.DefaultDestinationID)
	})

	t.Run("connections", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := t.Context()

		_, err := s.CreateConnection(ctx, store.Connection{})
		require.ErrorIs(t, err, store.ErrInvalidResource)

		created, err := s.CreateConnection(ctx, store.Connection{
			ConnectorName: "plaid",
			OrgID:         "org_1",
			Settings:      map[string]any{"accessToken": "old"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		patched, err := s.PatchConnection(ctx, created.ID, store.ConnectionPatch{Settings: map[string]any{"accessToken": "new"}})
		require.NoError(t, err)
		assert.Equal(t, "new", patched.Settings["accessToken"])

		// a write is visible to the very next read
		read, err := s.GetConnection(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"accessToken": "new"}, read.Settings)
		assert.Equal(t, "plaid", read.ConnectorName)
		assert.Equal(t, "org_1", read.OrgID)

		_, err = s.PatchConnection(ctx, "missing", store.ConnectionPatch{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("pipelines", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := t.Context()

		first, created, err := s.CreatePipeline(ctx, store.Pipeline{
			SourceID:      "conn_src",
			DestinationID: "conn_dst",
			Links:         []link.Config{{Name: "log"}, {Name: "singleTable", Options: link.Options{"table": "records"}}},
			Streams:       map[string]bool{"transaction": true},
		})
		require.NoError(t, err)
		require.True(t, created)

		again, created, err := s.CreatePipeline(ctx, store.Pipeline{SourceID: "conn_src", DestinationID: "conn_dst"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)

		_, _, err = s.CreatePipeline(ctx, store.Pipeline{SourceID: "conn_src"})
		require.ErrorIs(t, err, store.ErrInvalidResource)

		state := json.RawMessage(`{"last_id":"42"}`)
		startedAt := time.Date(2024, 6, 10, 15, 4, 5, 0, time.UTC)
		_, err = s.PatchPipeline(ctx, first.ID, store.PipelinePatch{SourceState: &state, LastSyncStartedAt: &startedAt})
		require.NoError(t, err)

		read, err := s.GetPipeline(ctx, first.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"last_id":"42"}`, string(read.SourceState))
		assert.Empty(t, read.DestinationState)
		require.NotNil(t, read.LastSyncStartedAt)
		assert.True(t, startedAt.Equal(*read.LastSyncStartedAt))
		assert.Equal(t, []link.Config{{Name: "log"}, {Name: "singleTable", Options: link.Options{"table": "records"}}}, read.Links)
		assert.Equal(t, map[string]bool{"transaction": true}, read.Streams)

		other, _, err := s.CreatePipeline(ctx, store.Pipeline{SourceID: "conn_src", DestinationID: "conn_other"})
		require.NoError(t, err)
		_, _, err = s.CreatePipeline(ctx, store.Pipeline{SourceID: "conn_unrelated", DestinationID: "conn_dst"})
		require.NoError(t, err)

		pipelines, err := s.ListPipelinesBySource(ctx, "conn_src")
		require.NoError(t, err)
		ids := make([]string, 0, len(pipelines))
		for _, pipeline := range pipelines {
			ids = append(ids, pipeline.ID)
		}
		assert.ElementsMatch(t, []string{first.ID, other.ID}, ids)

		_, err = s.GetPipeline(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("runs", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx := t.Context()

		run, err := s.CreateRun(ctx, store.Run{PipelineID: "pipe_1", SourceID: "conn_src", DestinationID: "conn_dst"})
		require.NoError(t, err)
		assert.Equal(t, store.RunStatusRunning, run.Status)
		assert.False(t, run.StartedAt.IsZero())

		endedAt := time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC)
		finished, err := s.FinishRun(ctx, run.ID, store.RunResult{
			Status:      store.RunStatusFailed,
			EndedAt:     endedAt,
			ErrorKind:   "REMOTE_ERROR",
			ErrorDetail: "unexpected status code 503",
			Metrics:     store.RunMetrics{Data: 3, Commits: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, store.RunStatusFailed, finished.Status)

		read, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, store.RunStatusFailed, read.Status)
		assert.Equal(t, "REMOTE_ERROR", read.ErrorKind)
		assert.Equal(t, store.RunMetrics{Data: 3, Commits: 1}, read.Metrics)
		require.NotNil(t, read.EndedAt)
		assert.True(t, endedAt.Equal(*read.EndedAt))

		_, err = s.FinishRun(ctx, run.ID, store.RunResult{Status: store.RunStatusCompleted, EndedAt: endedAt})
		require.ErrorIs(t, err, store.ErrRunAlreadyClosed)

		_, err = s.GetRun(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
