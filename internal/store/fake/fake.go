// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mia-platform/unisync/internal/store"
)

var _ store.Store = &Store{}

// Store is an in-memory store.Store. PatchedConnections records every connection patch in
// order so tests can check when settings were persisted.
type Store struct {
	tb   testing.TB
	lock sync.Mutex

	orgs        map[string]store.Org
	connections map[string]store.Connection
	pipelines   map[string]store.Pipeline
	runs        map[string]store.Run

	PatchedConnections []store.ConnectionPatch
	PipelinePatches    []store.PipelinePatch
}

func NewStore(tb testing.TB) *Store {
	tb.Helper()
	return &Store{
		tb:          tb,
		orgs:        make(map[string]store.Org),
		connections: make(map[string]store.Connection),
		pipelines:   make(map[string]store.Pipeline),
		runs:        make(map[string]store.Run),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
}

func (s *Store) GetOrg(_ context.Context, id string) (store.Org, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return store.Org{}, notFound("org", id)
	}
	return org, nil
}

func (s *Store) PutOrg(_ context.Context, org store.Org) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if org.ID == "" {
		return fmt.Errorf("%w: org id is required", store.ErrInvalidResource)
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *Store) GetConnection(_ context.Context, id string) (store.Connection, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	connection, ok := s.connections[id]
	if !ok {
		return store.Connection{}, notFound("connection", id)
	}
	return cloneConnection(connection), nil
}

func (s *Store) CreateConnection(_ context.Context, connection store.Connection) (store.Connection, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if connection.ConnectorName == "" {
		return store.Connection{}, fmt.Errorf("%w: connector name is required", store.ErrInvalidResource)
	}
	if connection.ID == "" {
		connection.ID = store.NewID("conn")
	}

	now := time.Now().UTC()
	connection.CreatedAt = now
	connection.UpdatedAt = now
	s.connections[connection.ID] = cloneConnection(connection)
	return connection, nil
}

func (s *Store) PatchConnection(_ context.Context, id string, patch store.ConnectionPatch) (store.Connection, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	connection, ok := s.connections[id]
	if !ok {
		return store.Connection{}, notFound("connection", id)
	}

	if patch.Settings != nil {
		connection.Settings = maps.Clone(patch.Settings)
	}
	if patch.Config != nil {
		connection.Config = maps.Clone(patch.Config)
	}
	if patch.Disabled != nil {
		connection.Disabled = *patch.Disabled
	}
	connection.UpdatedAt = time.Now().UTC()

	s.connections[id] = connection
	s.PatchedConnections = append(s.PatchedConnections, patch)
	return cloneConnection(connection), nil
}

func (s *Store) GetPipeline(_ context.Context, id string) (store.Pipeline, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pipeline, ok := s.pipelines[id]
	if !ok {
		return store.Pipeline{}, notFound("pipeline", id)
	}
	return pipeline, nil
}

func (s *Store) ListPipelinesBySource(_ context.Context, sourceID string) ([]store.Pipeline, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pipelines := make([]store.Pipeline, 0)
	for _, id := range slices.Sorted(maps.Keys(s.pipelines)) {
		if s.pipelines[id].SourceID == sourceID {
			pipelines = append(pipelines, s.pipelines[id])
		}
	}
	return pipelines, nil
}

func (s *Store) CreatePipeline(_ context.Context, pipeline store.Pipeline) (store.Pipeline, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if pipeline.SourceID == "" || pipeline.DestinationID == "" {
		return store.Pipeline{}, false, fmt.Errorf("%w: source and destination are required", store.ErrInvalidResource)
	}

	for _, existing := range s.pipelines {
		if existing.SourceID == pipeline.SourceID && existing.DestinationID == pipeline.DestinationID {
			return existing, false, nil
		}
	}

	if pipeline.ID == "" {
		pipeline.ID = store.NewID("pipe")
	}
	now := time.Now().UTC()
	pipeline.CreatedAt = now
	pipeline.UpdatedAt = now
	s.pipelines[pipeline.ID] = pipeline
	return pipeline, true, nil
}

func (s *Store) PatchPipeline(_ context.Context, id string, patch store.PipelinePatch) (store.Pipeline, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pipeline, ok := s.pipelines[id]
	if !ok {
		return store.Pipeline{}, notFound("pipeline", id)
	}

	if patch.Links != nil {
		pipeline.Links = *patch.Links
	}
	if patch.Streams != nil {
		pipeline.Streams = maps.Clone(patch.Streams)
	}
	if patch.SourceState != nil {
		pipeline.SourceState = slices.Clone(*patch.SourceState)
	}
	if patch.DestinationState != nil {
		pipeline.DestinationState = slices.Clone(*patch.DestinationState)
	}
	if patch.LastSyncStartedAt != nil {
		pipeline.LastSyncStartedAt = patch.LastSyncStartedAt
	}
	if patch.LastSyncCompletedAt != nil {
		pipeline.LastSyncCompletedAt = patch.LastSyncCompletedAt
	}
	pipeline.UpdatedAt = time.Now().UTC()

	s.pipelines[id] = pipeline
	s.PipelinePatches = append(s.PipelinePatches, patch)
	return pipeline, nil
}

func (s *Store) CreateRun(_ context.Context, run store.Run) (store.Run, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if run.ID == "" {
		run.ID = store.NewID("run")
	}
	if run.Status == "" {
		run.Status = store.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	s.runs[run.ID] = run
	return run, nil
}

func (s *Store) FinishRun(_ context.Context, id string, result store.RunResult) (store.Run, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, notFound("run", id)
	}
	if run.Status != store.RunStatusRunning {
		return run, fmt.Errorf("%w: %s", store.ErrRunAlreadyClosed, id)
	}

	endedAt := result.EndedAt
	run.Status = result.Status
	run.EndedAt = &endedAt
	run.ErrorKind = result.ErrorKind
	run.ErrorDetail = result.ErrorDetail
	run.Metrics = result.Metrics
	s.runs[id] = run
	return run, nil
}

func (s *Store) GetRun(_ context.Context, id string) (store.Run, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, notFound("run", id)
	}
	return run, nil
}

// Runs returns every run ordered by start time.
func (s *Store) Runs() []store.Run {
	s.lock.Lock()
	defer s.lock.Unlock()

	runs := slices.Collect(maps.Values(s.runs))
	slices.SortFunc(runs, func(a, b store.Run) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return runs
}

func cloneConnection(connection store.Connection) store.Connection {
	connection.Settings = cloneMap(connection.Settings)
	connection.Config = cloneMap(connection.Config)
	return connection
}

func cloneMap(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return maps.Clone(value)
	}
	var cloned map[string]any
	if err := json.Unmarshal(data, &cloned); err != nil {
		return maps.Clone(value)
	}
	return cloned
}
