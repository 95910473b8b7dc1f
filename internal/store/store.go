// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package store defines the persisted resources of a sync deployment (organizations,
// connections, pipelines and runs) and the Store contract used by the orchestrator.
// Implementations must be read-after-write consistent within a process.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mia-platform/unisync/internal/link"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidResource  = errors.New("invalid resource")
	ErrRunAlreadyClosed = errors.New("run already finished")
)

// Org owns connections. DefaultDestinationID is the connection used as database sink
// when a connection has no pipeline.
type Org struct {
	ID                   string `json:"id" yaml:"id"`
	DefaultDestinationID string `json:"defaultDestinationId,omitempty" yaml:"defaultDestinationId,omitempty"`
}

// Connection is a configured instance of a connector.
type Connection struct {
	ID            string         `json:"id" yaml:"id"`
	ConnectorName string         `json:"connectorName" yaml:"connectorName"`
	OrgID         string         `json:"orgId,omitempty" yaml:"orgId,omitempty"`
	EndUserID     string         `json:"endUserId,omitempty" yaml:"endUserId,omitempty"`
	Settings      map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Disabled      bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time      `json:"updatedAt" yaml:"-"`
}

// ConnectionPatch lists the mutable fields of a Connection; nil fields are unchanged.
type ConnectionPatch struct {
	Settings map[string]any
	Config   map[string]any
	Disabled *bool
}

// Pipeline moves the records of a source connection to a destination connection.
// SourceState and DestinationState are opaque blobs owned by the connectors.
type Pipeline struct {
	ID                  string          `json:"id" yaml:"id"`
	SourceID            string          `json:"sourceId" yaml:"sourceId"`
	DestinationID       string          `json:"destinationId" yaml:"destinationId"`
	Links               []link.Config   `json:"links,omitempty" yaml:"links,omitempty"`
	Streams             map[string]bool `json:"streams,omitempty" yaml:"streams,omitempty"`
	SourceState         json.RawMessage `json:"sourceState,omitempty" yaml:"-"`
	DestinationState    json.RawMessage `json:"destinationState,omitempty" yaml:"-"`
	LastSyncStartedAt   *time.Time      `json:"lastSyncStartedAt,omitempty" yaml:"-"`
	LastSyncCompletedAt *time.Time      `json:"lastSyncCompletedAt,omitempty" yaml:"-"`
	CreatedAt           time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt           time.Time       `json:"updatedAt" yaml:"-"`
}

// PipelinePatch lists the mutable fields of a Pipeline; nil fields are unchanged.
type PipelinePatch struct {
	Links               *[]link.Config
	Streams             map[string]bool
	SourceState         *json.RawMessage
	DestinationState    *json.RawMessage
	LastSyncStartedAt   *time.Time
	LastSyncCompletedAt *time.Time
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunMetrics counts the operations seen by a run.
type RunMetrics struct {
	Data         int `json:"data"`
	ResoUpdates  int `json:"resoUpdates"`
	StateUpdates int `json:"stateUpdates"`
	Commits      int `json:"commits"`
	Ready        int `json:"ready"`
}

// Run is the record of one pipeline execution.
type Run struct {
	ID            string     `json:"id"`
	PipelineID    string     `json:"pipelineId"`
	SourceID      string     `json:"sourceId"`
	DestinationID string     `json:"destinationId"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	ErrorKind     string     `json:"errorKind,omitempty"`
	ErrorDetail   string     `json:"errorDetail,omitempty"`
	Metrics       RunMetrics `json:"metrics"`
}

// RunResult is the terminal write of a Run.
type RunResult struct {
	Status      RunStatus
	EndedAt     time.Time
	ErrorKind   string
	ErrorDetail string
	Metrics     RunMetrics
}

// Store persists the resources. Every method returns ErrNotFound for missing ids.
type Store interface {
	GetOrg(ctx context.Context, id string) (Org, error)
	PutOrg(ctx context.Context, org Org) error

	GetConnection(ctx context.Context, id string) (Connection, error)
	CreateConnection(ctx context.Context, connection Connection) (Connection, error)
	PatchConnection(ctx context.Context, id string, patch ConnectionPatch) (Connection, error)

	GetPipeline(ctx context.Context, id string) (Pipeline, error)
	ListPipelinesBySource(ctx context.Context, sourceID string) ([]Pipeline, error)
	// CreatePipeline is idempotent on the (source, destination) couple: when a pipeline
	// already links them it is returned with created set to false.
	CreatePipeline(ctx context.Context, pipeline Pipeline) (result Pipeline, created bool, err error)
	PatchPipeline(ctx context.Context, id string, patch PipelinePatch) (Pipeline, error)

	CreateRun(ctx context.Context, run Run) (Run, error)
	FinishRun(ctx context.Context, id string, result RunResult) (Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
}

// NewID returns a new resource id with the given prefix.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
