// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/store"
)

// timestamps are stored as RFC 3339 text to keep them readable and sortable
const timeLayout = time.RFC3339Nano

type orgRow struct {
	ID                   string `db:"id"`
	DefaultDestinationID string `db:"default_destination_id"`
}

type connectionRow struct {
	ID            string `db:"id"`
	ConnectorName string `db:"connector_name"`
	OrgID         string `db:"org_id"`
	EndUserID     string `db:"end_user_id"`
	Settings      string `db:"settings"`
	Config        string `db:"config"`
	Disabled      bool   `db:"disabled"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

type pipelineRow struct {
	ID                  string         `db:"id"`
	SourceID            string         `db:"source_id"`
	DestinationID       string         `db:"destination_id"`
	Links               string         `db:"links"`
	Streams             string         `db:"streams"`
	SourceState         sql.NullString `db:"source_state"`
	DestinationState    sql.NullString `db:"destination_state"`
	LastSyncStartedAt   sql.NullString `db:"last_sync_started_at"`
	LastSyncCompletedAt sql.NullString `db:"last_sync_completed_at"`
	CreatedAt           string         `db:"created_at"`
	UpdatedAt           string         `db:"updated_at"`
}

type runRow struct {
	ID            string         `db:"id"`
	PipelineID    string         `db:"pipeline_id"`
	SourceID      string         `db:"source_id"`
	DestinationID string         `db:"destination_id"`
	Status        string         `db:"status"`
	StartedAt     string         `db:"started_at"`
	EndedAt       sql.NullString `db:"ended_at"`
	ErrorKind     string         `db:"error_kind"`
	ErrorDetail   string         `db:"error_detail"`
	Metrics       string         `db:"metrics"`
}

func newConnectionRow(connection store.Connection) (connectionRow, error) {
	settings, err := encodeJSON(connection.Settings, "{}")
	if err != nil {
		return connectionRow{}, fmt.Errorf("failed to encode settings of connection %s: %w", connection.ID, err)
	}
	config, err := encodeJSON(connection.Config, "{}")
	if err != nil {
		return connectionRow{}, fmt.Errorf("failed to encode config of connection %s: %w", connection.ID, err)
	}

	return connectionRow{
		ID:            connection.ID,
		ConnectorName: connection.ConnectorName,
		OrgID:         connection.OrgID,
		EndUserID:     connection.EndUserID,
		Settings:      settings,
		Config:        config,
		Disabled:      connection.Disabled,
		CreatedAt:     formatTime(connection.CreatedAt),
		UpdatedAt:     formatTime(connection.UpdatedAt),
	}, nil
}

func (r connectionRow) connection() (store.Connection, error) {
	connection := store.Connection{
		ID:            r.ID,
		ConnectorName: r.ConnectorName,
		OrgID:         r.OrgID,
		EndUserID:     r.EndUserID,
		Disabled:      r.Disabled,
		CreatedAt:     parseTime(r.CreatedAt),
		UpdatedAt:     parseTime(r.UpdatedAt),
	}

	if err := decodeJSON(r.Settings, &connection.Settings); err != nil {
		return store.Connection{}, fmt.Errorf("failed to decode settings of connection %s: %w", r.ID, err)
	}
	if err := decodeJSON(r.Config, &connection.Config); err != nil {
		return store.Connection{}, fmt.Errorf("failed to decode config of connection %s: %w", r.ID, err)
	}
	if len(connection.Settings) == 0 {
		connection.Settings = nil
	}
	if len(connection.Config) == 0 {
		connection.Config = nil
	}
	return connection, nil
}

func newPipelineRow(pipeline store.Pipeline) (pipelineRow, error) {
	links, err := encodeJSON(pipeline.Links, "[]")
	if err != nil {
		return pipelineRow{}, fmt.Errorf("failed to encode links of pipeline %s: %w", pipeline.ID, err)
	}
	streams, err := encodeJSON(pipeline.Streams, "{}")
	if err != nil {
		return pipelineRow{}, fmt.Errorf("failed to encode streams of pipeline %s: %w", pipeline.ID, err)
	}

	return pipelineRow{
		ID:                  pipeline.ID,
		SourceID:            pipeline.SourceID,
		DestinationID:       pipeline.DestinationID,
		Links:               links,
		Streams:             streams,
		SourceState:         nullRaw(pipeline.SourceState),
		DestinationState:    nullRaw(pipeline.DestinationState),
		LastSyncStartedAt:   nullTime(pipeline.LastSyncStartedAt),
		LastSyncCompletedAt: nullTime(pipeline.LastSyncCompletedAt),
		CreatedAt:           formatTime(pipeline.CreatedAt),
		UpdatedAt:           formatTime(pipeline.UpdatedAt),
	}, nil
}

func (r pipelineRow) pipeline() (store.Pipeline, error) {
	pipeline := store.Pipeline{
		ID:                  r.ID,
		SourceID:            r.SourceID,
		DestinationID:       r.DestinationID,
		LastSyncStartedAt:   timeOrNil(r.LastSyncStartedAt),
		LastSyncCompletedAt: timeOrNil(r.LastSyncCompletedAt),
		CreatedAt:           parseTime(r.CreatedAt),
		UpdatedAt:           parseTime(r.UpdatedAt),
	}

	var links []link.Config
	if err := decodeJSON(r.Links, &links); err != nil {
		return store.Pipeline{}, fmt.Errorf("failed to decode links of pipeline %s: %w", r.ID, err)
	}
	if len(links) > 0 {
		pipeline.Links = links
	}
	var streams map[string]bool
	if err := decodeJSON(r.Streams, &streams); err != nil {
		return store.Pipeline{}, fmt.Errorf("failed to decode streams of pipeline %s: %w", r.ID, err)
	}
	if len(streams) > 0 {
		pipeline.Streams = streams
	}
	if r.SourceState.Valid {
		pipeline.SourceState = json.RawMessage(r.SourceState.String)
	}
	if r.DestinationState.Valid {
		pipeline.DestinationState = json.RawMessage(r.DestinationState.String)
	}
	return pipeline, nil
}

func newRunRow(run store.Run) (runRow, error) {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return runRow{}, fmt.Errorf("failed to encode metrics of run %s: %w", run.ID, err)
	}

	return runRow{
		ID:            run.ID,
		PipelineID:    run.PipelineID,
		SourceID:      run.SourceID,
		DestinationID: run.DestinationID,
		Status:        string(run.Status),
		StartedAt:     formatTime(run.StartedAt),
		EndedAt:       nullTime(run.EndedAt),
		ErrorKind:     run.ErrorKind,
		ErrorDetail:   run.ErrorDetail,
		Metrics:       string(metrics),
	}, nil
}

func (r runRow) run() (store.Run, error) {
	run := store.Run{
		ID:            r.ID,
		PipelineID:    r.PipelineID,
		SourceID:      r.SourceID,
		DestinationID: r.DestinationID,
		Status:        store.RunStatus(r.Status),
		StartedAt:     parseTime(r.StartedAt),
		EndedAt:       timeOrNil(r.EndedAt),
		ErrorKind:     r.ErrorKind,
		ErrorDetail:   r.ErrorDetail,
	}
	if err := decodeJSON(r.Metrics, &run.Metrics); err != nil {
		return store.Run{}, fmt.Errorf("failed to decode metrics of run %s: %w", r.ID, err)
	}
	return run, nil
}

func encodeJSON(value any, empty string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func decodeJSON(data string, target any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), target)
}

func nullRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timeOrNil(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t := parseTime(value.String)
	return &t
}
