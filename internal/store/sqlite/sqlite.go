// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package sqlite implements store.Store on a SQLite database. The schema is kept up to
// date with embedded migrations every time the database is opened.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	loggerName = "unisync:store:sqlite"

	orgsTable        = "orgs"
	connectionsTable = "connections"
	pipelinesTable   = "pipelines"
	runsTable        = "runs"
)

var (
	connectionColumns = []string{"id", "connector_name", "org_id", "end_user_id", "settings", "config", "disabled", "created_at", "updated_at"}
	pipelineColumns   = []string{"id", "source_id", "destination_id", "links", "streams", "source_state", "destination_state", "last_sync_started_at", "last_sync_completed_at", "created_at", "updated_at"}
	runColumns        = []string{"id", "pipeline_id", "source_id", "destination_id", "status", "started_at", "ended_at", "error_kind", "error_detail", "metrics"}
)

var _ store.Store = &Store{}

// Store is a store.Store backed by SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens the database at path, creating it when missing, and applies the pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	log := logger.Named(ctx, loggerName)

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers: a single connection keeps transactions from failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db.DB, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetOrg(ctx context.Context, id string) (store.Org, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "default_destination_id").From(orgsTable).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row orgRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return store.Org{}, wrapNotFound(err, "org", id)
	}
	return store.Org{ID: row.ID, DefaultDestinationID: row.DefaultDestinationID}, nil
}

func (s *Store) PutOrg(ctx context.Context, org store.Org) error {
	if org.ID == "" {
		return fmt.Errorf("%w: org id is required", store.ErrInvalidResource)
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto(orgsTable).Cols("id", "default_destination_id").Values(org.ID, org.DefaultDestinationID)
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save org %s: %w", org.ID, err)
	}
	return nil
}

func (s *Store) GetConnection(ctx context.Context, id string) (store.Connection, error) {
	return getConnection(ctx, s.db, id)
}

func (s *Store) CreateConnection(ctx context.Context, connection store.Connection) (store.Connection, error) {
	if connection.ConnectorName == "" {
		return store.Connection{}, fmt.Errorf("%w: connector name is required", store.ErrInvalidResource)
	}
	if connection.ID == "" {
		connection.ID = store.NewID("conn")
	}
	now := time.Now().UTC()
	connection.CreatedAt = now
	connection.UpdatedAt = now

	row, err := newConnectionRow(connection)
	if err != nil {
		return store.Connection{}, err
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(connectionsTable).Cols(connectionColumns...).Values(
		row.ID, row.ConnectorName, row.OrgID, row.EndUserID, row.Settings, row.Config, row.Disabled, row.CreatedAt, row.UpdatedAt,
	)
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.Connection{}, fmt.Errorf("failed to create connection: %w", err)
	}
	return getConnection(ctx, s.db, connection.ID)
}

func (s *Store) PatchConnection(ctx context.Context, id string, patch store.ConnectionPatch) (store.Connection, error) {
	var patched store.Connection
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		connection, err := getConnection(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Settings != nil {
			connection.Settings = patch.Settings
		}
		if patch.Config != nil {
			connection.Config = patch.Config
		}
		if patch.Disabled != nil {
			connection.Disabled = *patch.Disabled
		}
		connection.UpdatedAt = time.Now().UTC()

		row, err := newConnectionRow(connection)
		if err != nil {
			return err
		}

		ub := sqlbuilder.SQLite.NewUpdateBuilder()
		ub.Update(connectionsTable).Set(
			ub.Assign("settings", row.Settings),
			ub.Assign("config", row.Config),
			ub.Assign("disabled", row.Disabled),
			ub.Assign("updated_at", row.UpdatedAt),
		).Where(ub.Equal("id", id))
		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update connection %s: %w", id, err)
		}

		patched, err = getConnection(ctx, tx, id)
		return err
	})
	return patched, err
}

func (s *Store) GetPipeline(ctx context.Context, id string) (store.Pipeline, error) {
	return getPipeline(ctx, s.db, id)
}

func (s *Store) ListPipelinesBySource(ctx context.Context, sourceID string) ([]store.Pipeline, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(pipelineColumns...).From(pipelinesTable).Where(sb.Equal("source_id", sourceID)).OrderBy("id")
	query, args := sb.Build()

	var rows []pipelineRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pipelines of %s: %w", sourceID, err)
	}

	pipelines := make([]store.Pipeline, 0, len(rows))
	for _, row := range rows {
		pipeline, err := row.pipeline()
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pipeline)
	}
	return pipelines, nil
}

func (s *Store) CreatePipeline(ctx context.Context, pipeline store.Pipeline) (store.Pipeline, bool, error) {
	if pipeline.SourceID == "" || pipeline.DestinationID == "" {
		return store.Pipeline{}, false, fmt.Errorf("%w: source and destination are required", store.ErrInvalidResource)
	}

	var result store.Pipeline
	var created bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		sb := sqlbuilder.SQLite.NewSelectBuilder()
		sb.Select(pipelineColumns...).From(pipelinesTable).Where(
			sb.Equal("source_id", pipeline.SourceID),
			sb.Equal("destination_id", pipeline.DestinationID),
		)
		query, args := sb.Build()

		var existing pipelineRow
		err := sqlx.GetContext(ctx, tx, &existing, query, args...)
		switch {
		case err == nil:
			result, err = existing.pipeline()
			return err
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up pipeline: %w", err)
		}

		if pipeline.ID == "" {
			pipeline.ID = store.NewID("pipe")
		}
		now := time.Now().UTC()
		pipeline.CreatedAt = now
		pipeline.UpdatedAt = now

		row, err := newPipelineRow(pipeline)
		if err != nil {
			return err
		}

		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto(pipelinesTable).Cols(pipelineColumns...).Values(
			row.ID, row.SourceID, row.DestinationID, row.Links, row.Streams, row.SourceState, row.DestinationState,
			row.LastSyncStartedAt, row.LastSyncCompletedAt, row.CreatedAt, row.UpdatedAt,
		)
		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}

		created = true
		result, err = getPipeline(ctx, tx, pipeline.ID)
		return err
	})
	return result, created, err
}

func (s *Store) PatchPipeline(ctx context.Context, id string, patch store.PipelinePatch) (store.Pipeline, error) {
	var patched store.Pipeline
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		pipeline, err := getPipeline(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Links != nil {
			pipeline.Links = *patch.Links
		}
		if patch.Streams != nil {
			pipeline.Streams = patch.Streams
		}
		if patch.SourceState != nil {
			pipeline.SourceState = *patch.SourceState
		}
		if patch.DestinationState != nil {
			pipeline.DestinationState = *patch.DestinationState
		}
		if patch.LastSyncStartedAt != nil {
			pipeline.LastSyncStartedAt = patch.LastSyncStartedAt
		}
		if patch.LastSyncCompletedAt != nil {
			pipeline.LastSyncCompletedAt = patch.LastSyncCompletedAt
		}
		pipeline.UpdatedAt = time.Now().UTC()

		row, err := newPipelineRow(pipeline)
		if err != nil {
			return err
		}

		ub := sqlbuilder.SQLite.NewUpdateBuilder()
		ub.Update(pipelinesTable).Set(
			ub.Assign("links", row.Links),
			ub.Assign("streams", row.Streams),
			ub.Assign("source_state", row.SourceState),
			ub.Assign("destination_state", row.DestinationState),
			ub.Assign("last_sync_started_at", row.LastSyncStartedAt),
			ub.Assign("last_sync_completed_at", row.LastSyncCompletedAt),
			ub.Assign("updated_at", row.UpdatedAt),
		).Where(ub.Equal("id", id))
		query, args := ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update pipeline %s: %w", id, err)
		}

		patched, err = getPipeline(ctx, tx, id)
		return err
	})
	return patched, err
}

func (s *Store) CreateRun(ctx context.Context, run store.Run) (store.Run, error) {
	if run.ID == "" {
		run.ID = store.NewID("run")
	}
	if run.Status == "" {
		run.Status = store.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	row, err := newRunRow(run)
	if err != nil {
		return store.Run{}, err
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(runsTable).Cols(runColumns...).Values(
		row.ID, row.PipelineID, row.SourceID, row.DestinationID, row.Status, row.StartedAt, row.EndedAt,
		row.ErrorKind, row.ErrorDetail, row.Metrics,
	)
	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.Run{}, fmt.Errorf("failed to create run: %w", err)
	}
	return getRun(ctx, s.db, run.ID)
}

func (s *Store) FinishRun(ctx context.Context, id string, result store.RunResult) (store.Run, error) {
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to encode run metrics: %w", err)
	}

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update(runsTable).Set(
		ub.Assign("status", string(result.Status)),
		ub.Assign("ended_at", formatTime(result.EndedAt)),
		ub.Assign("error_kind", result.ErrorKind),
		ub.Assign("error_detail", result.ErrorDetail),
		ub.Assign("metrics", string(metrics)),
	).Where(
		ub.Equal("id", id),
		ub.Equal("status", string(store.RunStatusRunning)),
	)
	query, args := ub.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to finish run %s: %w", id, err)
	}

	run, err := getRun(ctx, s.db, id)
	if err != nil {
		return store.Run{}, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return run, fmt.Errorf("%w: %s", store.ErrRunAlreadyClosed, id)
	}
	return run, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	return getRun(ctx, s.db, id)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}
		return err
	}
	return tx.Commit()
}

func getConnection(ctx context.Context, q sqlx.QueryerContext, id string) (store.Connection, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(connectionColumns...).From(connectionsTable).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row connectionRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return store.Connection{}, wrapNotFound(err, "connection", id)
	}
	return row.connection()
}

func getPipeline(ctx context.Context, q sqlx.QueryerContext, id string) (store.Pipeline, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(pipelineColumns...).From(pipelinesTable).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row pipelineRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return store.Pipeline{}, wrapNotFound(err, "pipeline", id)
	}
	return row.pipeline()
}

func getRun(ctx context.Context, q sqlx.QueryerContext, id string) (store.Run, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(runColumns...).From(runsTable).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row runRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return store.Run{}, wrapNotFound(err, "run", id)
	}
	return row.run()
}

func wrapNotFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
	}
	return fmt.Errorf("failed to read %s %s: %w", kind, id, err)
}
