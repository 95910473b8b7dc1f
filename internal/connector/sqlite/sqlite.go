// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package sqlite implements the default database destination: records are upserted in a
// SQLite table keyed by destination connection, source connection, entity and id, and
// tombstones delete them.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/destination"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/store"
)

const (
	Name       = "sqlite"
	loggerName = "unisync:connector:sqlite"

	recordsTable = "records"

	createRecordsTable = `CREATE TABLE IF NOT EXISTS records (
	connection_id TEXT NOT NULL,
	source_connection_id TEXT NOT NULL,
	entity TEXT NOT NULL,
	id TEXT NOT NULL,
	connector_name TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL,
	operation_time TEXT NOT NULL,
	PRIMARY KEY (connection_id, source_connection_id, entity, id)
)`
)

var (
	ErrMissingPath = errors.New("sqlite destination requires a database path")

	_ connector.Destination     = &Connector{}
	_ connector.InstanceFactory = &Connector{}
)

type settings struct {
	Path      string `env:"UNISYNC_SQLITE_DESTINATION_PATH" json:"path"`
	BatchSize int    `env:"UNISYNC_SQLITE_DESTINATION_BATCH_SIZE" envDefault:"500" json:"batchSize"`
}

// Connector is the sqlite destination.
type Connector struct {
	defaults settings
}

// New returns a Connector whose defaults are read from the environment. Connection
// settings override them.
func New() (*Connector, error) {
	defaults, err := env.ParseAs[settings]()
	if err != nil {
		return nil, err
	}
	return &Connector{defaults: defaults}, nil
}

func (c *Connector) Name() string {
	return Name
}

// Instance holds the database of one destination connection for a run.
type Instance struct {
	db        *sqlx.DB
	batchSize int
}

// NewInstance implements connector.InstanceFactory opening the database and creating the
// records table when missing.
func (c *Connector) NewInstance(ctx context.Context, connection store.Connection, _ connector.SettingsChanged) (any, error) {
	merged, err := connector.DecodeSettings[settings](connection)
	if err != nil {
		return nil, err
	}
	if merged.Path == "" {
		merged.Path = c.defaults.Path
	}
	if merged.BatchSize <= 0 {
		merged.BatchSize = c.defaults.BatchSize
	}
	if merged.Path == "" {
		return nil, ErrMissingPath
	}

	db, err := sqlx.Open("sqlite", merged.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open destination database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare destination database: %w", err)
	}

	logger.Named(ctx, loggerName).Debug("destination database ready", "connectionId", connection.ID, "path", merged.Path)
	return &Instance{db: db, batchSize: merged.BatchSize}, nil
}

// Close implements connector.Closable.
func (i *Instance) Close(context.Context) error {
	return i.db.Close()
}

// DestinationSync implements connector.Destination writing each batch in a transaction.
func (c *Connector) DestinationSync(_ context.Context, req connector.DestinationRequest) (link.Link, error) {
	instance, err := connector.InstanceAs[*Instance](req.Instance)
	if err != nil {
		return nil, err
	}

	connectionID := req.Connection.ID
	return destination.Batch(destination.BatchOptions{ConnectorName: Name, Size: instance.batchSize}, func(ctx context.Context, records []destination.Record) error {
		return instance.write(ctx, connectionID, records)
	}), nil
}

func (i *Instance) write(ctx context.Context, connectionID string, records []destination.Record) error {
	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, record := range records {
		query, args, err := recordStatement(connectionID, record)
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
		if err != nil {
			err = fmt.Errorf("failed to write %s/%s: %w", record.Entity, record.ID, err)
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return errors.Join(err, rollbackErr)
			}
			return err
		}
	}

	return tx.Commit()
}

// sourceConnectionID returns the connection that produced record. Records carrying no
// source connection are attributed to the destination itself.
func sourceConnectionID(connectionID string, record destination.Record) string {
	if record.ConnectionID != "" {
		return record.ConnectionID
	}
	return connectionID
}

func recordStatement(connectionID string, record destination.Record) (string, []any, error) {
	sourceID := sourceConnectionID(connectionID, record)
	if record.Deleted() {
		db := sqlbuilder.SQLite.NewDeleteBuilder()
		db.DeleteFrom(recordsTable).Where(
			db.Equal("connection_id", connectionID),
			db.Equal("source_connection_id", sourceID),
			db.Equal("entity", record.Entity),
			db.Equal("id", record.ID),
		)
		query, args := db.Build()
		return query, args, nil
	}

	data, err := json.Marshal(record.Data)
	if err != nil {
		return "", nil, fmt.Errorf("encoding data: %w", err)
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto(recordsTable).
		Cols("connection_id", "source_connection_id", "entity", "id", "connector_name", "data", "operation_time").
		Values(connectionID, sourceID, record.Entity, record.ID, record.ConnectorName, string(data), record.OperationTime)
	query, args := ib.Build()
	return query, args, nil
}

// Row is a record as stored in the destination database.
type Row struct {
	SourceConnectionID string `db:"source_connection_id"`
	Entity             string `db:"entity"`
	ID                 string `db:"id"`
	ConnectorName      string `db:"connector_name"`
	Data               string `db:"data"`
}

// Rows returns the records stored for connectionID ordered by entity, source connection
// and id.
func (i *Instance) Rows(ctx context.Context, connectionID string) ([]Row, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("source_connection_id", "entity", "id", "connector_name", "data").
		From(recordsTable).
		Where(sb.Equal("connection_id", connectionID)).
		OrderBy("entity", "source_connection_id", "id")
	query, args := sb.Build()

	rows := make([]Row, 0)
	if err := sqlx.SelectContext(ctx, i.db, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
