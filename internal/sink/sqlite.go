package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grovedb/grove/internal/ingest"
)

// Compile-time assertion: *SQLiteSink satisfies Sink.
var _ Sink = (*SQLiteSink)(nil)

// Schema is the relational schema for the three exported relations. The
// column names and nullability are the contract every backend encodes;
// SQLiteSink stores them verbatim.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	path     TEXT    NOT NULL,
	id       INTEGER NOT NULL,
	kind     TEXT    NOT NULL,
	is_error BOOLEAN NOT NULL,
	source   TEXT,
	PRIMARY KEY (path, id)
);

CREATE TABLE IF NOT EXISTS node_locations (
	path         TEXT    NOT NULL,
	id           INTEGER NOT NULL,
	start_byte   INTEGER NOT NULL,
	start_row    INTEGER NOT NULL,
	start_column INTEGER NOT NULL,
	end_byte     INTEGER NOT NULL,
	end_row      INTEGER NOT NULL,
	end_column   INTEGER NOT NULL,
	PRIMARY KEY (path, id)
);

CREATE TABLE IF NOT EXISTS edges (
	path   TEXT    NOT NULL,
	parent INTEGER NOT NULL,
	child  INTEGER NOT NULL,
	field  TEXT
);
`

// SQLiteSink writes the three relations to a SQLite database file. Each
// WriteFile runs in one transaction: prior rows for the path are deleted and
// the replacement set inserted, so re-processing a path is idempotent.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// database/sql pools connections; SQLite writers must not interleave.
	db.SetMaxOpenConns(1)
	return &SQLiteSink{db: db}, nil
}

// Init creates the three tables if they do not exist.
func (s *SQLiteSink) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// WriteFile replaces all rows for rel.Path atomically.
func (s *SQLiteSink) WriteFile(ctx context.Context, rel *ingest.FileRelations) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Sink: "sqlite", Path: rel.Path, Err: err}
	}
	if err := s.writeTx(ctx, tx, rel); err != nil {
		tx.Rollback()
		return &WriteError{Sink: "sqlite", Path: rel.Path, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &WriteError{Sink: "sqlite", Path: rel.Path, Err: err}
	}
	return nil
}

func (s *SQLiteSink) writeTx(ctx context.Context, tx *sql.Tx, rel *ingest.FileRelations) error {
	for _, table := range []string{"nodes", "node_locations", "edges"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE path = ?", rel.Path); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (path, id, kind, is_error, source) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for _, n := range rel.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, n.Path, n.ID, n.Kind, n.IsError, n.Source); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}

	locStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO node_locations
			(path, id, start_byte, start_row, start_column, end_byte, end_row, end_column)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer locStmt.Close()
	for _, l := range rel.Locations {
		if _, err := locStmt.ExecContext(ctx,
			l.Path, l.ID, l.StartByte, l.StartRow, l.StartColumn,
			l.EndByte, l.EndRow, l.EndColumn); err != nil {
			return fmt.Errorf("insert location %d: %w", l.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO edges (path, parent, child, field) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, e := range rel.Edges {
		if _, err := edgeStmt.ExecContext(ctx, e.Path, e.Parent, e.Child, e.Field); err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", e.Parent, e.Child, err)
		}
	}

	return nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error { return s.db.Close() }
