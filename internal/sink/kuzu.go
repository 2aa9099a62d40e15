//go:build cgo

package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/grovedb/grove/internal/ingest"
)

// Compile-time assertion: *KuzuSink satisfies Sink.
var _ Sink = (*KuzuSink)(nil)

// KuzuSink persists relations into a KuzuDB graph database: one SyntaxNode
// node table (location columns inlined) and one HAS_CHILD relationship table
// carrying the grammar field name. Requires CGO because the go-kuzu driver
// wraps KuzuDB's C library.
type KuzuSink struct {
	db   *kuzu.Database
	conn *kuzu.Connection
	mu   sync.Mutex // one writer at a time; the connection is not reentrant
}

// kuzuDDL defines the graph schema. The node table is keyed by "path:id"
// because KuzuDB primary keys are single-column.
var kuzuDDL = []string{
	`CREATE NODE TABLE IF NOT EXISTS SyntaxNode(
		key STRING,
		path STRING,
		id INT64,
		kind STRING,
		is_error BOOLEAN,
		source STRING,
		start_byte INT64,
		start_row INT64,
		start_column INT64,
		end_byte INT64,
		end_row INT64,
		end_column INT64,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_CHILD(FROM SyntaxNode TO SyntaxNode, field STRING)`,
}

// NewKuzuSink creates a KuzuSink backed by a file-based database at dbPath.
// KuzuDB creates the leaf directory itself for new databases.
func NewKuzuSink(dbPath string) (*KuzuSink, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuSink{db: db, conn: conn}, nil
}

// NewKuzuMemSink creates a KuzuSink backed by an in-memory database.
func NewKuzuMemSink() (*KuzuSink, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuSink{db: db, conn: conn}, nil
}

// Init creates the node and relationship tables if they do not exist.
func (s *KuzuSink) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range kuzuDDL {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// WriteFile replaces the subgraph for rel.Path in one transaction.
func (s *KuzuSink) WriteFile(_ context.Context, rel *ingest.FileRelations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.run("BEGIN TRANSACTION"); err != nil {
		return &WriteError{Sink: "kuzu", Path: rel.Path, Err: err}
	}
	if err := s.writeLocked(rel); err != nil {
		if rbErr := s.run("ROLLBACK"); rbErr != nil {
			err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return &WriteError{Sink: "kuzu", Path: rel.Path, Err: err}
	}
	if err := s.run("COMMIT"); err != nil {
		return &WriteError{Sink: "kuzu", Path: rel.Path, Err: err}
	}
	return nil
}

func (s *KuzuSink) writeLocked(rel *ingest.FileRelations) error {
	if err := s.exec(
		"MATCH (n:SyntaxNode {path: $path}) DETACH DELETE n",
		map[string]any{"path": rel.Path},
	); err != nil {
		return fmt.Errorf("clear path: %w", err)
	}

	locByID := make(map[int64]ingest.Location, len(rel.Locations))
	for _, l := range rel.Locations {
		locByID[l.ID] = l
	}

	for _, n := range rel.Nodes {
		loc := locByID[n.ID]
		var source string
		if n.Source != nil {
			source = *n.Source
		}
		if err := s.exec(
			`CREATE (n:SyntaxNode {
				key: $key, path: $path, id: $id, kind: $kind,
				is_error: $is_error, source: $source,
				start_byte: $sb, start_row: $sr, start_column: $sc,
				end_byte: $eb, end_row: $er, end_column: $ec
			})`,
			map[string]any{
				"key": nodeKey(n.Path, n.ID), "path": n.Path, "id": n.ID,
				"kind": n.Kind, "is_error": n.IsError, "source": source,
				"sb": loc.StartByte, "sr": loc.StartRow, "sc": loc.StartColumn,
				"eb": loc.EndByte, "er": loc.EndRow, "ec": loc.EndColumn,
			},
		); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}

	for _, e := range rel.Edges {
		var field string
		if e.Field != nil {
			field = *e.Field
		}
		if err := s.exec(
			`MATCH (a:SyntaxNode {key: $parent}), (b:SyntaxNode {key: $child})
			 CREATE (a)-[:HAS_CHILD {field: $field}]->(b)`,
			map[string]any{
				"parent": nodeKey(e.Path, e.Parent),
				"child":  nodeKey(e.Path, e.Child),
				"field":  field,
			},
		); err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", e.Parent, e.Child, err)
		}
	}

	return nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// run executes a statement without parameters, discarding the result.
func (s *KuzuSink) run(cypher string) error {
	res, err := s.conn.Query(cypher)
	if err != nil {
		return err
	}
	res.Close()
	return nil
}

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuSink) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	res.Close()
	return nil
}

// queryRows runs a Cypher statement and collects every result row as a []any
// in column order.
func (s *KuzuSink) queryRows(cypher string) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Query(cypher)
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// nodeKey produces the single-column primary key "path:id".
func nodeKey(path string, id int64) string {
	return fmt.Sprintf("%s:%d", path, id)
}
