package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/grovedb/grove/internal/ingest"
)

// Compile-time assertion: *JSONSink satisfies Sink.
var _ Sink = (*JSONSink)(nil)

// NamedRows is one relation in the JSON dump: column headers plus rows in
// column order.
type NamedRows struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// JSONSink accumulates every file's relations and writes a single JSON
// document on Close, keyed by relation name. The shape is self-describing
// so downstream loaders need no schema knowledge.
type JSONSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer // non-nil when the sink owns the destination file
	out    map[string]*NamedRows
}

// NewJSONFileSink creates path and writes the dump there on Close.
func NewJSONFileSink(path string) (*JSONSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("json sink: create %s: %w", path, err)
	}
	s := NewJSONSink(f)
	s.closer = f
	return s, nil
}

// NewJSONSink writes the dump to w when Close is called.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{
		w: w,
		out: map[string]*NamedRows{
			"nodes": {Headers: []string{"path", "id", "kind", "is_error", "source"}},
			"node_locations": {Headers: []string{
				"path", "id", "start_byte", "start_row", "start_column",
				"end_byte", "end_row", "end_column"}},
			"edges": {Headers: []string{"path", "parent", "child", "field"}},
		},
	}
}

// Init is a no-op; the document is built in memory.
func (s *JSONSink) Init(_ context.Context) error { return nil }

// WriteFile appends the batch's rows to the in-memory document.
func (s *JSONSink) WriteFile(_ context.Context, rel *ingest.FileRelations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.out["nodes"]
	for _, n := range rel.Nodes {
		nodes.Rows = append(nodes.Rows, []any{n.Path, n.ID, n.Kind, n.IsError, n.Source})
	}
	locs := s.out["node_locations"]
	for _, l := range rel.Locations {
		locs.Rows = append(locs.Rows, []any{
			l.Path, l.ID, l.StartByte, l.StartRow, l.StartColumn,
			l.EndByte, l.EndRow, l.EndColumn})
	}
	edges := s.out["edges"]
	for _, e := range rel.Edges {
		edges.Rows = append(edges.Rows, []any{e.Path, e.Parent, e.Child, e.Field})
	}
	return nil
}

// Close serializes the accumulated document to the writer.
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	if err := enc.Encode(s.out); err != nil {
		return fmt.Errorf("json sink: encode: %w", err)
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
