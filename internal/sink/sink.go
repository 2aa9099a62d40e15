// Package sink persists flattened file relations into concrete backends.
// Implementations: KuzuSink (graph database), SQLiteSink (relational
// backup), JSONSink (portable dump), MemSink (testing).
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/grovedb/grove/internal/ingest"
)

// Sink consumes one file's relations at a time. WriteFile must persist all
// three relations or none; delivery order across files is unspecified, so
// implementations may be called concurrently and must serialize internally
// if their backend requires it.
type Sink interface {
	io.Closer

	// Init prepares the backend (schema creation etc.). Called once before
	// any WriteFile.
	Init(ctx context.Context) error

	// WriteFile persists the full replacement set for one path.
	WriteFile(ctx context.Context, rel *ingest.FileRelations) error
}

// WriteError reports a backend that failed to persist one file's relations.
// Other files and other sinks are unaffected.
type WriteError struct {
	Sink string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s: write %s: %v", e.Sink, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
