package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/grovedb/grove/internal/ingest"
)

// errInjected is the failure returned for a MemSink's FailPath.
var errInjected = errors.New("injected write failure")

// Compile-time assertion: *MemSink satisfies Sink.
var _ Sink = (*MemSink)(nil)

// MemSink collects relations in memory. Thread-safe; used by tests and as a
// staging area for accumulating backends.
type MemSink struct {
	mu    sync.RWMutex
	files map[string]*ingest.FileRelations

	// FailPath, when non-empty, makes WriteFile fail for that path. Lets
	// tests exercise per-file sink error handling.
	FailPath string
}

// NewMemSink returns an initialized MemSink ready for use.
func NewMemSink() *MemSink {
	return &MemSink{files: make(map[string]*ingest.FileRelations)}
}

// Init is a no-op for the in-memory sink.
func (m *MemSink) Init(_ context.Context) error { return nil }

// WriteFile stores the batch keyed by path. Re-writing a path replaces the
// previous set, mirroring the full-replacement semantics real backends get.
func (m *MemSink) WriteFile(_ context.Context, rel *ingest.FileRelations) error {
	if m.FailPath != "" && rel.Path == m.FailPath {
		return &WriteError{Sink: "mem", Path: rel.Path, Err: errInjected}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[rel.Path] = rel
	return nil
}

// File returns the stored batch for path, or nil.
func (m *MemSink) File(path string) *ingest.FileRelations {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files[path]
}

// FileCount returns how many paths have been written.
func (m *MemSink) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Close is a no-op for the in-memory sink.
func (m *MemSink) Close() error { return nil }
