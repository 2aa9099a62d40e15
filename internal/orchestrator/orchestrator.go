// Package orchestrator drives the per-file pipeline: resolve the language,
// acquire the grammar, parse, flatten, and deliver the relations to every
// attached sink. Files are processed in parallel; failures are collected
// into a batch report instead of aborting the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grovedb/grove/internal/grammar"
	"github.com/grovedb/grove/internal/ingest"
	"github.com/grovedb/grove/internal/sink"
)

// Config holds runtime settings for one batch run.
type Config struct {
	// Workers bounds the number of files processed concurrently.
	// Zero or negative means one.
	Workers int

	// Language, when non-empty, forces every file through this grammar
	// instead of resolving by extension.
	Language string
}

// FileError records one failed file together with the language it resolved
// to (empty when resolution itself failed).
type FileError struct {
	Path     string
	Language string
	Err      error
}

// Report summarizes a batch run. Counts cover successfully exported files
// only; Errors holds one entry per failed file.
type Report struct {
	Files      int
	Succeeded  int
	Nodes      int
	Edges      int
	ErrorNodes int
	Errors     []FileError
}

// Orchestrator wires the registry and sinks into a file-parallel pipeline.
type Orchestrator struct {
	registry *grammar.Registry
	sinks    []sink.Sink
	cfg      Config
	logger   *zap.Logger
}

// New creates an Orchestrator. A nil logger disables logging.
func New(registry *grammar.Registry, sinks []sink.Sink, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		sinks:    sinks,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run processes every file and returns the batch report. The batch never
// aborts because of a single file: unknown languages, parse failures, and
// sink failures are recorded and the run continues. Cancelling ctx stops
// dispatching new files; in-flight parses run to completion.
func (o *Orchestrator) Run(ctx context.Context, files []string) *Report {
	report := &Report{Files: len(files)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rel, lang, err := o.processFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, FileError{Path: path, Language: lang, Err: err})
				o.logger.Error("file failed", zap.String("path", path), zap.Error(err))
				return nil // per-file failures never cancel the batch
			}
			report.Succeeded++
			report.Nodes += len(rel.Nodes)
			report.Edges += len(rel.Edges)
			report.ErrorNodes += rel.ErrorNodeCount()
			return nil
		})
	}
	g.Wait()

	o.logger.Info("batch complete",
		zap.Int("files", report.Files),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Errors)),
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
	)
	return report
}

// processFile runs resolve -> parse -> flatten -> deliver for one file and
// returns the flattened relations for accounting.
func (o *Orchestrator) processFile(ctx context.Context, path string) (*ingest.FileRelations, string, error) {
	lang := o.cfg.Language
	if lang == "" {
		var err error
		lang, err = o.registry.ResolveExtension(filepath.Ext(path))
		if err != nil {
			return nil, "", err
		}
	}

	g, err := o.registry.Resolve(lang)
	if err != nil {
		return nil, lang, err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, lang, &ingest.ParseError{Path: path, Err: err}
	}

	tree, err := ingest.ParseFile(g, path, source)
	if err != nil {
		return nil, lang, err
	}
	defer tree.Close()

	rel, err := ingest.Flatten(g, path, tree, source)
	if err != nil {
		return nil, lang, err
	}

	// One warning per error node so damaged regions are locatable from the
	// log alone. Locations are index-aligned with nodes.
	for i, n := range rel.Nodes {
		if !n.IsError {
			continue
		}
		loc := rel.Locations[i]
		o.logger.Warn("syntax error in source",
			zap.String("path", path),
			zap.Int64("start_row", loc.StartRow),
			zap.Int64("start_column", loc.StartColumn),
			zap.Int64("end_row", loc.EndRow),
			zap.Int64("end_column", loc.EndColumn),
		)
	}

	// All-or-nothing per sink; a failing sink does not block the others.
	var sinkErrs []error
	for _, s := range o.sinks {
		if err := s.WriteFile(ctx, rel); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	if len(sinkErrs) > 0 {
		return nil, lang, errors.Join(sinkErrs...)
	}

	o.logger.Debug("file exported",
		zap.String("path", path),
		zap.String("language", lang),
		zap.Int("nodes", len(rel.Nodes)),
		zap.Int("edges", len(rel.Edges)),
	)
	return rel, lang, nil
}

// Summary renders the report's failures as a human-readable list, one line
// per file, for end-of-run display.
func (r *Report) Summary() string {
	if len(r.Errors) == 0 {
		return fmt.Sprintf("%d/%d files exported (%d nodes, %d edges)",
			r.Succeeded, r.Files, r.Nodes, r.Edges)
	}
	out := fmt.Sprintf("%d/%d files exported (%d nodes, %d edges), %d failed:",
		r.Succeeded, r.Files, r.Nodes, r.Edges, len(r.Errors))
	for _, fe := range r.Errors {
		out += fmt.Sprintf("\n  %s: %v", fe.Path, fe.Err)
	}
	return out
}
