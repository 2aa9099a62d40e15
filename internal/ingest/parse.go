package ingest

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grovedb/grove/internal/grammar"
)

// ParseError reports a failure outside the grammar's control: the plugin
// call itself failed rather than the source being malformed. Source with
// syntax errors parses successfully into a tree containing error nodes and
// is never a ParseError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile parses source with the given grammar and returns the tree.
// A fresh tree-sitter parser is created per call, so concurrent parses of
// different files may share one Grammar. The caller owns the returned tree
// and must Close it.
func ParseFile(g *grammar.Grammar, path string, source []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(g.Language()); err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("set language %s: %w", g.Name(), err)}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("parser returned no tree")}
	}
	return tree, nil
}
