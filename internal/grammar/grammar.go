// Package grammar locates, verifies, and loads tree-sitter language plugins.
//
// A language can come from one of two places: a grammar compiled into the
// binary via its official bindings/go package, or a shared-library artifact
// (tree-sitter-<name>.so) discovered on the registry search path and opened
// at runtime. Both are exposed through the same Grammar handle, which is the
// only surface the rest of the system sees; the dynamic-loading unsafety is
// confined to this package.
package grammar

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Kind describes one entry of a grammar's node-type table.
type Kind struct {
	// Name is the grammar-defined type name, e.g. "function_declaration".
	Name string

	// Named is false for anonymous tokens such as punctuation.
	Named bool
}

// Grammar is an opaque capability handle for one loaded language. It wraps
// the raw tree-sitter language pointer together with the kind and field
// tables, materialized once at load time. A Grammar is immutable after
// construction and safe to share across concurrent parses.
type Grammar struct {
	name   string
	origin string // "builtin" or the artifact path the language was loaded from
	lang   *tree_sitter.Language
	kinds  []Kind
	fields []string // indexed by field id; id 0 is unused by tree-sitter
}

// newGrammar validates lang and materializes its lookup tables.
//
// Validation covers the ABI boundary: a language built against an
// incompatible tree-sitter version is rejected by SetLanguage, and a grammar
// with an empty node-type table cannot have come from a real parser build.
func newGrammar(name, origin string, lang *tree_sitter.Language) (*Grammar, error) {
	probe := tree_sitter.NewParser()
	defer probe.Close()
	if err := probe.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("incompatible language ABI: %w", err)
	}

	kindCount := lang.NodeKindCount()
	if kindCount == 0 {
		return nil, fmt.Errorf("language declares no node kinds")
	}

	kinds := make([]Kind, kindCount)
	for id := uint32(0); id < kindCount; id++ {
		kinds[id] = Kind{
			Name:  lang.NodeKindForId(uint16(id)),
			Named: lang.NodeKindIsNamed(uint16(id)),
		}
	}

	// Field ids are 1-based; slot 0 stays empty.
	fields := make([]string, lang.FieldCount()+1)
	for id := uint32(1); id < uint32(len(fields)); id++ {
		fields[id] = lang.FieldNameForId(uint16(id))
	}

	return &Grammar{
		name:   name,
		origin: origin,
		lang:   lang,
		kinds:  kinds,
		fields: fields,
	}, nil
}

// Name returns the language identifier, e.g. "go".
func (g *Grammar) Name() string { return g.name }

// Origin reports where the grammar came from: "builtin" or an artifact path.
func (g *Grammar) Origin() string { return g.origin }

// Language returns the underlying tree-sitter language handle.
func (g *Grammar) Language() *tree_sitter.Language { return g.lang }

// KindCount returns the number of distinct node kinds in the grammar.
func (g *Grammar) KindCount() int { return len(g.kinds) }

// KindName returns the type name for a numeric node-kind code.
func (g *Grammar) KindName(id uint16) string {
	if int(id) >= len(g.kinds) {
		return ""
	}
	return g.kinds[id].Name
}

// KindIsNamed reports whether the node kind is a named (non-anonymous) rule.
func (g *Grammar) KindIsNamed(id uint16) bool {
	if int(id) >= len(g.kinds) {
		return false
	}
	return g.kinds[id].Named
}

// FieldName returns the field name for a numeric field code, or "" when the
// code is out of range or unassigned.
func (g *Grammar) FieldName(id uint16) string {
	if int(id) >= len(g.fields) {
		return ""
	}
	return g.fields[id]
}
