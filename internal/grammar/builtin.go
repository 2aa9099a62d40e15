package grammar

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// OriginBuiltin is the Origin value of grammars compiled into the binary.
const OriginBuiltin = "builtin"

// builtinLanguages returns the grammars linked into the binary via their
// bindings/go packages. They are registered as already-loaded plugins; a
// discovered artifact declaring one of these language ids is a collision.
func builtinLanguages() map[string]*tree_sitter.Language {
	return map[string]*tree_sitter.Language{
		"go":         tree_sitter.NewLanguage(tree_sitter_go.Language()),
		"javascript": tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		"python":     tree_sitter.NewLanguage(tree_sitter_python.Language()),
		"rust":       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		"typescript": tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		"tsx":        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
	}
}

// extensionTable maps file extensions (with leading dot) to language ids.
// Extensions for languages without a registered grammar resolve to the
// language id anyway; Resolve then reports whether a plugin exists.
var extensionTable = map[string]string{
	".go":  "go",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".py":  "python",
	".pyw": "python",
	".rs":  "rust",
	".ts":  "typescript",
	".mts": "typescript",
	".tsx": "tsx",
}
