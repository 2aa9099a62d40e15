package grammar

import (
	"fmt"
	"sort"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// languageLoader opens a grammar artifact and resolves its language entry
// point. The production implementation is dlopenLoader; tests substitute a
// counting double.
type languageLoader interface {
	Load(path, language string) (*tree_sitter.Language, error)
}

// Registry resolves language ids to loaded Grammars. Built-in grammars and
// artifacts discovered under the search paths are indexed up front; the
// actual load (dlopen, ABI validation, table materialization) happens lazily
// on first Resolve and exactly once per language, however many goroutines
// ask concurrently. Load failures are memoized the same way: a language that
// failed to load stays failed for the process lifetime.
type Registry struct {
	loader  languageLoader
	mu      sync.Mutex
	entries map[string]*registryEntry
}

// registryEntry is the per-language load slot. once guards the single-load
// guarantee; grammar/err hold the memoized outcome.
type registryEntry struct {
	origin string // OriginBuiltin or an artifact path
	load   func() (*Grammar, error)

	once    sync.Once
	mu      sync.Mutex
	grammar *Grammar
	err     error
}

// resolve runs the load exactly once and returns the memoized outcome.
func (e *registryEntry) resolve() (*Grammar, error) {
	e.once.Do(func() {
		g, err := e.load()
		e.mu.Lock()
		e.grammar, e.err = g, err
		e.mu.Unlock()
	})
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grammar, e.err
}

// isLoaded reports whether the grammar has been loaded successfully.
func (e *registryEntry) isLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grammar != nil
}

// NewRegistry indexes built-in grammars and every artifact found under the
// given search directories. An unreadable search path is a hard error; a
// corrupt artifact or a language-id collision poisons only the affected
// language (Resolve will return the LoadError) without failing the rest of
// the registry.
func NewRegistry(searchPaths []string) (*Registry, error) {
	return newRegistry(searchPaths, dlopenLoader{})
}

func newRegistry(searchPaths []string, loader languageLoader) (*Registry, error) {
	artifacts, err := discoverArtifacts(searchPaths)
	if err != nil {
		return nil, err
	}
	return registryFromArtifacts(artifacts, loader), nil
}

// registryFromArtifacts indexes the built-in grammars plus the given
// artifacts. Split from newRegistry so tests can feed artifacts directly.
func registryFromArtifacts(artifacts []artifact, loader languageLoader) *Registry {
	r := &Registry{
		loader:  loader,
		entries: make(map[string]*registryEntry),
	}

	for name, lang := range builtinLanguages() {
		r.entries[name] = &registryEntry{
			origin: OriginBuiltin,
			load: func() (*Grammar, error) {
				g, err := newGrammar(name, OriginBuiltin, lang)
				if err != nil {
					return nil, &LoadError{Language: name, Err: err}
				}
				return g, nil
			},
		}
	}

	for _, art := range artifacts {
		if art.err != nil {
			// A corrupt artifact is fatal for its language, never for the
			// run; other languages keep working.
			for _, lang := range art.languages {
				failure := &LoadError{Language: lang, Path: art.path, Err: art.err}
				r.entries[lang] = &registryEntry{
					origin: art.path,
					load:   func() (*Grammar, error) { return nil, failure },
				}
			}
			continue
		}
		for _, lang := range art.languages {
			if existing, ok := r.entries[lang]; ok {
				// Silently preferring one grammar over another would corrupt
				// the meaning of everything exported for this language.
				collision := &LoadError{
					Language: lang,
					Path:     art.path,
					Err:      fmt.Errorf("language already provided by %s", existing.origin),
				}
				r.entries[lang] = &registryEntry{
					origin: art.path,
					load:   func() (*Grammar, error) { return nil, collision },
				}
				continue
			}
			r.entries[lang] = r.artifactEntry(lang, art.path)
		}
	}

	return r
}

// artifactEntry builds the lazy load slot for one discovered language.
func (r *Registry) artifactEntry(language, path string) *registryEntry {
	return &registryEntry{
		origin: path,
		load: func() (*Grammar, error) {
			lang, err := r.loader.Load(path, language)
			if err != nil {
				return nil, &LoadError{Language: language, Path: path, Err: err}
			}
			g, err := newGrammar(language, path, lang)
			if err != nil {
				return nil, &LoadError{Language: language, Path: path, Err: err}
			}
			return g, nil
		},
	}
}

// Resolve returns the loaded Grammar for a language id, loading it on first
// use. It returns ErrUnknownLanguage when nothing provides the language, and
// the memoized *LoadError when the plugin cannot be used.
func (r *Registry) Resolve(language string) (*Grammar, error) {
	r.mu.Lock()
	entry, ok := r.entries[language]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}

	return entry.resolve()
}

// ResolveExtension maps a file extension (with leading dot) to a language
// id. The extension table is independent of what is loadable; Resolve
// decides whether a plugin actually exists.
func (r *Registry) ResolveExtension(ext string) (string, error) {
	lang, ok := extensionTable[ext]
	if !ok {
		return "", fmt.Errorf("%w: no language for extension %q", ErrUnknownLanguage, ext)
	}
	return lang, nil
}

// LanguageInfo describes one registered language for display purposes.
type LanguageInfo struct {
	Name   string
	Origin string
	Loaded bool
}

// Languages lists every registered language in name order.
func (r *Registry) Languages() []LanguageInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LanguageInfo, 0, len(r.entries))
	for name, entry := range r.entries {
		out = append(out, LanguageInfo{
			Name:   name,
			Origin: entry.origin,
			Loaded: entry.isLoaded(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Extensions returns every file extension with a language mapping, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(extensionTable))
	for ext := range extensionTable {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
