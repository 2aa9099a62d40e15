package grammar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// countingLoader is a languageLoader test double that counts Load calls per
// artifact path and returns a canned language or error.
type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	lang  *tree_sitter.Language
	err   error
}

func newCountingLoader(lang *tree_sitter.Language, err error) *countingLoader {
	return &countingLoader{calls: make(map[string]int), lang: lang, err: err}
}

func (l *countingLoader) Load(path, _ string) (*tree_sitter.Language, error) {
	l.mu.Lock()
	l.calls[path]++
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.lang, nil
}

func (l *countingLoader) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[path]
}

// ---------------------------------------------------------------------------
// TestRegistry_ResolveBuiltin
// ---------------------------------------------------------------------------

func TestRegistry_ResolveBuiltin(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	g, err := r.Resolve("go")
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, "go", g.Name())
	assert.Equal(t, OriginBuiltin, g.Origin())
	assert.Greater(t, g.KindCount(), 0, "a loaded grammar has a node-kind table")

	// Resolving again returns the same loaded grammar.
	again, err := r.Resolve("go")
	require.NoError(t, err)
	assert.Same(t, g, again)
}

// ---------------------------------------------------------------------------
// TestRegistry_UnknownLanguage
// ---------------------------------------------------------------------------

func TestRegistry_UnknownLanguage(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	before := r.Languages()

	_, err = r.Resolve("cobol")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLanguage)

	assert.Equal(t, before, r.Languages(), "a failed lookup registers nothing")
}

// ---------------------------------------------------------------------------
// TestRegistry_SingleLoad
// ---------------------------------------------------------------------------

func TestRegistry_SingleLoad(t *testing.T) {
	loader := newCountingLoader(builtinLanguages()["go"], nil)
	r := registryFromArtifacts([]artifact{
		{path: "/grammars/tree-sitter-mylang.so", languages: []string{"mylang"}},
	}, loader)

	const goroutines = 32
	grammars := make([]*Grammar, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := r.Resolve("mylang")
			assert.NoError(t, err)
			grammars[i] = g
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, loader.count("/grammars/tree-sitter-mylang.so"),
		"the artifact must be loaded exactly once")
	for i := 1; i < goroutines; i++ {
		assert.Same(t, grammars[0], grammars[i], "every caller gets the same grammar")
	}
}

// ---------------------------------------------------------------------------
// TestRegistry_LoadFailureMemoized
// ---------------------------------------------------------------------------

func TestRegistry_LoadFailureMemoized(t *testing.T) {
	loader := newCountingLoader(nil, fmt.Errorf("dlopen refused"))
	r := registryFromArtifacts([]artifact{
		{path: "/grammars/tree-sitter-broken.so", languages: []string{"broken"}},
	}, loader)

	_, err := r.Resolve("broken")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken", loadErr.Language)
	assert.Equal(t, "/grammars/tree-sitter-broken.so", loadErr.Path)

	// A second resolve returns the memoized failure without retrying.
	_, err2 := r.Resolve("broken")
	require.Error(t, err2)
	assert.Equal(t, err, err2)
	assert.Equal(t, 1, loader.count("/grammars/tree-sitter-broken.so"))
}

// ---------------------------------------------------------------------------
// TestRegistry_CollisionPoisonsLanguage
// ---------------------------------------------------------------------------

func TestRegistry_CollisionPoisonsLanguage(t *testing.T) {
	loader := newCountingLoader(builtinLanguages()["go"], nil)

	t.Run("artifact vs builtin", func(t *testing.T) {
		r := registryFromArtifacts([]artifact{
			{path: "/grammars/tree-sitter-go.so", languages: []string{"go"}},
		}, loader)

		_, err := r.Resolve("go")
		require.Error(t, err, "a language provided twice must not resolve")
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "go", loadErr.Language)

		// Other languages are unaffected.
		_, err = r.Resolve("python")
		assert.NoError(t, err)
	})

	t.Run("artifact vs artifact", func(t *testing.T) {
		r := registryFromArtifacts([]artifact{
			{path: "/a/tree-sitter-mylang.so", languages: []string{"mylang"}},
			{path: "/b/tree-sitter-mylang.so", languages: []string{"mylang"}},
		}, loader)

		_, err := r.Resolve("mylang")
		require.Error(t, err)
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "/b/tree-sitter-mylang.so", loadErr.Path,
			"the collision is reported against the later artifact")
	})
}

// ---------------------------------------------------------------------------
// TestRegistry_CorruptArtifactPoisonsOnlyItsLanguage
// ---------------------------------------------------------------------------

func TestRegistry_CorruptArtifactPoisonsOnlyItsLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree-sitter-foo."+DylibExtension)
	require.NoError(t, os.WriteFile(path, []byte("not a shared library"), 0o644))

	r, err := NewRegistry([]string{dir})
	require.NoError(t, err, "a corrupt artifact must not fail registry construction")

	_, err = r.Resolve("foo")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "foo", loadErr.Language)
	assert.Equal(t, path, loadErr.Path)

	// Built-in languages keep working.
	g, err := r.Resolve("go")
	require.NoError(t, err)
	assert.Equal(t, OriginBuiltin, g.Origin())
}

// ---------------------------------------------------------------------------
// TestRegistry_ResolveExtension
// ---------------------------------------------------------------------------

func TestRegistry_ResolveExtension(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	cases := map[string]string{
		".go":  "go",
		".py":  "python",
		".rs":  "rust",
		".ts":  "typescript",
		".tsx": "tsx",
		".js":  "javascript",
	}
	for ext, want := range cases {
		lang, err := r.ResolveExtension(ext)
		require.NoError(t, err, "extension %s", ext)
		assert.Equal(t, want, lang)
	}

	_, err = r.ResolveExtension(".zz")
	assert.True(t, errors.Is(err, ErrUnknownLanguage), "unmapped extension is an unknown language")
}

// ---------------------------------------------------------------------------
// TestRegistry_Languages
// ---------------------------------------------------------------------------

func TestRegistry_Languages(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	infos := r.Languages()
	require.NotEmpty(t, infos)

	byName := make(map[string]LanguageInfo, len(infos))
	for i, info := range infos {
		byName[info.Name] = info
		if i > 0 {
			assert.Less(t, infos[i-1].Name, info.Name, "listing is sorted by name")
		}
	}

	golang, ok := byName["go"]
	require.True(t, ok, "built-in go grammar is registered")
	assert.Equal(t, OriginBuiltin, golang.Origin)
	assert.False(t, golang.Loaded, "grammars load lazily")

	_, err = r.Resolve("go")
	require.NoError(t, err)

	for _, info := range r.Languages() {
		if info.Name == "go" {
			assert.True(t, info.Loaded, "resolved grammar reports as loaded")
		}
	}
}

// ---------------------------------------------------------------------------
// TestRegistry_Extensions
// ---------------------------------------------------------------------------

func TestRegistry_Extensions(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	exts := r.Extensions()
	require.NotEmpty(t, exts)
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".py")
	for i := 1; i < len(exts); i++ {
		assert.Less(t, exts[i-1], exts[i], "extensions are sorted")
	}
}
