package grammar

import (
	"debug/elf"
	"debug/macho"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// symbolPrefix is the exported entry point convention for grammar artifacts:
// every artifact exports tree_sitter_<language>.
const symbolPrefix = "tree_sitter_"

// DylibExtension is the platform suffix of grammar artifacts.
var DylibExtension = func() string {
	if runtime.GOOS == "darwin" {
		return "dylib"
	}
	return "so"
}()

// artifact is a discovered grammar shared library and the language ids it
// declares. One artifact may declare several languages (typescript grammars
// ship typescript and tsx in one library). A corrupt artifact carries the
// inspection failure in err; its language id is then guessed from the
// filename so the registry can poison exactly that language.
type artifact struct {
	path      string
	languages []string
	err       error
}

// discoverArtifacts lists every candidate grammar library under the given
// search directories, in order, and reads the declared language ids from
// each artifact's dynamic symbol table. The filename is only used to select
// candidates; a renamed artifact still registers under its declared id.
// An unreadable search directory is a hard error; a broken artifact is not,
// it is returned with err set and stays fatal for its language only.
func discoverArtifacts(searchPaths []string) ([]artifact, error) {
	var out []artifact
	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read grammar search path %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isArtifactName(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			langs, err := declaredLanguages(path)
			if err == nil && len(langs) == 0 {
				err = fmt.Errorf("artifact exports no %s<language> symbol", symbolPrefix)
			}
			if err != nil {
				out = append(out, artifact{
					path:      path,
					languages: []string{languageFromFilename(entry.Name())},
					err:       err,
				})
				continue
			}
			out = append(out, artifact{path: path, languages: langs})
		}
	}
	return out, nil
}

// isArtifactName matches the platform naming convention tree-sitter-*.so
// (or .dylib on macOS).
func isArtifactName(name string) bool {
	return strings.HasPrefix(name, "tree-sitter-") &&
		strings.HasSuffix(name, "."+DylibExtension)
}

// languageFromFilename is used only for error reporting before the artifact
// has been inspected.
func languageFromFilename(name string) string {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "tree-sitter-"), "."+DylibExtension)
	return strings.ReplaceAll(base, "-", "_")
}

// declaredLanguages reads the dynamic symbol table of a shared library and
// returns the language ids it declares via exported tree_sitter_<lang>
// entry points. External-scanner helper symbols are not entry points.
func declaredLanguages(path string) ([]string, error) {
	names, err := dynamicSymbols(path)
	if err != nil {
		return nil, err
	}

	var langs []string
	seen := map[string]bool{}
	for _, name := range names {
		// Mach-O symbols carry a leading underscore.
		name = strings.TrimPrefix(name, "_")
		if !strings.HasPrefix(name, symbolPrefix) {
			continue
		}
		lang := strings.TrimPrefix(name, symbolPrefix)
		if lang == "" || strings.Contains(lang, "external_scanner") {
			continue
		}
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs, nil
}

// dynamicSymbols extracts exported dynamic symbol names from an ELF or
// Mach-O shared library.
func dynamicSymbols(path string) ([]string, error) {
	if ef, err := elf.Open(path); err == nil {
		defer ef.Close()
		syms, err := ef.DynamicSymbols()
		if err != nil {
			return nil, fmt.Errorf("read ELF dynamic symbols: %w", err)
		}
		names := make([]string, 0, len(syms))
		for _, s := range syms {
			names = append(names, s.Name)
		}
		return names, nil
	}

	mf, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("not a loadable shared library")
	}
	defer mf.Close()
	if mf.Symtab == nil {
		return nil, fmt.Errorf("shared library has no symbol table")
	}
	names := make([]string, 0, len(mf.Symtab.Syms))
	for _, s := range mf.Symtab.Syms {
		names = append(names, s.Name)
	}
	return names, nil
}
