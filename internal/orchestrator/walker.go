package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// DiscoverFiles expands the given roots into the list of files to process.
// A root that is a regular file is always included; a directory is walked
// recursively, honoring its top-level .gitignore and skipping VCS metadata.
// Walked files are filtered to extensions the registry can resolve.
func DiscoverFiles(roots []string, extensions []string) ([]string, error) {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[ext] = true
	}

	var out []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}

		matcher := loadGitignore(root)
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			if d.IsDir() {
				if d.Name() == ".git" || (matcher != nil && rel != "." && matcher.MatchesPath(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				return nil
			}
			if extSet[filepath.Ext(path)] {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return out, nil
}

// loadGitignore compiles the root's .gitignore if present.
func loadGitignore(root string) *ignore.GitIgnore {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return matcher
}
