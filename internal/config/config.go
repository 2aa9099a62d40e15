package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from grove.yml.
// Command-line flags override anything set here.
type ProjectConfig struct {
	// IncludePaths are extra grammar search directories.
	IncludePaths []string `yaml:"includePaths,omitempty"`

	// OutputPath is the default export destination.
	OutputPath string `yaml:"outputPath,omitempty"`

	// Format is the default export format (kuzu, sqlite, json).
	Format string `yaml:"format,omitempty"`

	// Language forces every file through one grammar.
	Language string `yaml:"language,omitempty"`

	// Jobs bounds parallel file processing.
	Jobs int `yaml:"jobs,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose,omitempty"`
}

// Load attempts to read grove.yml or grove.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"grove.yml", "grove.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
