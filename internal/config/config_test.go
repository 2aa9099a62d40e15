package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsGroveYml(t *testing.T) {
	dir := t.TempDir()
	content := `
includePaths:
  - /opt/grammars
format: sqlite
outputPath: out.db
jobs: 8
verbose: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grove.yml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"/opt/grammars"}, cfg.IncludePaths)
	assert.Equal(t, "sqlite", cfg.Format)
	assert.Equal(t, "out.db", cfg.OutputPath)
	assert.Equal(t, 8, cfg.Jobs)
	assert.True(t, cfg.Verbose)
}

func TestLoad_FallsBackToYamlExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grove.yaml"), []byte("format: kuzu\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "kuzu", cfg.Format)
}

func TestLoad_MissingFileIsZeroValue(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, &ProjectConfig{}, cfg)
}

func TestLoad_MalformedYaml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grove.yml"), []byte(":\t["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
