package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grovedb/grove/internal/config"
)

// grammarPathEnv lists extra grammar search directories, separated like
// PATH. Directories given via --include take precedence.
const grammarPathEnv = "GROVE_GRAMMAR_PATH"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	include []string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "grove",
		Short:   "Export concrete syntax trees into queryable databases",
		Version: version,
		Long: `grove parses source files with tree-sitter grammars and flattens each
concrete syntax tree into three relations (nodes, node_locations, edges)
suitable for bulk import into a graph or relational database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringArrayVarP(&flags.include, "include", "i", nil,
		"directory to search for grammar libraries (repeatable; also "+grammarPathEnv+")")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"enable debug logging")

	cmd.AddCommand(newExportCmd(flags))
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newLanguagesCmd(flags))

	return cmd
}

// searchPaths merges --include flags with the environment search path.
func (f *rootFlags) searchPaths() []string {
	paths := append([]string{}, f.include...)
	if env := os.Getenv(grammarPathEnv); env != "" {
		paths = append(paths, filepath.SplitList(env)...)
	}
	return paths
}

// newLogger builds the CLI logger: console output, info level unless
// verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// loadProjectConfig reads grove.yml from the working directory and applies
// it underneath the flags.
func loadProjectConfig() *config.ProjectConfig {
	wd, err := os.Getwd()
	if err != nil {
		return &config.ProjectConfig{}
	}
	cfg, err := config.Load(wd)
	if err != nil || cfg == nil {
		return &config.ProjectConfig{}
	}
	return cfg
}
