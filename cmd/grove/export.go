package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/grovedb/grove/internal/grammar"
	"github.com/grovedb/grove/internal/orchestrator"
	"github.com/grovedb/grove/internal/sink"
)

// exportFlags configure one export run.
type exportFlags struct {
	format   string
	out      string
	language string
	jobs     int
}

func newExportCmd(root *rootFlags) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export [paths...]",
		Short: "Parse source files and export their syntax trees",
		Long: `Export walks the given files and directories, parses every file whose
language has a grammar, and writes the flattened relations to the chosen
backend. Files with syntax errors are exported normally (error nodes are
first-class rows); files that cannot be processed are reported at the end
without aborting the batch.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, root, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: kuzu, sqlite, or json")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "output path (database file/dir; stdout for json when omitted)")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "force all files through this language's grammar")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", runtime.NumCPU(), "number of files to process in parallel")

	return cmd
}

func runExport(cmd *cobra.Command, root *rootFlags, flags *exportFlags, args []string) error {
	project := loadProjectConfig()
	if flags.format == "" {
		flags.format = project.Format
	}
	if flags.format == "" {
		flags.format = "json"
	}
	if flags.out == "" {
		flags.out = project.OutputPath
	}
	if flags.language == "" {
		flags.language = project.Language
	}
	if project.Jobs > 0 && !cmd.Flags().Changed("jobs") {
		flags.jobs = project.Jobs
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	logger, err := newLogger(root.verbose || project.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	searchPaths := append(root.searchPaths(), project.IncludePaths...)
	registry, err := grammar.NewRegistry(searchPaths)
	if err != nil {
		return fmt.Errorf("initialize grammar registry: %w", err)
	}

	out, err := buildSink(flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := out.Init(ctx); err != nil {
		out.Close()
		return fmt.Errorf("initialize %s sink: %w", flags.format, err)
	}

	files, err := orchestrator.DiscoverFiles(args, registry.Extensions())
	if err != nil {
		out.Close()
		return fmt.Errorf("discover files: %w", err)
	}

	orch := orchestrator.New(registry, []sink.Sink{out}, orchestrator.Config{
		Workers:  flags.jobs,
		Language: flags.language,
	}, logger)

	report := orch.Run(ctx, files)

	if err := out.Close(); err != nil {
		return fmt.Errorf("finalize %s sink: %w", flags.format, err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
	return nil
}

// buildSink constructs the backend selected by --format.
func buildSink(flags *exportFlags) (sink.Sink, error) {
	switch flags.format {
	case "kuzu":
		if flags.out == "" {
			return nil, fmt.Errorf("--out is required for the kuzu format")
		}
		return sink.NewKuzuSink(flags.out)
	case "sqlite":
		if flags.out == "" {
			return nil, fmt.Errorf("--out is required for the sqlite format")
		}
		return sink.NewSQLiteSink(flags.out)
	case "json":
		if flags.out == "" {
			return sink.NewJSONSink(os.Stdout), nil
		}
		return sink.NewJSONFileSink(flags.out)
	default:
		return nil, fmt.Errorf("unknown format %q (want kuzu, sqlite, or json)", flags.format)
	}
}
