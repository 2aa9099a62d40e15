package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/grovedb/grove/internal/grammar"
)

func newLanguagesCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List available grammars",
		Long: `Languages lists every grammar the registry can resolve: the built-in
grammars compiled into the binary, plus any tree-sitter-<name> shared
libraries discovered on the search path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := grammar.NewRegistry(root.searchPaths())
			if err != nil {
				return fmt.Errorf("initialize grammar registry: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LANGUAGE\tORIGIN")
			for _, info := range registry.Languages() {
				fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Origin)
			}
			return w.Flush()
		},
	}
}
