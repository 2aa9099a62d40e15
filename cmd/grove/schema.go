package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovedb/grove/internal/sink"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the relational schema exports conform to",
		Long: `Schema prints the SQLite DDL for the three relations every backend
encodes: nodes, node_locations, and edges. Run it against your own database
to prepare it for a bulk import.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), sink.Schema)
		},
	}
}
