package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/reeves"
)

// newDebugDBCmd prints a human-readable dump of every Index Store
// keyspace: useful for spot-checking an ingestion run without writing a
// query.
func newDebugDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-db",
		Short: "Dump the Index Store's keyspaces for inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reeves.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open index store: %w", err)
			}
			defer func() { _ = r.Close() }()

			out := cmd.OutOrStdout()
			return r.DebugDump(func(format string, fargs ...interface{}) {
				fmt.Fprintf(out, format+"\n", fargs...)
			})
		},
	}
}
