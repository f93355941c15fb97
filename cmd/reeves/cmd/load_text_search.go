package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/reeves"
)

// newLoadTextSearchCmd rebuilds the Fuzzy Type Index from the Index
// Store's current keyspaces. There is no incremental path; operators
// re-run this after any batch of analyze-and-save/analyze-*-crates calls.
func newLoadTextSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-text-search",
		Short: "Rebuild the fuzzy type index from the current Index Store",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reeves.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open index store: %w", err)
			}
			defer func() { _ = r.Close() }()

			if err := r.LoadTextSearch(); err != nil {
				return fmt.Errorf("load text search: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "fuzzy type index rebuilt")
			return err
		},
	}
}
