package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/reeves"
)

// newSearchCmd runs the two-level query directly against the Index
// Store, rebuilding the fuzzy type index first since there is no
// incremental update path.
func newSearchCmd() *cobra.Command {
	var retSearch string

	cmd := &cobra.Command{
		Use:   "search <comma-separated-params>",
		Short: "Search the Index Store for functions matching the given parameter and return types",
		Long: `Search accepts a comma-separated list of parameter type strings
(empty for zero-argument functions) and an optional --ret return type
string. Each type string is matched fuzzily against the indexed types
(e.g. "&EntryType"). Omitting the parameter list or --ret matches any
value in that position; omitting both returns no results.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params []string
			if len(args) == 1 && args[0] != "" {
				for _, p := range strings.Split(args[0], ",") {
					params = append(params, strings.TrimSpace(p))
				}
			} else if len(args) == 1 {
				params = []string{}
			}

			var ret *string
			if retSearch != "" {
				ret = &retSearch
			}

			r, err := reeves.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open index store: %w", err)
			}
			defer func() { _ = r.Close() }()

			if err := r.LoadTextSearch(); err != nil {
				return fmt.Errorf("load text search: %w", err)
			}

			results, err := r.Search(cmd.Context(), params, ret)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			for _, res := range results {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "res: %s\n", res.S); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&retSearch, "ret", "", "return type to search for (empty = any)")
	return cmd
}
