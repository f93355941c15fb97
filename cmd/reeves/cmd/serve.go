package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/reeves"
	"github.com/reeves-dev/reeves/internal/server"
)

// newServeCmd starts the HTTP server: it loads the fuzzy type index once
// at startup, then serves POST /reeves/search plus static assets for the
// browser front-end.
func newServeCmd() *cobra.Command {
	var addr, staticRoot string
	var reqSizeCap int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search queries and the browser front-end over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reeves.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open index store: %w", err)
			}
			defer func() { _ = r.Close() }()

			if err := r.LoadTextSearch(); err != nil {
				return fmt.Errorf("load text search: %w", err)
			}

			srv := server.New(server.Config{
				StaticRoot:          staticRoot,
				RequestSizeCapBytes: reqSizeCap,
			}, r, slog.Default())

			slog.Info("reeves server starting", slog.String("addr", addr))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			if err != nil {
				return err
			}
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&staticRoot, "static", "static", "directory of bundled static assets")
	cmd.Flags().Int64Var(&reqSizeCap, "req-size-cap", 1<<20, "maximum accepted request body size in bytes")

	return cmd
}
