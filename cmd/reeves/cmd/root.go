// Package cmd provides the CLI commands for Reeves.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/logging"
	"github.com/reeves-dev/reeves/pkg/version"
)

var (
	dbPath         string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the reeves CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reeves",
		Short:   "Type-directed search engine over a corpus of Go modules",
		Version: version.Version,
	}
	cmd.SetVersionTemplate("reeves version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dbPath, "db", "reeves.db", "path to the Index Store database")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newAnalyzeAndSaveCmd())
	cmd.AddCommand(newAnalyzeAndPrintCmd())
	cmd.AddCommand(newContainerAnalyzeAndPrintCmd())
	cmd.AddCommand(newAnalyzeTop100CratesCmd())
	cmd.AddCommand(newAnalyzeAllCratesCmd())
	cmd.AddCommand(newLoadTextSearchCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDebugDBCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
