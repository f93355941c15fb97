package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/extract"
	"github.com/reeves-dev/reeves/internal/reeves"
	"github.com/reeves-dev/reeves/internal/sandbox"
)

// newAnalyzeAndSaveCmd runs the extractor against a crate's source tree
// and persists the result directly into the Index Store, bypassing the
// sandbox and the wire encoding — the path used outside the Orchestrator,
// e.g. for one-off local testing of a module.
func newAnalyzeAndSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-and-save <crate_path>",
		Short: "Extract a module's signatures and save them to the Index Store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := reeves.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open index store: %w", err)
			}
			defer func() { _ = r.Close() }()

			result, err := r.AnalyzeCratePath(args[0])
			if err != nil {
				if result.Name == "" {
					return fmt.Errorf("analyze failed before the module could be identified: %w", err)
				}
				if saveErr := r.SaveAnalysisError(result.Name, result.Version, err.Error()); saveErr != nil {
					return fmt.Errorf("analyze failed (%w) and recording the failure also failed: %w", err, saveErr)
				}
				return fmt.Errorf("analyze failed (recorded): %w", err)
			}

			if err := r.SaveAnalysis(result.Name, result.Version, result.Details); err != nil {
				return fmt.Errorf("save analysis: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s@%s: %d functions\n", result.Name, result.Version, len(result.Details))
			return err
		},
	}
}

// newAnalyzeAndPrintCmd runs the extractor and emits a gob-encoded
// sandbox.Record on stdout. This is the exact invocation the Orchestrator's
// sandboxed launcher runs as a child process; stdout must carry nothing
// but the record.
func newAnalyzeAndPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "analyze-and-print <crate_path>",
		Short:  "Extract a module's signatures and emit a binary record on stdout",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeAndPrint(cmd, args[0])
		},
	}
}

// newContainerAnalyzeAndPrintCmd is the container-entrypoint variant of
// analyze-and-print. It runs the identical extraction and stdout
// contract; the distinct name exists so the sandbox image can set it as
// the ENTRYPOINT without relying on the host-facing command staying
// hidden from `reeves --help`.
func newContainerAnalyzeAndPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "container-analyze-and-print <crate_path>",
		Short: "Entrypoint for the sandboxed extractor container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeAndPrint(cmd, args[0])
		},
	}
}

// runAnalyzeAndPrint runs the Signature Extractor directly, without
// opening an Index Store — the sandboxed child's workdir is read-only
// and never touches the store.
func runAnalyzeAndPrint(cmd *cobra.Command, cratePath string) error {
	result, err := extract.Extract(cratePath)
	rec := sandbox.Record{CrateName: result.Name, CrateVersion: result.Version}
	if err != nil {
		rec.Ok = false
		rec.Err = err.Error()
	} else {
		rec.Ok = true
		rec.Details = result.Details
	}

	data, encErr := sandbox.EncodeRecord(rec)
	if encErr != nil {
		return fmt.Errorf("encode record: %w", encErr)
	}

	_, writeErr := cmd.OutOrStdout().Write(data)
	return writeErr
}
