package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/reeves-dev/reeves/internal/mirror"
	"github.com/reeves-dev/reeves/internal/orchestrator"
	"github.com/reeves-dev/reeves/internal/reeves"
	"github.com/reeves-dev/reeves/internal/sandbox"
	"github.com/reeves-dev/reeves/internal/ui"
)

// newAnalyzeTop100CratesCmd runs the Corpus Orchestrator over the first
// 100 packages, in name order, of the latest non-yanked versions in the
// mirror index — a fast smoke run over a slice of the corpus.
func newAnalyzeTop100CratesCmd() *cobra.Command {
	var mirrorRoot, scratchRoot string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "analyze-top100-crates",
		Short: "Analyze the first 100 packages in the mirror index",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := loadMirrorTargets(mirrorRoot)
			if err != nil {
				return err
			}
			if len(targets) > 100 {
				targets = targets[:100]
			}
			return runOrchestrator(cmd, mirrorRoot, scratchRoot, concurrency, targets)
		},
	}
	addOrchestrateFlags(cmd, &mirrorRoot, &scratchRoot, &concurrency)
	return cmd
}

// newAnalyzeAllCratesCmd runs the Corpus Orchestrator over every package
// the mirror index knows about.
func newAnalyzeAllCratesCmd() *cobra.Command {
	var mirrorRoot, scratchRoot string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "analyze-all-crates",
		Short: "Analyze every package in the mirror index",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := loadMirrorTargets(mirrorRoot)
			if err != nil {
				return err
			}
			return runOrchestrator(cmd, mirrorRoot, scratchRoot, concurrency, targets)
		},
	}
	addOrchestrateFlags(cmd, &mirrorRoot, &scratchRoot, &concurrency)
	return cmd
}

func addOrchestrateFlags(cmd *cobra.Command, mirrorRoot, scratchRoot *string, concurrency *int) {
	cmd.Flags().StringVar(mirrorRoot, "mirror", "mirror", "path to the read-only package registry mirror")
	cmd.Flags().StringVar(scratchRoot, "scratch", os.TempDir(), "scratch directory for per-crate extraction workdirs")
	cmd.Flags().IntVar(concurrency, "concurrency", 0, "bounded worker pool size (0 = runtime.NumCPU())")
}

func loadMirrorTargets(mirrorRoot string) ([]orchestrator.Target, error) {
	cache, err := mirror.BuildCache(mirrorRoot)
	if err != nil {
		return nil, fmt.Errorf("build mirror cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	entries, err := cache.LatestNonYanked()
	if err != nil {
		return nil, fmt.Errorf("enumerate latest packages: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	targets := make([]orchestrator.Target, len(entries))
	for i, e := range entries {
		targets[i] = orchestrator.Target{Name: e.Name, Version: e.Version}
	}
	return targets, nil
}

func runOrchestrator(cmd *cobra.Command, mirrorRoot, scratchRoot string, concurrency int, targets []orchestrator.Target) error {
	r, err := reeves.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}
	defer func() { _ = r.Close() }()

	selfPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable path: %w", err)
	}
	launcher := sandbox.NewLauncher(selfPath)

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout()))

	o := orchestrator.New(orchestrator.Config{
		MirrorRoot:  mirrorRoot,
		ScratchRoot: scratchRoot,
		Concurrency: concurrency,
	}, r, launcher, renderer)

	stats, err := o.Run(cmd.Context(), targets)
	if err != nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "done: %d ok, %d failed, %d skipped (%s)\n",
		stats.Ok, stats.Failed, stats.Skipped, stats.Duration)
	return err
}
