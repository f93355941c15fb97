// Package orchestrator implements Reeves' Corpus Orchestrator: given a
// read-only registry mirror, it enumerates candidate packages, skips any
// already recorded in the Index Store, and runs the remainder through a
// bounded-concurrency pipeline of sandboxed extraction and transactional
// persistence.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
	"github.com/reeves-dev/reeves/internal/mirror"
	"github.com/reeves-dev/reeves/internal/sandbox"
	"github.com/reeves-dev/reeves/internal/store"
	"github.com/reeves-dev/reeves/internal/ui"
)

// Target is one (name, version) pair the orchestrator will attempt.
type Target struct {
	Name    string
	Version string
}

// indexStore is the subset of *store.Store the orchestrator depends on.
type indexStore interface {
	HasCrate(name, version string) (bool, error)
	SaveAnalysis(name, version string, details []store.FnDetail) error
	SaveAnalysisError(name, version, errMsg string) error
}

// extractorLauncher is the subset of *sandbox.Launcher the orchestrator
// depends on, seamed for tests the same way sandbox.Launcher seams exec.Cmd.
type extractorLauncher interface {
	WarmCaches(ctx context.Context, workdir string) error
	RunExtractor(ctx context.Context, cratePath string) (sandbox.Record, error)
}

// Config configures a Run.
type Config struct {
	// MirrorRoot is the registry mirror's root directory (read-only).
	MirrorRoot string
	// ScratchRoot is the writable scratch directory, e.g. /tmp/crate.
	ScratchRoot string
	// Concurrency bounds the worker pool; defaults to runtime.NumCPU().
	Concurrency int
}

// Stats summarizes a finished run.
type Stats struct {
	Total    int
	Ok       int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Orchestrator drives one corpus run against an Index Store.
type Orchestrator struct {
	cfg      Config
	store    indexStore
	launcher extractorLauncher
	renderer ui.Renderer

	mu      sync.Mutex
	ok      int
	failed  int
	skipped int
}

// New creates an Orchestrator. renderer may be nil to disable progress
// reporting (e.g. in tests).
func New(cfg Config, st indexStore, launcher extractorLauncher, renderer ui.Renderer) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if renderer == nil {
		renderer = noopRenderer{}
	}
	return &Orchestrator{cfg: cfg, store: st, launcher: launcher, renderer: renderer}
}

// Run enumerates targets, filters out already-recorded crates, and
// processes the remainder through the bounded worker pool. A single
// target's failure (sandbox error, extractor error, or panic) is
// recorded as a crate-level failure and never aborts the run.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) (Stats, error) {
	start := time.Now()
	if err := o.renderer.Start(ctx); err != nil {
		return Stats{}, err
	}
	defer o.renderer.Stop()

	pending := make([]Target, 0, len(targets))
	o.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEnumerate, Total: len(targets)})
	for i, t := range targets {
		has, err := o.store.HasCrate(t.Name, t.Version)
		if err != nil {
			return Stats{}, reeveserrors.Store(fmt.Sprintf("failed to check has_crate for %s@%s", t.Name, t.Version), err)
		}
		if has {
			o.mu.Lock()
			o.skipped++
			o.mu.Unlock()
			continue
		}
		pending = append(pending, t)
		o.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEnumerate, Current: i + 1, Total: len(targets)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	var done int
	for _, t := range pending {
		t := t
		g.Go(func() error {
			o.processOne(gctx, t)
			o.mu.Lock()
			done++
			n := done
			o.mu.Unlock()
			o.renderer.UpdateProgress(ui.ProgressEvent{
				Stage: ui.StagePersist, Current: n, Total: len(pending), Crate: t.Name,
			})
			return nil
		})
	}
	// g.Wait only returns non-nil if a goroutine itself returns an error;
	// processOne never does, so every failure is already a persisted
	// crate-level failure record by the time Wait returns.
	_ = g.Wait()

	stats := Stats{
		Total:    len(targets),
		Ok:       o.ok,
		Failed:   o.failed,
		Skipped:  o.skipped,
		Duration: time.Since(start),
	}
	o.renderer.Complete(ui.CompletionStats{
		Crates: stats.Total, Ok: stats.Ok, Failed: stats.Failed, Duration: stats.Duration,
	})
	return stats, nil
}

// processOne runs the full pipeline for a single target and persists
// either a successful analysis or a failure record. A panic anywhere in
// the pipeline (including inside the sandboxed launcher's own code) is
// recovered and downgraded to a crate-level failure, per the invariant
// that a single worker's panic must never stop the orchestrator.
func (o *Orchestrator) processOne(ctx context.Context, t Target) {
	defer func() {
		if r := recover(); r != nil {
			o.recordFailure(t, fmt.Sprintf("panic during extraction: %v", r))
		}
	}()

	scratchDir := filepath.Join(o.cfg.ScratchRoot, fmt.Sprintf("%s-%s", t.Name, t.Version))
	if err := os.RemoveAll(scratchDir); err != nil {
		o.recordFailure(t, fmt.Sprintf("failed to clear scratch directory: %v", err))
		return
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		o.recordFailure(t, fmt.Sprintf("failed to create scratch directory: %v", err))
		return
	}
	defer os.RemoveAll(scratchDir)

	tarballPath := filepath.Join(o.cfg.MirrorRoot, mirror.PackagePath(t.Name, t.Version))
	if err := extractTarball(tarballPath, scratchDir); err != nil {
		o.recordFailure(t, fmt.Sprintf("failed to extract package tarball: %v", err))
		return
	}
	if err := writeVersionSidecar(scratchDir, t.Version); err != nil {
		o.recordFailure(t, fmt.Sprintf("failed to write version sidecar: %v", err))
		return
	}

	o.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageWarm, Crate: t.Name})
	if err := o.launcher.WarmCaches(ctx, scratchDir); err != nil {
		o.recordFailure(t, err.Error())
		return
	}

	o.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageExtract, Crate: t.Name})
	rec, err := o.launcher.RunExtractor(ctx, scratchDir)
	if err != nil {
		o.recordFailure(t, err.Error())
		return
	}
	if !rec.Ok {
		o.recordFailure(t, rec.Err)
		return
	}

	if err := o.store.SaveAnalysis(t.Name, t.Version, rec.Details); err != nil {
		o.recordFailure(t, err.Error())
		return
	}

	o.mu.Lock()
	o.ok++
	o.mu.Unlock()
}

func (o *Orchestrator) recordFailure(t Target, msg string) {
	if err := o.store.SaveAnalysisError(t.Name, t.Version, msg); err != nil {
		// The store itself is unavailable; surface as a renderer warning
		// rather than losing the failure silently.
		o.renderer.AddError(ui.ErrorEvent{Crate: t.Name, Err: fmt.Errorf("failed to record failure: %w", err)})
	}
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
	o.renderer.AddError(ui.ErrorEvent{Crate: t.Name, Err: fmt.Errorf("%s", msg)})
}

type noopRenderer struct{}

func (noopRenderer) Start(ctx context.Context) error      { return nil }
func (noopRenderer) UpdateProgress(event ui.ProgressEvent) {}
func (noopRenderer) AddError(event ui.ErrorEvent)          {}
func (noopRenderer) Complete(stats ui.CompletionStats)     {}
func (noopRenderer) Stop() error                           { return nil }
