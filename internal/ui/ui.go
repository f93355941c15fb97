// Package ui renders the Corpus Orchestrator's progress: a rich terminal
// UI when attached to an interactive terminal, and a plain line-per-event
// renderer otherwise (CI logs, piped output, Config.ForcePlain).
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a step of one crate's run through the orchestrator.
type Stage int

const (
	// StageEnumerate is listing candidate (name, version) pairs from the mirror.
	StageEnumerate Stage = iota
	// StageWarm is the network-enabled cache-warming sandbox invocation.
	StageWarm
	// StageExtract is the isolated signature-extraction sandbox invocation.
	StageExtract
	// StagePersist is writing the result (or failure record) to the Index Store.
	StagePersist
	// StageComplete indicates the run has finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageEnumerate:
		return "Enumerate"
	case StageWarm:
		return "Warm"
	case StageExtract:
		return "Extract"
	case StagePersist:
		return "Persist"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label used by the plain renderer.
func (s Stage) Icon() string {
	switch s {
	case StageEnumerate:
		return "ENUM"
	case StageWarm:
		return "WARM"
	case StageExtract:
		return "EXTRACT"
	case StagePersist:
		return "PERSIST"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports progress against a crate count, not a byte count —
// one orchestrator worker finishing one crate is one unit of progress.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
	Crate   string
	Message string
}

// ErrorEvent reports a crate-level failure (extractor error, sandbox
// error, or store error) surfaced by a worker. It never represents a
// fatal condition for the run as a whole.
type ErrorEvent struct {
	Crate  string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished orchestrator run.
type CompletionStats struct {
	Crates   int
	Ok       int
	Failed   int
	Duration time.Duration
}

// Renderer is the progress-display seam the orchestrator drives. Both
// implementations are safe for concurrent use by multiple workers.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// NewConfig builds a Config for output, with plain-mode and color
// defaults matching the teacher's convention.
func NewConfig(output io.Writer) Config {
	return Config{Output: output}
}

// NewRenderer picks a TUI renderer for an interactive terminal and a
// plain renderer otherwise (CI, pipes, ForcePlain), mirroring the
// teacher's ui.NewRenderer dispatch.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain {
		return NewPlainRenderer(cfg)
	}
	if !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}
	if DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectCI reports whether a well-known CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}

// DetectNoColor reports the NO_COLOR convention.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
