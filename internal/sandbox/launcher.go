package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

// WarmTimeout bounds the first, network-enabled sandbox invocation.
const WarmTimeout = 5 * time.Minute

// Launcher runs the two sandbox invocations the Orchestrator needs per
// crate: a cache-warming pass with host network and a writable workdir,
// then the actual extractor invocation with no network and a read-only
// workdir. The exec seam mirrors the teacher's OllamaManager pattern so
// tests can substitute a fake process.
type Launcher struct {
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	reevesPath  string
}

// NewLauncher creates a Launcher that invokes reevesPath (typically the
// currently running binary's own path, re-exec'd as a child) for the
// extractor step.
func NewLauncher(reevesPath string) *Launcher {
	return &Launcher{
		execCommand: exec.CommandContext,
		reevesPath:  reevesPath,
	}
}

// WarmCaches runs `go mod download` inside workdir with the host network
// and a writable module cache, matching the source's "cargo
// generate-lockfile && cargo metadata" cache-warming step. Failure here is
// a crate-level failure, not fatal to the batch.
func (l *Launcher) WarmCaches(ctx context.Context, workdir string) error {
	ctx, cancel := context.WithTimeout(ctx, WarmTimeout)
	defer cancel()

	cmd := l.execCommand(ctx, "go", "mod", "download")
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod")

	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return reeveserrors.Sandbox(fmt.Sprintf("go mod download failed: %s", stderr.String()), err)
	}
	return nil
}

// RunExtractor runs the sandboxed signature-extraction invocation against
// cratePath and decodes its stdout record. The child runs with
// GOPROXY=off and GOFLAGS=-mod=readonly, simulating the "network = none,
// workdir read-only" sandbox profile without requiring an actual OS-level
// sandbox (Reeves' process-launch boundary is the trust boundary; true
// kernel-level isolation is left to the deployment environment, per the
// open timeout question in §9).
func (l *Launcher) RunExtractor(ctx context.Context, cratePath string) (Record, error) {
	cmd := l.execCommand(ctx, l.reevesPath, "analyze-and-print", cratePath)
	cmd.Dir = cratePath
	cmd.Env = append(os.Environ(), "GOPROXY=off", "GOFLAGS=-mod=readonly")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		out := stdout.Bytes()
		if len(out) > OutputSizeCap {
			out = out[:OutputSizeCap]
		}
		return Record{}, reeveserrors.Sandbox(
			fmt.Sprintf("extractor process failed: %v (stderr: %s, stdout: %s)", err, stderr.String(), out), err)
	}

	rec, err := DecodeRecord(stdout.Bytes())
	if err != nil {
		return Record{}, reeveserrors.Sandbox("extractor produced unparseable output", err)
	}
	return rec, nil
}
