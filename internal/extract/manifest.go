package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"
)

// manifest is the resolved identity of the module under analysis: its
// import path (the Extractor's "crate name") and the version the
// Orchestrator extracted it at.
type manifest struct {
	modulePath string
	version    string
}

// dirVersionSuffix matches the "{name}-{version}" scratch directory naming
// convention from the Corpus Orchestrator's extraction step.
var dirVersionSuffix = regexp.MustCompile(`-(v\d+\.\d+\.\d+[^/]*)$`)

// resolveManifest parses go.mod for the module path and determines the
// version the Orchestrator extracted this tree at.
//
// Unlike Cargo.toml, go.mod carries no version field — Go modules are
// versioned by their VCS tag, not by manifest content. The Orchestrator
// already knows the version (it chose the tarball to extract), so it
// writes a sidecar .reeves-version file into the scratch directory before
// invoking the extractor; that is the primary source. Standalone
// invocations (analyze-and-print against an arbitrary checkout) fall back
// to the scratch directory's "{name}-{version}" suffix, then to
// "v0.0.0-unknown" when neither is available.
func resolveManifest(dir string) (manifest, error) {
	if err := checkNoNestedWorkspace(dir); err != nil {
		return manifest{}, err
	}

	modPath := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		return manifest{}, fmt.Errorf("read go.mod: %w", err)
	}
	mf, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return manifest{}, fmt.Errorf("parse go.mod: %w", err)
	}
	if mf.Module == nil || mf.Module.Mod.Path == "" {
		return manifest{}, fmt.Errorf("go.mod has no module directive")
	}

	return manifest{
		modulePath: mf.Module.Mod.Path,
		version:    resolveVersion(dir),
	}, nil
}

func resolveVersion(dir string) string {
	if raw, err := os.ReadFile(filepath.Join(dir, ".reeves-version")); err == nil {
		if v := strings.TrimSpace(string(raw)); v != "" {
			return v
		}
	}
	base := filepath.Base(filepath.Clean(dir))
	if m := dirVersionSuffix.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return "v0.0.0-unknown"
}

// checkNoNestedWorkspace rejects a go.work naming more than one module
// directory, mirroring the source's "workspace is a single crate" check.
func checkNoNestedWorkspace(dir string) error {
	workPath := filepath.Join(dir, "go.work")
	data, err := os.ReadFile(workPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read go.work: %w", err)
	}
	wf, err := modfile.ParseWork(workPath, data, nil)
	if err != nil {
		return fmt.Errorf("parse go.work: %w", err)
	}
	if len(wf.Use) > 1 {
		return ErrWorkspaceNotSinglePackage
	}
	return nil
}
