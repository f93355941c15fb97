package extract

import "errors"

// Sentinel failure modes the Orchestrator matches against when deciding
// whether a crate-level failure is recoverable (it always is) versus one
// worth surfacing distinctly in logs.
var (
	ErrWorkspaceNotSinglePackage   = errors.New("workspace names more than one module")
	ErrNoLibraryTarget             = errors.New("module contains no importable library package")
	ErrSemanticLibraryFailedToLoad = errors.New("one or more packages failed to type-check")
	ErrPackageNotFoundInCrateGraph = errors.New("package load returned no packages")
)
