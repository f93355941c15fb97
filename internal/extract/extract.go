// Package extract implements Reeves' Signature Extractor: given a single Go
// module's source tree, it emits one FnDetail per publicly reachable
// function-like item — package-level functions and exported methods on
// exported named types.
package extract

import (
	"fmt"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
	"github.com/reeves-dev/reeves/internal/store"
)

const loadMode = packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo |
	packages.NeedSyntax | packages.NeedDeps | packages.NeedImports

// Result is what Extract returns on success: the module's identity plus
// every FnDetail it found.
type Result struct {
	Name    string
	Version string
	Details []store.FnDetail
}

// Extract analyzes the Go module rooted at dir and returns its publicly
// reachable function-like items. The load never touches the network:
// build-script-equivalent steps (go:generate, cgo preprocessing needing
// remote modules) are not executed.
func Extract(dir string) (Result, error) {
	m, err := resolveManifest(dir)
	if err != nil {
		return Result{}, reeveserrors.Extractor(fmt.Sprintf("failed to resolve module manifest in %s", dir), err)
	}

	cfg := &packages.Config{
		Mode: loadMode,
		Dir:  dir,
		Env: append(currentEnv(),
			"GOFLAGS=-mod=mod",
			"GOPROXY=off",
			"GOSUMDB=off",
		),
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return Result{}, reeveserrors.Extractor("failed to load package graph", err)
	}
	if len(pkgs) == 0 {
		return Result{}, reeveserrors.Extractor(ErrPackageNotFoundInCrateGraph.Error(), ErrPackageNotFoundInCrateGraph)
	}

	var loadErrs []string
	for _, p := range pkgs {
		for _, e := range p.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	}
	if len(loadErrs) > 0 {
		return Result{}, reeveserrors.Extractor(
			fmt.Sprintf("%s: %s", ErrSemanticLibraryFailedToLoad.Error(), strings.Join(loadErrs, "; ")),
			ErrSemanticLibraryFailedToLoad)
	}

	libraryPkgs := filterLibraryTargets(pkgs)
	if len(libraryPkgs) == 0 {
		return Result{}, reeveserrors.Extractor(ErrNoLibraryTarget.Error(), ErrNoLibraryTarget)
	}

	var details []store.FnDetail
	for _, pkg := range libraryPkgs {
		details = append(details, extractPackage(pkg, m.modulePath)...)
	}

	return Result{Name: m.modulePath, Version: m.version, Details: details}, nil
}

// filterLibraryTargets drops main packages and internal/ or cmd/ trees,
// which are not importable from outside the module and so are not library
// targets in the sense the extractor cares about. Multiple remaining
// top-level packages still count as one library target: Go modules, unlike
// Cargo crates, have no single manifest-declared "the lib".
func filterLibraryTargets(pkgs []*packages.Package) []*packages.Package {
	var out []*packages.Package
	for _, pkg := range pkgs {
		if pkg.Name == "main" {
			continue
		}
		if isExcludedPath(pkg.PkgPath) {
			continue
		}
		out = append(out, pkg)
	}
	return out
}

func isExcludedPath(pkgPath string) bool {
	segments := strings.Split(pkgPath, "/")
	for _, s := range segments {
		if s == "internal" || s == "cmd" {
			return true
		}
	}
	return false
}

// extractPackage walks one package's scope, emitting a FnDetail per
// exported top-level function and per exported method on every exported
// named type. Interfaces emit nothing. The result is sorted by its display
// string S, which is stable across runs for the same source tree.
func extractPackage(pkg *packages.Package, modulePath string) []store.FnDetail {
	scope := pkg.Types.Scope()
	q := qualifierFor(pkg.Types)

	seen := make(map[types.Object]bool)
	var details []store.FnDetail

	names := scope.Names() // already lexically sorted
	for _, name := range names {
		obj := scope.Lookup(name)
		if !obj.Exported() || seen[obj] {
			continue
		}
		seen[obj] = true

		switch o := obj.(type) {
		case *types.Func:
			details = append(details, extractFunc(pkg.PkgPath, o.Name(), o.Type().(*types.Signature), q)...)

		case *types.TypeName:
			details = append(details, extractNamedTypeMethods(pkg.PkgPath, o, q, seen)...)
		}
	}

	for i := range details {
		details[i].Krate = modulePath
	}

	sort.SliceStable(details, func(i, j int) bool { return details[i].S < details[j].S })
	return details
}

// extractFunc builds the FnDetail for one package-level function.
func extractFunc(pkgPath, name string, sig *types.Signature, q types.Qualifier) []store.FnDetail {
	path := pkgPath + "." + name + typeParamSuffix(sig.TypeParams())
	params := prettyParams(sig.Params(), q)
	ret := prettyResults(sig.Results(), q)
	return []store.FnDetail{{
		Params: params,
		Ret:    ret,
		S:      displayString(path, params, ret),
	}}
}

// extractNamedTypeMethods enumerates one exported named type's method set
// and emits a FnDetail per exported method, with the receiver as the first
// parameter. Interfaces emit nothing — whether to surface trait/interface
// method sets is left unresolved, matching the source.
func extractNamedTypeMethods(pkgPath string, tn *types.TypeName, q types.Qualifier, seen map[types.Object]bool) []store.FnDetail {
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil
	}
	if _, isIface := named.Underlying().(*types.Interface); isIface {
		return nil
	}

	typePath := pkgPath + "." + tn.Name() + typeParamSuffix(named.TypeParams())

	methodSet := types.NewMethodSet(types.NewPointer(named))
	var details []store.FnDetail
	for i := 0; i < methodSet.Len(); i++ {
		sel := methodSet.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() || seen[fn] {
			continue
		}
		seen[fn] = true

		sig := fn.Type().(*types.Signature)
		receiverStr := prettyType(sig.Recv().Type(), q)

		path := typePath + "." + fn.Name()
		params := append([]string{receiverStr}, prettyParams(sig.Params(), q)...)
		ret := prettyResults(sig.Results(), q)
		details = append(details, store.FnDetail{
			Params: params,
			Ret:    ret,
			S:      displayString(path, params, ret),
		})
	}
	return details
}
