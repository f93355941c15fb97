package extract

import (
	"fmt"
	"go/types"
	"strings"
)

// qualifierFor returns a types.Qualifier that renders every package-level
// identifier, same-package ones included, by its full import path — the
// closest Go analog to the source's "crate::Type" qualified-path strings.
func qualifierFor(pkg *types.Package) types.Qualifier {
	return func(other *types.Package) string {
		return other.Path()
	}
}

// prettyType renders a single type per the source's pretty-printer
// convention, via go/types' own string renderer.
func prettyType(t types.Type, q types.Qualifier) string {
	return types.TypeString(t, q)
}

// prettyResults renders a function's result list as the spec's single
// "ret" string: "()" for no results, the bare type for exactly one, or a
// parenthesized tuple for more than one — Go's multi-return has no single
// "return type" the way a Rust function does, so this canonicalizes it the
// way go/types.TypeString renders a tuple.
func prettyResults(results *types.Tuple, q types.Qualifier) string {
	switch results.Len() {
	case 0:
		return "()"
	case 1:
		return prettyType(results.At(0).Type(), q)
	default:
		parts := make([]string, results.Len())
		for i := 0; i < results.Len(); i++ {
			parts[i] = prettyType(results.At(i).Type(), q)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// prettyParams renders a parameter tuple as an ordered list of pretty type
// strings, in declaration order.
func prettyParams(params *types.Tuple, q types.Qualifier) []string {
	out := make([]string, params.Len())
	for i := 0; i < params.Len(); i++ {
		out[i] = prettyType(params.At(i).Type(), q)
	}
	return out
}

// typeParamSuffix renders a generic signature's or named type's type
// parameter list verbatim, e.g. "[T, U]", or "" when there are none.
func typeParamSuffix(tparams *types.TypeParamList) string {
	if tparams == nil || tparams.Len() == 0 {
		return ""
	}
	names := make([]string, tparams.Len())
	for i := 0; i < tparams.Len(); i++ {
		names[i] = tparams.At(i).Obj().Name()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// displayString builds the canonical "fn {path}(p1, p2, ...) -> {ret}"
// tie-break string used for within-tier sorting.
func displayString(path string, params []string, ret string) string {
	return fmt.Sprintf("fn %s(%s) -> %s", path, strings.Join(params, ", "), ret)
}
