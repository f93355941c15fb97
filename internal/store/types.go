// Package store implements Reeves' persistent Index Store: a transactional
// multi-keyspace key/value store over go.etcd.io/bbolt, with posting sets
// encoded as github.com/RoaringBitmap/roaring/v2 bitmaps.
package store

// FnDetail is the unit indexed record: one publicly reachable function-like
// item (a package-level function, or a method on an exported named type).
type FnDetail struct {
	// Krate is the owning Go module's import path.
	Krate string `json:"krate"`
	// Params is the ordered list of parameter type strings, one per
	// positional parameter (receiver included for methods). Empty for
	// zero-argument functions.
	Params []string `json:"params"`
	// Ret is the pretty-printed return type, "()" for no results.
	Ret string `json:"ret"`
	// S is the canonical display/tie-break string:
	// "fn {path}({p1}, {p2}, ...) -> {ret}".
	S string `json:"s"`
}

// CrateRecord is the per-module record stored in the crate keyspace.
type CrateRecord struct {
	Version string   `json:"version"`
	FnIDs   []uint64 `json:"fn_ids"`
	// Err holds the analysis failure message when this record was written
	// by SaveAnalysisError. Empty for a successful ingestion.
	Err string `json:"err,omitempty"`
}

// Failed reports whether this record represents a failed analysis.
func (c CrateRecord) Failed() bool {
	return c.Err != ""
}

// NoArgsSentinel is the reserved param-keyspace key for zero-argument
// functions. It must never collide with a real type string.
const NoArgsSentinel = "<NOARGS>"

// MaxResults is the hard cap on a single Search call's result length.
const MaxResults = 500
