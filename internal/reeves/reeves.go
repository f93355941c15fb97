// Package reeves is the thin Query/Ingestion API facade composing the
// Index Store, Fuzzy Type Index, Search Engine, and Signature Extractor.
// The HTTP server and the CLI's store-backed commands call through here.
// The CLI's analyze-and-print commands call the extractor directly, and
// its corpus commands drive the orchestrator package directly.
package reeves

import (
	"context"
	"sync"

	"github.com/reeves-dev/reeves/internal/extract"
	"github.com/reeves-dev/reeves/internal/fuzzy"
	"github.com/reeves-dev/reeves/internal/search"
	"github.com/reeves-dev/reeves/internal/store"
)

// Reeves holds the opened Index Store and the currently loaded Fuzzy
// Type Index (nil until LoadTextSearch is called).
type Reeves struct {
	store *store.Store

	mu   sync.RWMutex
	text *fuzzy.TextSearch
}

// OpenStore opens (creating if absent) the Index Store at path.
func OpenStore(path string) (*Reeves, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reeves{store: st}, nil
}

// Close releases the Index Store and Fuzzy Type Index.
func (r *Reeves) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.text != nil {
		_ = r.text.Close()
	}
	return r.store.Close()
}

// HasCrate reports whether name@version already has a recorded analysis
// (successful or failed) in the Index Store.
func (r *Reeves) HasCrate(name, version string) (bool, error) {
	return r.store.HasCrate(name, version)
}

// SaveAnalysis persists a successful extraction, replacing any prior
// record for name.
func (r *Reeves) SaveAnalysis(name, version string, details []store.FnDetail) error {
	return r.store.SaveAnalysis(name, version, details)
}

// SaveAnalysisError persists a failure record so HasCrate becomes true
// and the Orchestrator will not retry this target.
func (r *Reeves) SaveAnalysisError(name, version, errMsg string) error {
	return r.store.SaveAnalysisError(name, version, errMsg)
}

// LoadTextSearch rebuilds the Fuzzy Type Index from the Index Store's
// current param/ret keyspaces and swaps it in. There is no incremental
// update path — this must be re-run after any batch of SaveAnalysis calls
// changes the keyspaces a caller wants reflected in fuzzy search.
func (r *Reeves) LoadTextSearch() error {
	text, err := fuzzy.LoadTextSearch(r.store)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.text
	r.text = text
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search runs the two-level query against the currently loaded Fuzzy
// Type Index. Returns an error if LoadTextSearch has not been called yet.
func (r *Reeves) Search(ctx context.Context, paramsSearch []string, retSearch *string) ([]search.Result, error) {
	r.mu.RLock()
	text := r.text
	r.mu.RUnlock()

	if text == nil {
		return nil, errTextSearchNotLoaded
	}
	return search.Search(ctx, r.store, text, paramsSearch, retSearch)
}

// AnalyzeCratePath runs the Signature Extractor against a module's source
// tree directly (no sandbox, no mirror) — the path the CLI's
// analyze-and-save command uses.
func (r *Reeves) AnalyzeCratePath(dir string) (extract.Result, error) {
	return extract.Extract(dir)
}

// DebugDump writes a human-readable summary of every keyspace to w.
func (r *Reeves) DebugDump(w func(format string, args ...interface{})) error {
	return r.store.DebugDump(w)
}
