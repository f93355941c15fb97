// Package search implements Reeves' Search Engine: a two-level query that
// expands user-supplied type fragments through the Fuzzy Type Index, then
// intersects posting sets from the Index Store across a growing candidate
// radius to produce ranked, tiered results.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
	"github.com/reeves-dev/reeves/internal/fuzzy"
	"github.com/reeves-dev/reeves/internal/store"
)

// FUZZYSearchLimit is how many ranked candidates the fuzzy index contributes
// per query column.
const FUZZYSearchLimit = fuzzy.FUZZYSearchLimit

// MaxResults is the hard cap on a single Search call's result length.
const MaxResults = store.MaxResults

// postingReader is the subset of the Index Store's read API the engine
// needs to resolve candidate types into fn-id sets and fn-ids into details.
type postingReader interface {
	ParamPosting(typ string) (*roaring.Bitmap, error)
	RetPosting(typ string) (*roaring.Bitmap, error)
	GetFnDetail(id uint64) (store.FnDetail, bool, error)
}

// textSearcher is the subset of the Fuzzy Type Index the engine queries for
// candidate type expansion.
type textSearcher interface {
	SearchParams(query string, limit int) ([]fuzzy.Hit, error)
	SearchRet(query string, limit int) ([]fuzzy.Hit, error)
}

// column is one query position's ranked candidate type strings, tagged with
// the keyspace (param or ret) its postings must be read from.
type column struct {
	keyspace fuzzy.Keyspace
	types    []string // best-first, truncated to FUZZYSearchLimit
}

// Result is one ranked hit: the stored detail plus the tier it was emitted
// in (0 = highest fuzzy precision).
type Result struct {
	store.FnDetail
	Tier int
}

// Search runs the two-level query described by paramsSearch and retSearch
// against text for candidate expansion and idx for posting intersection.
// Either input may be nil to match any value in that position; if both are
// nil the result is empty.
func Search(ctx context.Context, idx postingReader, text textSearcher, paramsSearch []string, retSearch *string) ([]Result, error) {
	if paramsSearch == nil && retSearch == nil {
		return nil, nil
	}

	params := paramsSearch
	if params != nil && len(params) == 0 {
		params = []string{store.NoArgsSentinel}
	}

	columns, err := buildCandidateColumns(ctx, text, params, retSearch)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}

	return intersectTiers(idx, columns)
}

// buildCandidateColumns runs one fuzzy query per column concurrently: one
// for retSearch against ret_types, one per element of params against
// param_types. Fuzzy-search round-trips are the only I/O in the engine, so
// fanning them out is a pure latency win with no ordering to preserve
// beyond column identity.
func buildCandidateColumns(ctx context.Context, text textSearcher, params []string, retSearch *string) ([]column, error) {
	n := len(params)
	if retSearch != nil {
		n++
	}
	columns := make([]column, n)

	g, _ := errgroup.WithContext(ctx)
	idx := 0
	if retSearch != nil {
		i := idx
		query := *retSearch
		g.Go(func() error {
			hits, err := text.SearchRet(query, FUZZYSearchLimit)
			if err != nil {
				return reeveserrors.Query(fmt.Sprintf("fuzzy ret search for %q failed", query), err)
			}
			columns[i] = column{keyspace: fuzzy.KeyspaceRet, types: hitTypes(hits)}
			return nil
		})
		idx++
	}
	for _, p := range params {
		i, query := idx, p
		g.Go(func() error {
			hits, err := text.SearchParams(query, FUZZYSearchLimit)
			if err != nil {
				return reeveserrors.Query(fmt.Sprintf("fuzzy param search for %q failed", query), err)
			}
			columns[i] = column{keyspace: fuzzy.KeyspaceParam, types: hitTypes(hits)}
			return nil
		})
		idx++
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return columns, nil
}

func hitTypes(hits []fuzzy.Hit) []string {
	types := make([]string, len(hits))
	for i, h := range hits {
		types[i] = h.OrigTy
	}
	return types
}

// intersectTiers implements the growing-radius algorithm: at radius i, each
// column contributes the union of postings for its top-min(i, len) ranked
// candidates; the iteration's fn-id set is the intersection of all column
// sets; ids not already emitted become a new tier.
func intersectTiers(idx postingReader, columns []column) ([]Result, error) {
	maxDepth := 0
	for _, c := range columns {
		if len(c.types) > maxDepth {
			maxDepth = len(c.types)
		}
	}

	emitted := roaring.New()
	var results []Result

	for depth := 1; depth <= maxDepth; depth++ {
		candidate, err := intersectAtDepth(idx, columns, depth)
		if err != nil {
			return nil, err
		}

		fresh := roaring.AndNot(candidate, emitted)
		if fresh.IsEmpty() {
			continue // column sets grow monotonically; a later depth may still succeed
		}
		emitted.Or(fresh)

		tierDetails, err := fetchTier(idx, fresh)
		if err != nil {
			return nil, err
		}
		sortTier(tierDetails)

		tierIndex := tierIndexOf(results)
		for _, d := range tierDetails {
			results = append(results, Result{FnDetail: d, Tier: tierIndex})
		}

		if len(results) >= MaxResults {
			results = results[:MaxResults]
			break
		}
	}

	return results, nil
}

// tierIndexOf returns the index the next tier should be labeled with: one
// past the highest tier already present, or 0 for the first tier.
func tierIndexOf(results []Result) int {
	if len(results) == 0 {
		return 0
	}
	return results[len(results)-1].Tier + 1
}

// intersectAtDepth computes the intersection, across all columns, of the
// union of postings for each column's top-depth candidates.
func intersectAtDepth(idx postingReader, columns []column, depth int) (*roaring.Bitmap, error) {
	var acc *roaring.Bitmap
	for _, c := range columns {
		take := depth
		if take > len(c.types) {
			take = len(c.types)
		}

		colSet := roaring.New()
		for _, typ := range c.types[:take] {
			bm, err := readPosting(idx, c.keyspace, typ)
			if err != nil {
				return nil, err
			}
			colSet.Or(bm)
		}

		if acc == nil {
			acc = colSet
		} else {
			acc.And(colSet)
		}
	}
	if acc == nil {
		return roaring.New(), nil
	}
	return acc, nil
}

// readPosting fetches a candidate type's posting set. A candidate absent
// from the keyspace would be a bug in the fuzzy index (it was built from
// these same keys), but is tolerated as an empty posting rather than
// treated as fatal.
func readPosting(idx postingReader, keyspace fuzzy.Keyspace, typ string) (*roaring.Bitmap, error) {
	var bm *roaring.Bitmap
	var err error
	if keyspace == fuzzy.KeyspaceRet {
		bm, err = idx.RetPosting(typ)
	} else {
		bm, err = idx.ParamPosting(typ)
	}
	if err != nil {
		return nil, reeveserrors.Store(fmt.Sprintf("failed to read posting for %q", typ), err)
	}
	return bm, nil
}

func fetchTier(idx postingReader, ids *roaring.Bitmap) ([]store.FnDetail, error) {
	details := make([]store.FnDetail, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		id := uint64(it.Next())
		detail, found, err := idx.GetFnDetail(id)
		if err != nil {
			return nil, reeveserrors.Store(fmt.Sprintf("failed to read fn detail %d", id), err)
		}
		if !found {
			continue
		}
		details = append(details, detail)
	}
	return details, nil
}

// sortTier orders one tier's details by (krate, s) lexicographically,
// hiding the arbitrary iteration order of the underlying set operations.
func sortTier(details []store.FnDetail) {
	sort.Slice(details, func(i, j int) bool {
		if details[i].Krate != details[j].Krate {
			return details[i].Krate < details[j].Krate
		}
		return details[i].S < details[j].S
	})
}
