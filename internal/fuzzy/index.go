package fuzzy

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

// AnalyzerName is the custom analyzer wrapping TokenizerName, registered as
// the default analyzer for every fuzzy index this package opens.
const AnalyzerName = "reeves_type_analyzer"

// FUZZYSearchLimit caps the number of hits a single fuzzy query returns.
const FUZZYSearchLimit = 100

// loadBatchSize is the number of documents queued per bleve.Batch during a
// load, matching the "durable batches of 500" load protocol.
const loadBatchSize = 500

// Keyspace identifies which Index Store keyspace a type string came from.
type Keyspace string

const (
	KeyspaceParam Keyspace = "param"
	KeyspaceRet   Keyspace = "ret"
)

// typeDoc is the document bleve indexes for one stored type string: ty is
// the analyzed/searchable tokenized form, orig_ty is the stored, unanalyzed
// original key returned on every hit.
type typeDoc struct {
	Ty     string `json:"ty"`
	OrigTy string `json:"orig_ty"`
}

// Hit is one fuzzy-search result: the original, untokenized type string.
type Hit struct {
	OrigTy string
}

// Index wraps a single bleve index over one keyspace's type strings.
type Index struct {
	bleveIdx bleve.Index
	keyspace Keyspace
}

// newIndexMapping builds the shared mapping: ty is tokenized and searched,
// orig_ty is stored verbatim and excluded from analysis.
func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TokenizerName,
		// No lowercase filter: the tokenizer is a pure delimiter-splitter,
		// not a case-insensitive search, per the tokenization contract.
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	im.DefaultAnalyzer = AnalyzerName

	tyField := bleve.NewTextFieldMapping()
	tyField.Analyzer = AnalyzerName
	tyField.Store = false

	origField := bleve.NewTextFieldMapping()
	origField.Analyzer = "keyword"
	origField.Store = true
	origField.Index = false
	origField.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("ty", tyField)
	doc.AddFieldMappingsAt("orig_ty", origField)
	im.DefaultMapping = doc

	return im, nil
}

// openFresh deletes any in-memory state and opens a brand-new in-memory
// index for keyspace, per the load protocol's "delete the index if present,
// create it with [settings]" step. Reeves rebuilds these indices from
// scratch on every load_text_search rather than persisting them, since
// their state is fully derivable from the Index Store.
func openFresh(keyspace Keyspace) (*Index, error) {
	im, err := newIndexMapping()
	if err != nil {
		return nil, reeveserrors.Query("failed to build fuzzy index mapping", err)
	}
	bi, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, reeveserrors.Query("failed to create fuzzy index", err)
	}
	return &Index{bleveIdx: bi, keyspace: keyspace}, nil
}

// Load (re)builds the index from keys, batching in groups of loadBatchSize
// and waiting for each batch to complete before queuing the next.
func Load(keyspace Keyspace, keys []string) (*Index, error) {
	idx, err := openFresh(keyspace)
	if err != nil {
		return nil, err
	}

	batch := idx.bleveIdx.NewBatch()
	for i, key := range keys {
		doc := typeDoc{Ty: TokenizeString(key), OrigTy: key}
		if err := batch.Index(fmt.Sprintf("%d", i), doc); err != nil {
			_ = idx.Close()
			return nil, reeveserrors.Query(fmt.Sprintf("failed to stage %s type %q", keyspace, key), err)
		}
		if batch.Size() >= loadBatchSize {
			if err := idx.bleveIdx.Batch(batch); err != nil {
				_ = idx.Close()
				return nil, reeveserrors.Query(fmt.Sprintf("failed to index %s batch", keyspace), err)
			}
			batch = idx.bleveIdx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.bleveIdx.Batch(batch); err != nil {
			_ = idx.Close()
			return nil, reeveserrors.Query(fmt.Sprintf("failed to index final %s batch", keyspace), err)
		}
	}

	return idx, nil
}

// Search runs a fuzzy query against the index, returning up to limit hits
// ordered best-first. query is tokenized the same way stored keys were, so
// a query like "&EntryType" matches a stored "&crate::EntryType".
func (idx *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > FUZZYSearchLimit {
		limit = FUZZYSearchLimit
	}

	q := bleve.NewMatchQuery(TokenizeString(query))
	q.SetField("ty")

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"orig_ty"}

	result, err := idx.bleveIdx.Search(req)
	if err != nil {
		return nil, reeveserrors.Query("fuzzy search failed", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		orig, _ := h.Fields["orig_ty"].(string)
		hits = append(hits, Hit{OrigTy: orig})
	}
	return hits, nil
}

// Close releases the index's in-memory resources.
func (idx *Index) Close() error {
	return idx.bleveIdx.Close()
}
