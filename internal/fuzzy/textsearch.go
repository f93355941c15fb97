package fuzzy

import (
	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

// keyLister is the subset of the Index Store's read API the text search
// needs to rebuild itself: the param_types and ret_types key streams.
type keyLister interface {
	AllParamKeys() ([]string, error)
	AllRetKeys() ([]string, error)
}

// TextSearch bundles the param_types and ret_types fuzzy indices the
// Search Engine consults for candidate type expansion.
type TextSearch struct {
	params *Index
	rets   *Index
}

// LoadTextSearch rebuilds both fuzzy indices from scratch from store's
// current param/ret keyspaces. There is no incremental update path: every
// call discards prior state and re-streams every key.
func LoadTextSearch(store keyLister) (*TextSearch, error) {
	paramKeys, err := store.AllParamKeys()
	if err != nil {
		return nil, reeveserrors.Query("failed to list param types for text search", err)
	}
	retKeys, err := store.AllRetKeys()
	if err != nil {
		return nil, reeveserrors.Query("failed to list ret types for text search", err)
	}

	params, err := Load(KeyspaceParam, paramKeys)
	if err != nil {
		return nil, err
	}
	rets, err := Load(KeyspaceRet, retKeys)
	if err != nil {
		_ = params.Close()
		return nil, err
	}

	return &TextSearch{params: params, rets: rets}, nil
}

// SearchParams runs a fuzzy query against the param_types index.
func (t *TextSearch) SearchParams(query string, limit int) ([]Hit, error) {
	return t.params.Search(query, limit)
}

// SearchRet runs a fuzzy query against the ret_types index.
func (t *TextSearch) SearchRet(query string, limit int) ([]Hit, error) {
	return t.rets.Search(query, limit)
}

// Close releases both underlying indices.
func (t *TextSearch) Close() error {
	paramErr := t.params.Close()
	retErr := t.rets.Close()
	if paramErr != nil {
		return paramErr
	}
	return retErr
}
