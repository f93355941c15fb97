package server

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/reeves-dev/reeves/internal/store"
)

// SearchRequest is the binary request body for POST /reeves/search.
type SearchRequest struct {
	Params *[]string
	Ret    *string
}

// SearchResponse is the binary response body on a successful search.
type SearchResponse struct {
	FnDetails []store.FnDetail
}

// ErrorResponse is the binary response body on any failure, regardless
// of HTTP status.
type ErrorResponse struct {
	Err string
}

func decodeRequest(data []byte) (SearchRequest, error) {
	var req SearchRequest
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&req); err != nil {
		return SearchRequest{}, fmt.Errorf("decode search request: %w", err)
	}
	return req, nil
}

func encodeResponse(resp SearchResponse) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(resp); err != nil {
		return nil, fmt.Errorf("encode search response: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeError(msg string) []byte {
	var buf bytes.Buffer
	// Encoding into a fresh buffer with known concrete types never fails.
	_ = gob.NewEncoder(&buf).Encode(ErrorResponse{Err: msg})
	return buf.Bytes()
}
