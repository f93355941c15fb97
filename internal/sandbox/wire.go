// Package sandbox implements Reeves' child-process boundary: launching a
// sandboxed extractor invocation and decoding the single structured record
// it emits on standard output.
package sandbox

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/reeves-dev/reeves/internal/store"
)

// OutputSizeCap bounds how much of a misbehaving child's stdout gets
// logged on failure, so a runaway extractor can't flood the parent's logs.
const OutputSizeCap = 1 << 20 // 1 MiB

// Record is the single value a sandboxed extractor invocation emits on
// stdout: either a successful extraction or a recorded failure, never
// both. Exactly one of Details (success) or Err (failure) is meaningful;
// which one is indicated by Ok.
type Record struct {
	CrateName    string
	CrateVersion string
	Ok           bool
	Details      []store.FnDetail
	Err          string
}

// EncodeRecord serializes rec as the binary blob written to stdout by the
// sandboxed extractor process.
func EncodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, fmt.Errorf("encode extractor record: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord deserializes a Record from the parent's view of the child's
// stdout.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("decode extractor record: %w", err)
	}
	return rec, nil
}
