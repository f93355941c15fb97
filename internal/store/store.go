package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

// fnDetailCacheSize bounds the in-memory GetFnDetail cache. A search that
// repeatedly re-resolves the same popular function ids across successive
// queries (a long-running `serve` process) amortizes the bbolt read after
// the first hit instead of paying a transaction per id on every request.
const fnDetailCacheSize = 4096

var (
	bucketMeta  = []byte("meta")
	bucketFn    = []byte("fn")
	bucketParam = []byte("param")
	bucketRet   = []byte("ret")
	bucketCrate = []byte("crate")

	keyNextFnID = []byte("next_fn_id")
)

// Store is Reeves' transactional Index Store: one bbolt file holding the
// meta/fn/param/ret/crate keyspaces described in the data model.
type Store struct {
	db      *bolt.DB
	lock    *flock.Flock
	path    string
	fnCache *lru.Cache[uint64, FnDetail]
}

// Open creates the store at path if absent and initializes next_fn_id on
// first use. It takes an exclusive process-level lock on path+".lock" so a
// second reeves process gets a clear error instead of blocking indefinitely
// on bbolt's own file lock.
func Open(path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, reeveserrors.Store("failed to acquire store lock", err)
	}
	if !locked {
		return nil, reeveserrors.Store(fmt.Sprintf("another reeves process holds %s", path), nil)
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = lock.Unlock()
		return nil, reeveserrors.Store("failed to open index store", err)
	}

	fnCache, err := lru.New[uint64, FnDetail](fnDetailCacheSize)
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, reeveserrors.Store("failed to allocate fn detail cache", err)
	}

	s := &Store{db: db, lock: lock, path: path, fnCache: fnCache}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketFn, bucketParam, bucketRet, bucketCrate} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(keyNextFnID) == nil {
			return meta.Put(keyNextFnID, encodeUint64(0))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, reeveserrors.Store("failed to initialize index store", err)
	}

	return s, nil
}

// Close releases the bbolt file and the process lock.
func (s *Store) Close() error {
	closeErr := s.db.Close()
	unlockErr := s.lock.Unlock()
	if closeErr != nil {
		return reeveserrors.Store("failed to close index store", closeErr)
	}
	if unlockErr != nil {
		return reeveserrors.Store("failed to release store lock", unlockErr)
	}
	return nil
}

// Path returns the on-disk path this store was opened from.
func (s *Store) Path() string { return s.path }

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// HasCrate reports whether crate[name] exists with the given version,
// including a crate record that represents a previously failed analysis
// (SaveAnalysisError), per spec.md's "so the Orchestrator will not retry".
func (s *Store) HasCrate(name, version string) (bool, error) {
	var has bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCrate).Get([]byte(name))
		if raw == nil {
			return nil
		}
		var rec CrateRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		has = rec.Version == version
		return nil
	})
	if err != nil {
		return false, reeveserrors.Store("failed to read crate record", err)
	}
	return has, nil
}

// CrateRecordFor returns the stored record for name, and whether it exists.
func (s *Store) CrateRecordFor(name string) (CrateRecord, bool, error) {
	var rec CrateRecord
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCrate).Get([]byte(name))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return CrateRecord{}, false, reeveserrors.Store("failed to read crate record", err)
	}
	return rec, found, nil
}

// ReserveIDs reads next_fn_id, advances it by n, and returns the first id in
// the reserved range. It runs in its own short transaction, independent of
// the bulk write that will eventually consume the ids.
func (s *Store) ReserveIDs(n int) (uint64, error) {
	if n < 0 {
		return 0, reeveserrors.Store("cannot reserve a negative id count", nil)
	}
	var first uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		first = decodeUint64(meta.Get(keyNextFnID))
		return meta.Put(keyNextFnID, encodeUint64(first+uint64(n)))
	})
	if err != nil {
		return 0, reeveserrors.Store("failed to reserve fn id range", err)
	}
	return first, nil
}

// AddCrate assigns ids to details, unions them into the param/ret posting
// sets, stores each FnDetail, and stores the crate record — all inside one
// transaction.
func (s *Store) AddCrate(name, version string, details []FnDetail) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.addCrateTx(tx, name, version, details)
	})
}

// addCrateTx performs AddCrate's work against an already-open transaction,
// so SaveAnalysis can combine purge+add into one atomic write.
func (s *Store) addCrateTx(tx *bolt.Tx, name, version string, details []FnDetail) error {
	meta := tx.Bucket(bucketMeta)
	first := decodeUint64(meta.Get(keyNextFnID))
	if err := meta.Put(keyNextFnID, encodeUint64(first+uint64(len(details)))); err != nil {
		return err
	}

	fnBucket := tx.Bucket(bucketFn)
	crateBucket := tx.Bucket(bucketCrate)

	// Precompute per-type id sets outside of any one posting read, so each
	// posting bucket key is read-modified-written exactly once regardless
	// of how many functions in this batch reference it.
	paramAdds := make(map[string][]uint64)
	retAdds := make(map[string][]uint64)

	fnIDs := make([]uint64, 0, len(details))
	for i, detail := range details {
		id := first + uint64(i)
		fnIDs = append(fnIDs, id)

		paramKeys := detail.Params
		if len(paramKeys) == 0 {
			paramKeys = []string{NoArgsSentinel}
		}
		for _, p := range paramKeys {
			paramAdds[p] = append(paramAdds[p], id)
		}
		retAdds[detail.Ret] = append(retAdds[detail.Ret], id)

		raw, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		if err := fnBucket.Put(encodeUint64(id), raw); err != nil {
			return err
		}
	}

	if err := unionPostings(tx.Bucket(bucketParam), paramAdds); err != nil {
		return err
	}
	if err := unionPostings(tx.Bucket(bucketRet), retAdds); err != nil {
		return err
	}

	rec := CrateRecord{Version: version, FnIDs: fnIDs}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return crateBucket.Put([]byte(name), raw)
}

// unionPostings reads each named posting bitmap, unions in the given ids,
// and writes it back — one read-modify-write per distinct key, regardless
// of how many ids are being added to it.
func unionPostings(bucket *bolt.Bucket, adds map[string][]uint64) error {
	for key, ids := range adds {
		bm, err := loadBitmap(bucket, key)
		if err != nil {
			return err
		}
		for _, id := range ids {
			bm.Add(uint32OrPanic(id))
		}
		raw, err := bm.MarshalBinary()
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(key), raw); err != nil {
			return err
		}
	}
	return nil
}

// loadBitmap reads the posting bitmap for key, returning an empty bitmap if
// absent — "absent from the keyspace" is the expected state for a type that
// has never been seen, not an error.
func loadBitmap(bucket *bolt.Bucket, key string) (*roaring.Bitmap, error) {
	bm := roaring.New()
	raw := bucket.Get([]byte(key))
	if raw == nil {
		return bm, nil
	}
	if err := bm.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("corrupt posting bitmap for %q: %w", key, err)
	}
	return bm, nil
}

// uint32OrPanic narrows a fn id to the 32-bit domain roaring bitmaps index
// over. Reeves' id space (monotonic counter, never reused) is not expected
// to exceed 2^32 entries in practice; this mirrors the original's choice of
// a single bitmap implementation rather than a 64-bit sharded one.
func uint32OrPanic(id uint64) uint32 {
	if id > uint64(^uint32(0)) {
		panic(fmt.Sprintf("fn id %d exceeds roaring bitmap's 32-bit id space", id))
	}
	return uint32(id)
}

// PurgeCrate removes name's crate record, its owned FnDetails, and their
// entries in every param/ret posting they appear in. No-op if absent.
func (s *Store) PurgeCrate(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.purgeCrateTx(tx, name)
	})
}

func (s *Store) purgeCrateTx(tx *bolt.Tx, name string) error {
	crateBucket := tx.Bucket(bucketCrate)
	raw := crateBucket.Get([]byte(name))
	if raw == nil {
		return nil
	}
	var rec CrateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}

	fnBucket := tx.Bucket(bucketFn)
	paramBucket := tx.Bucket(bucketParam)
	retBucket := tx.Bucket(bucketRet)

	paramRemoves := make(map[string][]uint64)
	retRemoves := make(map[string][]uint64)

	for _, id := range rec.FnIDs {
		key := encodeUint64(id)
		detailRaw := fnBucket.Get(key)
		if detailRaw == nil {
			continue // already gone; tolerate a dangling id rather than fail the purge
		}
		var detail FnDetail
		if err := json.Unmarshal(detailRaw, &detail); err != nil {
			return err
		}
		if err := fnBucket.Delete(key); err != nil {
			return err
		}
		s.fnCache.Remove(id)

		paramKeys := detail.Params
		if len(paramKeys) == 0 {
			paramKeys = []string{NoArgsSentinel}
		}
		for _, p := range paramKeys {
			paramRemoves[p] = append(paramRemoves[p], id)
		}
		retRemoves[detail.Ret] = append(retRemoves[detail.Ret], id)
	}

	if err := subtractPostings(paramBucket, paramRemoves); err != nil {
		return err
	}
	if err := subtractPostings(retBucket, retRemoves); err != nil {
		return err
	}

	return crateBucket.Delete([]byte(name))
}

// subtractPostings is unionPostings' inverse: remove ids from each named
// posting bitmap, deleting the key entirely once its bitmap is empty.
func subtractPostings(bucket *bolt.Bucket, removes map[string][]uint64) error {
	for key, ids := range removes {
		bm, err := loadBitmap(bucket, key)
		if err != nil {
			return err
		}
		for _, id := range ids {
			bm.Remove(uint32OrPanic(id))
		}
		if bm.IsEmpty() {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
			continue
		}
		raw, err := bm.MarshalBinary()
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(key), raw); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis replaces name's crate record with a new one built from
// details, atomically: the purge and the add run in a single bbolt
// transaction, which closes the "tolerable window" spec.md allows for a
// two-transaction implementation since bbolt already serializes writers.
func (s *Store) SaveAnalysis(name, version string, details []FnDetail) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := s.purgeCrateTx(tx, name); err != nil {
			return err
		}
		return s.addCrateTx(tx, name, version, details)
	})
	if err != nil {
		return reeveserrors.Store(fmt.Sprintf("failed to save analysis for %s@%s", name, version), err)
	}
	return nil
}

// SaveAnalysisError records a failed analysis so has_crate(name, version)
// becomes true and the Orchestrator will not retry it.
func (s *Store) SaveAnalysisError(name, version, errMsg string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := s.purgeCrateTx(tx, name); err != nil {
			return err
		}
		rec := CrateRecord{Version: version, Err: errMsg}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCrate).Put([]byte(name), raw)
	})
	if err != nil {
		return reeveserrors.Store(fmt.Sprintf("failed to save analysis error for %s@%s", name, version), err)
	}
	return nil
}

// GetFnDetail fetches a single FnDetail by id, serving repeated lookups of
// the same id from an in-memory cache.
func (s *Store) GetFnDetail(id uint64) (FnDetail, bool, error) {
	if detail, ok := s.fnCache.Get(id); ok {
		return detail, true, nil
	}

	var detail FnDetail
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketFn).Get(encodeUint64(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &detail)
	})
	if err != nil {
		return FnDetail{}, false, reeveserrors.Store("failed to read fn detail", err)
	}
	if found {
		s.fnCache.Add(id, detail)
	}
	return detail, found, nil
}

// ParamPosting returns the posting set for a param-keyspace type string, an
// empty bitmap if the type has never been seen.
func (s *Store) ParamPosting(typ string) (*roaring.Bitmap, error) {
	return s.posting(bucketParam, typ)
}

// RetPosting returns the posting set for a ret-keyspace type string.
func (s *Store) RetPosting(typ string) (*roaring.Bitmap, error) {
	return s.posting(bucketRet, typ)
}

func (s *Store) posting(bucketName []byte, typ string) (*roaring.Bitmap, error) {
	var bm *roaring.Bitmap
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		bm, err = loadBitmap(tx.Bucket(bucketName), typ)
		return err
	})
	if err != nil {
		return nil, reeveserrors.Store("failed to read posting set", err)
	}
	return bm, nil
}

// AllParamKeys returns every type string present in the param keyspace, for
// the Fuzzy Type Index's load protocol.
func (s *Store) AllParamKeys() ([]string, error) {
	return s.allKeys(bucketParam)
}

// AllRetKeys returns every type string present in the ret keyspace.
func (s *Store) AllRetKeys() ([]string, error) {
	return s.allKeys(bucketRet)
}

func (s *Store) allKeys(bucketName []byte) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, reeveserrors.Store("failed to list posting keys", err)
	}
	return keys, nil
}

// DebugDump writes a human-readable summary of every keyspace to w, for
// operator diagnostics (the debug-db CLI command).
func (s *Store) DebugDump(w func(format string, args ...interface{})) error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		w("next_fn_id = %d", decodeUint64(meta.Get(keyNextFnID)))

		w("crates:")
		err := tx.Bucket(bucketCrate).ForEach(func(k, v []byte) error {
			var rec CrateRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Failed() {
				w("  %s: FAILED (%s)", k, rec.Err)
			} else {
				w("  %s@%s: %d functions", k, rec.Version, len(rec.FnIDs))
			}
			return nil
		})
		if err != nil {
			return err
		}

		var fnCount, paramCount, retCount int
		_ = tx.Bucket(bucketFn).ForEach(func(_, _ []byte) error { fnCount++; return nil })
		_ = tx.Bucket(bucketParam).ForEach(func(_, _ []byte) error { paramCount++; return nil })
		_ = tx.Bucket(bucketRet).ForEach(func(_, _ []byte) error { retCount++; return nil })
		w("fn records: %d", fnCount)
		w("distinct param types: %d", paramCount)
		w("distinct ret types: %d", retCount)
		return nil
	})
}

// Remove deletes the store's backing file and lock file. Used by tests.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(path + ".lock"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
