package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_InitializesEmptyKeyspaces(t *testing.T) {
	s := openTestStore(t)

	first, err := s.ReserveIDs(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first, "next_fn_id should start at 0")

	keys, err := s.AllParamKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpen_SecondProcessIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path)
	require.Error(t, err, "a second Open against the same path must fail fast rather than block")
}

func TestReserveIDs_AdvancesMonotonically(t *testing.T) {
	s := openTestStore(t)

	first, err := s.ReserveIDs(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first)

	second, err := s.ReserveIDs(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), second, "ids must never be reused across reservations")
}

func TestReserveIDs_RejectsNegativeCount(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ReserveIDs(-1)
	assert.Error(t, err)
}

func TestAddCrate_ZeroArgFunctionUsesNoArgsSentinel(t *testing.T) {
	s := openTestStore(t)

	details := []FnDetail{
		{Krate: "example.com/pkg", Params: nil, Ret: "error", S: "fn Foo() -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	bm, err := s.ParamPosting(NoArgsSentinel)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bm.GetCardinality(), "zero-arg function must be indexed under the no-args sentinel")
}

func TestAddCrate_UnionsPostingsAcrossSharedTypes(t *testing.T) {
	s := openTestStore(t)

	details := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
		{Krate: "example.com/pkg", Params: []string{"string", "int"}, Ret: "error", S: "fn B(string, int) -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	bm, err := s.ParamPosting("string")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), bm.GetCardinality(), "both functions take a string param")

	bm, err = s.ParamPosting("int")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bm.GetCardinality())

	bm, err = s.RetPosting("error")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), bm.GetCardinality())
}

func TestHasCrate_MatchesOnExactVersion(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", nil))

	has, err := s.HasCrate("example.com/pkg", "v1.0.0")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasCrate("example.com/pkg", "v2.0.0")
	require.NoError(t, err)
	assert.False(t, has, "a different version must not count as already analyzed")

	has, err = s.HasCrate("example.com/other", "v1.0.0")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSaveAnalysisError_CountsAsHasCrate(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveAnalysisError("example.com/broken", "v1.0.0", "go/packages: build failed"))

	has, err := s.HasCrate("example.com/broken", "v1.0.0")
	require.NoError(t, err)
	assert.True(t, has, "a recorded failure must stop the orchestrator from retrying it")

	rec, found, err := s.CrateRecordFor("example.com/broken")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.Failed())
	assert.Equal(t, "go/packages: build failed", rec.Err)
}

func TestPurgeCrate_RemovesFnDetailsAndPostings(t *testing.T) {
	s := openTestStore(t)
	details := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	require.NoError(t, s.PurgeCrate("example.com/pkg"))

	_, found, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	assert.False(t, found)

	bm, err := s.ParamPosting("string")
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty(), "a fully purged type must not leave a dangling posting key")
}

func TestPurgeCrate_AbsentCrateIsNoOp(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.PurgeCrate("example.com/never-added"))
}

func TestSaveAnalysis_ReplacesPreviousFunctionsAtomically(t *testing.T) {
	s := openTestStore(t)

	v1 := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
	}
	require.NoError(t, s.SaveAnalysis("example.com/pkg", "v1.0.0", v1))

	v2 := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"int"}, Ret: "bool", S: "fn B(int) -> bool"},
	}
	require.NoError(t, s.SaveAnalysis("example.com/pkg", "v2.0.0", v2))

	has, err := s.HasCrate("example.com/pkg", "v2.0.0")
	require.NoError(t, err)
	assert.True(t, has)

	bm, err := s.ParamPosting("string")
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty(), "v1's param posting must be fully replaced, not merged")

	bm, err = s.ParamPosting("int")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bm.GetCardinality())
}

func TestSaveAnalysis_NeverReusesFnIDsAcrossReplaces(t *testing.T) {
	s := openTestStore(t)

	v1 := []FnDetail{
		{Krate: "example.com/pkg", Params: nil, Ret: "error", S: "fn A() -> error"},
	}
	require.NoError(t, s.SaveAnalysis("example.com/pkg", "v1.0.0", v1))
	rec1, _, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	require.Len(t, rec1.FnIDs, 1)
	firstID := rec1.FnIDs[0]

	v2 := []FnDetail{
		{Krate: "example.com/pkg", Params: nil, Ret: "error", S: "fn A() -> error"},
		{Krate: "example.com/pkg", Params: nil, Ret: "bool", S: "fn B() -> bool"},
	}
	require.NoError(t, s.SaveAnalysis("example.com/pkg", "v2.0.0", v2))
	rec2, _, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	require.Len(t, rec2.FnIDs, 2)

	for _, id := range rec2.FnIDs {
		assert.NotEqual(t, firstID, id, "replacing a crate must assign fresh ids, never reuse a purged one")
	}

	_, found, err := s.GetFnDetail(firstID)
	require.NoError(t, err)
	assert.False(t, found, "the purged v1 fn detail must be gone")
}

func TestGetFnDetail_RoundTripsStoredDetail(t *testing.T) {
	s := openTestStore(t)
	details := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string", "int"}, Ret: "error", S: "fn A(string, int) -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	rec, found, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, rec.FnIDs, 1)

	detail, found, err := s.GetFnDetail(rec.FnIDs[0])
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, details[0], detail)
}

func TestGetFnDetail_MissingIDReturnsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.GetFnDetail(999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetFnDetail_RepeatedLookupsAreServedFromCache(t *testing.T) {
	s := openTestStore(t)
	details := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	rec, _, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	id := rec.FnIDs[0]

	first, found, err := s.GetFnDetail(id)
	require.NoError(t, err)
	require.True(t, found)

	second, found, err := s.GetFnDetail(id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, second)

	_, cached := s.fnCache.Get(id)
	assert.True(t, cached, "a prior GetFnDetail call should have populated the cache")
}

func TestGetFnDetail_PurgeInvalidatesCachedEntry(t *testing.T) {
	s := openTestStore(t)
	details := []FnDetail{
		{Krate: "example.com/pkg", Params: nil, Ret: "error", S: "fn A() -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	rec, _, err := s.CrateRecordFor("example.com/pkg")
	require.NoError(t, err)
	id := rec.FnIDs[0]

	_, found, err := s.GetFnDetail(id)
	require.NoError(t, err)
	require.True(t, found, "must be cached before the purge")

	require.NoError(t, s.PurgeCrate("example.com/pkg"))

	_, cached := s.fnCache.Get(id)
	assert.False(t, cached, "purging a crate must evict its fn ids from the cache")

	_, found, err = s.GetFnDetail(id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAllParamKeys_ReflectsEveryDistinctType(t *testing.T) {
	s := openTestStore(t)
	details := []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
		{Krate: "example.com/pkg", Params: []string{"int"}, Ret: "error", S: "fn B(int) -> error"},
		{Krate: "example.com/pkg", Params: nil, Ret: "error", S: "fn C() -> error"},
	}
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", details))

	keys, err := s.AllParamKeys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"string", "int", NoArgsSentinel}, keys)
}

func TestDebugDump_ReportsCratesAndCounts(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddCrate("example.com/pkg", "v1.0.0", []FnDetail{
		{Krate: "example.com/pkg", Params: []string{"string"}, Ret: "error", S: "fn A(string) -> error"},
	}))
	require.NoError(t, s.SaveAnalysisError("example.com/broken", "v1.0.0", "boom"))

	var lines []string
	err := s.DebugDump(func(format string, args ...interface{}) {
		lines = append(lines, format)
		_ = args
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lines)
	assert.Contains(t, lines, "crates:")
	assert.Contains(t, lines, "  %s@%s: %d functions")
	assert.Contains(t, lines, "  %s: FAILED (%s)")
	assert.Contains(t, lines, "fn records: %d")
}
