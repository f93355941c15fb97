package orchestrator

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeves-dev/reeves/internal/sandbox"
	"github.com/reeves-dev/reeves/internal/store"
)

type fakeStore struct {
	mu       sync.Mutex
	has      map[string]bool
	saved    map[string][]store.FnDetail
	failures map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		has:      map[string]bool{},
		saved:    map[string][]store.FnDetail{},
		failures: map[string]string{},
	}
}

func key(name, version string) string { return name + "@" + version }

func (f *fakeStore) HasCrate(name, version string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.has[key(name, version)], nil
}

func (f *fakeStore) SaveAnalysis(name, version string, details []store.FnDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key(name, version)] = details
	f.has[key(name, version)] = true
	return nil
}

func (f *fakeStore) SaveAnalysisError(name, version, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key(name, version)] = errMsg
	f.has[key(name, version)] = true
	return nil
}

type fakeLauncher struct {
	warmErr    error
	extractErr error
	record     sandbox.Record
}

func (f *fakeLauncher) WarmCaches(ctx context.Context, workdir string) error {
	return f.warmErr
}

func (f *fakeLauncher) RunExtractor(ctx context.Context, cratePath string) (sandbox.Record, error) {
	if f.extractErr != nil {
		return sandbox.Record{}, f.extractErr
	}
	return f.record, nil
}

func writeFakeTarball(t *testing.T, mirrorRoot, name, version string) {
	t.Helper()
	full := filepath.Join(mirrorRoot, relTarballDir(name), version, name+"-"+version+".crate")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))

	f, err := os.Create(full)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	content := []byte("module " + name + "\n\ngo 1.25\n")
	hdr := &tar.Header{
		Name:     name + "-" + version + "/go.mod",
		Mode:     0o644,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err = tw.Write(content)
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func relTarballDir(name string) string {
	// mirrors mirror.PackagePath's sharding without its version/filename suffix
	return filepath.Join("crates", name[:2], name[2:4])
}

func TestRun_SkipsCratesAlreadyInStore(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")

	st := newFakeStore()
	st.has[key("widget", "1.0.0")] = true

	launcher := &fakeLauncher{record: sandbox.Record{Ok: true}}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{{Name: "widget", Version: "1.0.0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Ok)
}

func TestRun_SuccessfulExtractionPersistsAnalysis(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")

	st := newFakeStore()
	details := []store.FnDetail{{Krate: "widget", Ret: "error", S: "fn widget.Make() -> error"}}
	launcher := &fakeLauncher{record: sandbox.Record{Ok: true, Details: details}}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{{Name: "widget", Version: "1.0.0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ok)
	assert.Equal(t, details, st.saved[key("widget", "1.0.0")])
}

func TestRun_SandboxFailureRecordsAnalysisError(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")

	st := newFakeStore()
	launcher := &fakeLauncher{extractErr: newTestErr("sandbox exploded")}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{{Name: "widget", Version: "1.0.0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, st.failures[key("widget", "1.0.0")], "sandbox exploded")
}

func TestRun_ExtractorReportedFailureRecordsAnalysisError(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")

	st := newFakeStore()
	launcher := &fakeLauncher{record: sandbox.Record{Ok: false, Err: "type-check failed"}}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{{Name: "widget", Version: "1.0.0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, "type-check failed", st.failures[key("widget", "1.0.0")])
}

func TestRun_MissingTarballRecordsAnalysisErrorWithoutAbortingRun(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")
	// "gadget" has no tarball on disk.

	st := newFakeStore()
	launcher := &fakeLauncher{record: sandbox.Record{Ok: true}}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{
		{Name: "gadget", Version: "1.0.0"},
		{Name: "widget", Version: "1.0.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Ok)
}

func TestRun_WorkerPanicIsRecoveredAsFailure(t *testing.T) {
	mirrorRoot := t.TempDir()
	writeFakeTarball(t, mirrorRoot, "widget", "1.0.0")

	st := newFakeStore()
	launcher := &panickingLauncher{}
	o := New(Config{MirrorRoot: mirrorRoot, ScratchRoot: t.TempDir()}, st, launcher, nil)

	stats, err := o.Run(context.Background(), []Target{{Name: "widget", Version: "1.0.0"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, st.failures[key("widget", "1.0.0")], "panic")
}

type panickingLauncher struct{}

func (panickingLauncher) WarmCaches(ctx context.Context, workdir string) error {
	panic("warm caches exploded")
}

func (panickingLauncher) RunExtractor(ctx context.Context, cratePath string) (sandbox.Record, error) {
	return sandbox.Record{}, nil
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func newTestErr(msg string) error { return simpleErr(msg) }
