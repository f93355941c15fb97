package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsSensibleDefaults(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "reeves.db", cfg.Store.Path)
	assert.Equal(t, "mirror", cfg.Mirror.Root)
	assert.Equal(t, runtime.NumCPU(), cfg.Orchestrate.Concurrency)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "static", cfg.Server.StaticRoot)
	assert.Equal(t, int64(1<<20), cfg.Server.RequestSizeCapBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.WriteToStderr)
}

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
}

func TestLoad_EmptyPathSkipsFileStep(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Mirror.Root, cfg.Mirror.Root)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reeves.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  path: /data/custom.db
mirror:
  root: /srv/mirror
orchestrate:
  concurrency: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/custom.db", cfg.Store.Path)
	assert.Equal(t, "/srv/mirror", cfg.Mirror.Root)
	assert.Equal(t, 4, cfg.Orchestrate.Concurrency)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reeves.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /data/from-file.db\n"), 0o644))

	t.Setenv("REEVES_DB_PATH", "/data/from-env.db")
	t.Setenv("REEVES_CONCURRENCY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Orchestrate.Concurrency)
}

func TestLoad_InvalidEnvIntIsIgnored(t *testing.T) {
	t.Setenv("REEVES_CONCURRENCY", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), cfg.Orchestrate.Concurrency)
}

func TestValidate_RejectsNegativeConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Orchestrate.Concurrency = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUndersizedRequestCap(t *testing.T) {
	cfg := Default()
	cfg.Server.RequestSizeCapBytes = 1024
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [this is not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = "/tmp/roundtrip.db"
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/roundtrip.db", loaded.Store.Path)
}
