package orchestrator

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTarball(t *testing.T, dest string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(dest)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestExtractTarball_StripsWrapperDirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "widget-1.0.0.crate")
	buildTarball(t, src, map[string]string{
		"widget-1.0.0/go.mod":        "module widget\n",
		"widget-1.0.0/widget.go":     "package widget\n",
		"widget-1.0.0/sub/nested.go": "package sub\n",
	})

	dest := t.TempDir()
	require.NoError(t, extractTarball(src, dest))

	assert.FileExists(t, filepath.Join(dest, "go.mod"))
	assert.FileExists(t, filepath.Join(dest, "widget.go"))
	assert.FileExists(t, filepath.Join(dest, "sub", "nested.go"))
	assert.NoFileExists(t, filepath.Join(dest, "widget-1.0.0", "go.mod"))
}

func TestExtractTarball_RejectsPathTraversal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil-1.0.0.crate")
	buildTarball(t, src, map[string]string{
		"evil-1.0.0/../../../etc/passwd": "pwned\n",
	})

	dest := t.TempDir()
	err := extractTarball(src, dest)
	require.Error(t, err)
}

func TestExtractTarball_MissingFileReturnsError(t *testing.T) {
	err := extractTarball(filepath.Join(t.TempDir(), "missing.crate"), t.TempDir())
	require.Error(t, err)
}

func TestWriteVersionSidecar_WritesExactVersionString(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeVersionSidecar(dir, "v1.2.3"))

	data, err := os.ReadFile(filepath.Join(dir, versionSidecarName))
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", string(data))
}
