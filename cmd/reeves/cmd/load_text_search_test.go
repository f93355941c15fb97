package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTextSearchCmd_RebuildsIndexOverEmptyStore(t *testing.T) {
	dbPath = filepath.Join(t.TempDir(), "reeves.db")

	cmd := newLoadTextSearchCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "fuzzy type index rebuilt")
}

func TestLoadTextSearchCmd_FailsWhenStoreCannotBeOpened(t *testing.T) {
	dbPath = filepath.Join(t.TempDir(), "missing", "nested", "reeves.db")

	cmd := newLoadTextSearchCmd()
	cmd.SetOut(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}
