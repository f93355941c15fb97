package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "reeves")
	assert.Contains(t, output, "Usage:")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "reeves version")
}

func TestRootCmd_HasAllSpecifiedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{
		"analyze-and-save",
		"analyze-and-print",
		"container-analyze-and-print",
		"analyze-top100-crates",
		"analyze-all-crates",
		"load-text-search",
		"search",
		"serve",
		"debug-db",
		"logs",
		"version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_AnalyzeAndPrintIsHiddenButStillRunnable(t *testing.T) {
	cmd := NewRootCmd()
	sub, _, err := cmd.Find([]string{"analyze-and-print"})
	require.NoError(t, err)
	assert.True(t, sub.Hidden)
}

func TestRootCmd_ContainerAnalyzeAndPrintIsNotHidden(t *testing.T) {
	cmd := NewRootCmd()
	sub, _, err := cmd.Find([]string{"container-analyze-and-print"})
	require.NoError(t, err)
	assert.False(t, sub.Hidden)
}

func TestRootCmd_HasDBFlag(t *testing.T) {
	cmd := NewRootCmd()
	flag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, flag)
	assert.Equal(t, "reeves.db", flag.DefValue)
}

func TestRootCmd_HasDebugFlag(t *testing.T) {
	cmd := NewRootCmd()
	flag := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCmd_DebugFlagEnablesAndCleansUpLogging(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--debug", "version"})

	require.NoError(t, cmd.Execute())
	assert.Nil(t, loggingCleanup, "cleanup should run and clear itself in PersistentPostRunE")
}
