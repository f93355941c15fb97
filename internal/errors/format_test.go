package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := Store("bucket 'fn' missing", nil)

	result := FormatForUser(err)

	assert.Contains(t, result, "bucket 'fn' missing")
	assert.Contains(t, result, "[STORE]")
}

func TestFormatForUser_WithCause(t *testing.T) {
	err := Sandbox("child process exited", errors.New("exit status 1"))

	result := FormatForUser(err)

	assert.Contains(t, result, "child process exited")
	assert.Contains(t, result, "exit status 1")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := Store("write failed", errors.New("disk full"))

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "write failed", result["message"])
	assert.Equal(t, string(CategoryStore), result["category"])
	assert.Equal(t, "disk full", result["cause"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, string(CategoryQuery), result["category"])
	assert.Equal(t, "unexpected error", result["message"])
	assert.Equal(t, "generic error", result["cause"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatForCLI_IncludesCategory(t *testing.T) {
	err := BadRequest("missing 'ret' field in search request")

	result := FormatForCLI(err)

	assert.Contains(t, result, "missing 'ret' field")
	assert.Contains(t, result, "BAD_REQUEST")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := Query("fuzzy index unreachable", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "should be concise")
}

func TestFormatForLog_IncludesCauseWhenPresent(t *testing.T) {
	err := Extractor("failed to typecheck package", errors.New("syntax error"))

	attrs := FormatForLog(err)

	assert.Equal(t, string(CategoryExtractor), attrs["category"])
	assert.Equal(t, "syntax error", attrs["cause"])
}
